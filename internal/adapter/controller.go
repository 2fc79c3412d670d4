package adapter

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arkbridge/adapter-whatsapp-web/internal/bot"
	"github.com/arkbridge/adapter-whatsapp-web/internal/status"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

// Config holds the controller's optional knobs.
type Config struct {
	// SelfIDOverride replaces the client-reported account id. Internal
	// escape hatch, normally left empty.
	SelfIDOverride string
}

// Controller owns the underlying client for one connection: it wires the raw
// event stream into session adaptation, manages the bot's online state, and
// reports every connection transition to the status hub. Transitions never
// become chat sessions.
type Controller struct {
	client wweb.Client
	hub    *status.Hub
	config Config
	logger *logrus.Entry

	mu       sync.RWMutex
	bot      *bot.Bot
	handlers []bot.Handler
	onSend   []bot.Handler
}

func NewController(client wweb.Client, hub *status.Hub, config Config) *Controller {
	return &Controller{
		client: client,
		hub:    hub,
		config: config,
		logger: log.Print("controller"),
	}
}

// OnSession registers a session handler installed on the bot once the client
// reports ready. Must be called before Connect.
func (c *Controller) OnSession(fn bot.Handler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

// OnSend registers a handler for outbound echo sessions.
func (c *Controller) OnSend(fn bot.Handler) {
	c.mu.Lock()
	c.onSend = append(c.onSend, fn)
	c.mu.Unlock()
}

// Bot returns the active bot, or nil before the client is ready.
func (c *Controller) Bot() *bot.Bot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bot
}

// Connect subscribes to the client's streams and starts initialization.
func (c *Controller) Connect(ctx context.Context) error {
	c.hub.Publish(status.Update{Status: status.PhaseInit, Message: "WhatsApp client is initializing"})
	c.client.OnLifecycle(func(ev wweb.LifecycleEvent) {
		c.handleLifecycle(ctx, ev)
	})
	c.client.OnEvent(func(p *wweb.Payload) {
		c.handleEvent(ctx, p)
	})
	return c.client.Initialize(ctx)
}

// Disconnect marks the bot offline and tears the client down.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	b := c.bot
	c.bot = nil
	c.mu.Unlock()
	if b != nil {
		b.Offline()
	}
	c.hub.Publish(status.Update{Status: status.PhaseOffline, Message: "WhatsApp adapter is disconnected"})
	return c.client.Destroy(ctx)
}

func (c *Controller) handleLifecycle(ctx context.Context, ev wweb.LifecycleEvent) {
	switch ev.Kind {
	case wweb.LifecycleQR:
		image, err := status.QRImageDataURL(ev.QRCode)
		if err != nil {
			c.logger.WithError(err).Error("Failed to encode QR image")
			c.hub.Publish(status.Update{Status: status.PhaseError, Message: "Failed to encode QR code"})
			return
		}
		c.logger.Info("QR code received, waiting for scan")
		c.hub.Publish(status.Update{
			Status:  status.PhaseQRCode,
			Message: "Scan the QR code with your phone",
			Image:   image,
		})

	case wweb.LifecycleReady:
		c.handleReady(ctx)

	case wweb.LifecycleDisconnected:
		c.logger.Warn("Client disconnected")
		c.mu.Lock()
		b := c.bot
		c.bot = nil
		c.mu.Unlock()
		if b != nil {
			b.Offline()
		}
		message := "WhatsApp client disconnected"
		if ev.Message != "" {
			message = ev.Message
		}
		c.hub.Publish(status.Update{Status: status.PhaseOffline, Message: message})

	case wweb.LifecycleAuthFailure:
		c.logger.WithError(ev.Err).Error("Authentication failed")
		c.hub.Publish(status.Update{Status: status.PhaseError, Message: "Authentication failed"})
	}
}

// handleReady resolves the account identity and brings the bot online. An
// identity resolution failure keeps the bot offline and surfaces as a status
// error.
func (c *Controller) handleReady(ctx context.Context) {
	info := c.client.Info()
	if info == nil || info.WID == "" {
		c.logger.Error("Client ready without an account identity")
		c.hub.Publish(status.Update{Status: status.PhaseError, Message: "Failed to resolve account identity"})
		return
	}

	selfID := info.WID
	if c.config.SelfIDOverride != "" {
		selfID = c.config.SelfIDOverride
	}

	self := &universal.User{ID: selfID, Name: info.PushName}
	if avatar, err := c.client.ProfilePictureURL(ctx, info.WID); err == nil {
		self.Avatar = avatar
	}

	b := bot.New(c.client, self)
	c.mu.Lock()
	for _, fn := range c.handlers {
		b.OnSession(fn)
	}
	for _, fn := range c.onSend {
		b.OnSend(fn)
	}
	c.bot = b
	c.mu.Unlock()

	b.Online()
	c.logger.WithField("self_id", selfID).Info("Client is ready")
	c.hub.Publish(status.Update{Status: status.PhaseSuccess, Message: "WhatsApp client is ready"})
}

// handleEvent forwards one raw payload through classification and session
// adaptation. Events arriving before the bot is online are dropped.
func (c *Controller) handleEvent(ctx context.Context, p *wweb.Payload) {
	b := c.Bot()
	if b == nil || !b.IsOnline() {
		return
	}

	event, ok := wweb.Classify(p)
	if !ok {
		c.logger.Debug("Payload matched no known shape, ignoring")
		return
	}

	sessions, err := AdaptSession(ctx, b, event)
	if err != nil {
		c.logger.WithError(err).Error("Failed to adapt session")
		return
	}
	for _, session := range sessions {
		b.Dispatch(session)
	}
}
