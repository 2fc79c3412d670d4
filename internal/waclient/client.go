// Package waclient implements the adapter's capability surface on top of
// go.mau.fi/whatsmeow: one authenticated WhatsApp account, QR pairing,
// payload translation into the loose WhatsApp Web shapes, and outbound send
// construction.
package waclient

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

var ErrNotConnected = errors.New("WhatsApp client is not connected")

type Config struct {
	ProxyURL          string
	SendRatePerMinute int
	SendBurst         int
	CacheSize         int
	CacheTTL          time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		ProxyURL:          env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),
		SendRatePerMinute: env.GetEnvIntOrDefault("WHATSAPP_SEND_RATE", 20),
		SendBurst:         env.GetEnvIntOrDefault("WHATSAPP_SEND_BURST", 5),
		CacheSize:         env.GetEnvIntOrDefault("WHATSAPP_MESSAGE_CACHE_SIZE", 256),
		CacheTTL:          env.GetEnvDurationOrDefault("WHATSAPP_MESSAGE_CACHE_TTL", 24*time.Hour),
	}
}

// Client wraps one whatsmeow client behind the wweb.Client surface.
type Client struct {
	wa      *whatsmeow.Client
	logger  *logrus.Entry
	limiter *rate.Limiter
	cache   *messageCache

	mu           sync.RWMutex
	lifecycleFns []func(wweb.LifecycleEvent)
	eventFns     []func(*wweb.Payload)
	self         *wweb.SelfInfo
}

var _ wweb.Client = (*Client)(nil)

func New(ctx context.Context, container *sqlstore.Container, config Config) (*Client, error) {
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device from datastore: %w", err)
	}

	store.DeviceProps.Os = proto.String(runtime.GOOS)
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	wa := whatsmeow.NewClient(device, nil)
	if config.ProxyURL != "" {
		wa.SetProxyAddress(config.ProxyURL)
	}
	wa.EnableAutoReconnect = true
	wa.AutoTrustIdentity = true

	sendRate := config.SendRatePerMinute
	if sendRate <= 0 {
		sendRate = 20
	}
	burst := config.SendBurst
	if burst <= 0 {
		burst = 5
	}

	c := &Client{
		wa:      wa,
		logger:  log.Print("waclient"),
		limiter: rate.NewLimiter(rate.Limit(sendRate)/60, burst),
		cache:   newMessageCache(config.CacheSize, config.CacheTTL),
	}
	wa.AddEventHandler(c.handleWhatsAppEvent)
	return c, nil
}

func (c *Client) OnLifecycle(fn func(wweb.LifecycleEvent)) {
	c.mu.Lock()
	c.lifecycleFns = append(c.lifecycleFns, fn)
	c.mu.Unlock()
}

func (c *Client) OnEvent(fn func(*wweb.Payload)) {
	c.mu.Lock()
	c.eventFns = append(c.eventFns, fn)
	c.mu.Unlock()
}

func (c *Client) emitLifecycle(ev wweb.LifecycleEvent) {
	c.mu.RLock()
	fns := make([]func(wweb.LifecycleEvent), len(c.lifecycleFns))
	copy(fns, c.lifecycleFns)
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) emitEvent(p *wweb.Payload) {
	c.mu.RLock()
	fns := make([]func(*wweb.Payload), len(c.eventFns))
	copy(fns, c.eventFns)
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}

// Initialize connects to WhatsApp. An unpaired device goes through the QR
// channel first; each code is surfaced as a qr lifecycle event until pairing
// succeeds or the channel times out.
func (c *Client) Initialize(ctx context.Context) error {
	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return err
		}
		if err := c.wa.Connect(); err != nil {
			return err
		}
		go c.watchQRChannel(qrChan)
		return nil
	}
	return c.wa.Connect()
}

func (c *Client) watchQRChannel(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch {
		case evt.Event == "code":
			c.emitLifecycle(wweb.LifecycleEvent{Kind: wweb.LifecycleQR, QRCode: evt.Code})
		case evt.Event == whatsmeow.QRChannelSuccess.Event:
			// the Connected event carries the authenticated identity
		case evt.Event == whatsmeow.QRChannelTimeout.Event:
			c.emitLifecycle(wweb.LifecycleEvent{
				Kind: wweb.LifecycleAuthFailure,
				Err:  errors.New("qr channel timed out before pairing"),
			})
		case evt.Event == "error":
			err := evt.Error
			if err == nil {
				err = errors.New("qr channel reported an unspecified error")
			}
			c.emitLifecycle(wweb.LifecycleEvent{Kind: wweb.LifecycleAuthFailure, Err: err})
		}
	}
}

func (c *Client) Destroy(ctx context.Context) error {
	c.wa.Disconnect()
	return nil
}

func (c *Client) Info() *wweb.SelfInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

// IsHealthy reports whether the underlying client is connected and logged
// in, for periodic health probes.
func (c *Client) IsHealthy() bool {
	return c.wa.IsConnected() && c.wa.IsLoggedIn()
}

func (c *Client) handleWhatsAppEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		if c.wa.Store.ID == nil {
			c.logger.Error("Connected without a store identity")
			return
		}
		self := &wweb.SelfInfo{
			WID:      serializeJID(c.wa.Store.ID.ToNonAD()),
			PushName: c.wa.Store.PushName,
		}
		c.mu.Lock()
		c.self = self
		c.mu.Unlock()
		c.logger.WithField("wid", maskIDForLog(self.WID)).Info("Client connected")
		c.emitLifecycle(wweb.LifecycleEvent{Kind: wweb.LifecycleReady})

	case *events.Disconnected:
		c.logger.Warn("Client disconnected")
		c.emitLifecycle(wweb.LifecycleEvent{Kind: wweb.LifecycleDisconnected})

	case *events.LoggedOut:
		c.logger.Warn("Client logged out")
		c.emitLifecycle(wweb.LifecycleEvent{
			Kind:    wweb.LifecycleDisconnected,
			Message: "WhatsApp session was logged out",
		})

	case *events.ConnectFailure:
		c.logger.Error(fmt.Sprintf("Client connection failure: reason=%s, message=%s", e.Reason, e.Message))
		c.emitLifecycle(wweb.LifecycleEvent{
			Kind: wweb.LifecycleAuthFailure,
			Err:  fmt.Errorf("connect failure: %s", e.Reason),
		})

	case *events.TemporaryBan:
		c.logger.Error(fmt.Sprintf("Client temporarily banned: reason=%s, expires=%s", e.Code, e.Expire))

	case *events.KeepAliveTimeout:
		c.logger.Warn(fmt.Sprintf("Client keepalive timeout: errors=%d, lastSuccess=%s", e.ErrorCount, e.LastSuccess.Format(time.RFC3339)))

	case *events.Message:
		payload, raw := c.messagePayload(e)
		if payload == nil {
			return
		}
		// cache before emitting so media download and quote resolution can
		// find the message while the session is being decoded
		if msg, ok := rawMessageOf(payload); ok {
			c.cache.add(msg, raw)
		}
		c.emitEvent(payload)

	case *events.GroupInfo:
		for _, payload := range c.groupNotificationPayloads(e) {
			c.emitEvent(payload)
		}

	case *events.DeleteChat:
		c.emitEvent(c.deletedChatPayload(e))
	}
}

// rawMessageOf mirrors classification for the cache: only payloads carrying
// raw data are messages.
func rawMessageOf(p *wweb.Payload) (*wweb.RawMessage, bool) {
	event, ok := wweb.Classify(p)
	if !ok || event.Kind != wweb.KindMessage {
		return nil, false
	}
	return event.Message, true
}

func maskIDForLog(id string) string {
	if len(id) < 4 {
		return id
	}
	return id[0:len(id)-4] + "xxxx"
}

func (c *Client) GetChatByID(ctx context.Context, chatID string) (*wweb.RawChat, error) {
	jid, err := parseSerializedID(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %s: %w", chatID, err)
	}

	serialized := serializeJID(jid)
	archived := false
	chat := &wweb.RawChat{
		ID:       wweb.MessageID{Remote: serialized, Serialized: serialized},
		IsGroup:  jid.Server == types.GroupServer,
		Archived: &archived,
	}

	if chat.IsGroup {
		info, err := c.wa.GetGroupInfo(ctx, jid)
		if err != nil {
			return nil, fmt.Errorf("resolve group %s: %w", chatID, err)
		}
		chat.Name = info.Name
		return chat, nil
	}

	contact, err := c.wa.Store.Contacts.GetContact(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("resolve contact %s: %w", chatID, err)
	}
	chat.Name = contactName(contact)
	return chat, nil
}

func (c *Client) GetContactByID(ctx context.Context, contactID string) (*wweb.Contact, error) {
	jid, err := parseSerializedID(contactID)
	if err != nil {
		return nil, fmt.Errorf("invalid contact id %s: %w", contactID, err)
	}
	contact, err := c.wa.Store.Contacts.GetContact(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("resolve contact %s: %w", contactID, err)
	}
	return &wweb.Contact{
		ID:       serializeJID(jid),
		Name:     contactName(contact),
		PushName: contact.PushName,
	}, nil
}

func contactName(contact types.ContactInfo) string {
	switch {
	case contact.FullName != "":
		return contact.FullName
	case contact.FirstName != "":
		return contact.FirstName
	case contact.BusinessName != "":
		return contact.BusinessName
	default:
		return contact.PushName
	}
}

// GetChats lists the joined groups plus every direct chat seen in the
// message cache.
func (c *Client) GetChats(ctx context.Context) ([]*wweb.RawChat, error) {
	groups, err := c.wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list joined groups: %w", err)
	}

	var chats []*wweb.RawChat
	seen := map[string]bool{}
	for _, group := range groups {
		serialized := serializeJID(group.JID)
		archived := false
		chats = append(chats, &wweb.RawChat{
			ID:       wweb.MessageID{Remote: serialized, Serialized: serialized},
			Name:     group.Name,
			IsGroup:  true,
			Archived: &archived,
		})
		seen[serialized] = true
	}

	for _, chatID := range c.cache.chatIDs() {
		if seen[chatID] {
			continue
		}
		archived := false
		chats = append(chats, &wweb.RawChat{
			ID:       wweb.MessageID{Remote: chatID, Serialized: chatID},
			Archived: &archived,
		})
	}
	return chats, nil
}

// FetchMessages serves recent history from the inbound cache; the protocol
// offers no on-demand history fetch.
func (c *Client) FetchMessages(ctx context.Context, chatID string, limit int) ([]*wweb.RawMessage, error) {
	return c.cache.recent(chatID, limit), nil
}

// QuotedMessage resolves the message quoted by msg: from the cache when the
// original is still there, otherwise reconstructed from the quote context
// carried in the payload.
func (c *Client) QuotedMessage(ctx context.Context, msg *wweb.RawMessage) (*wweb.RawMessage, error) {
	stanzaID, _ := msg.RawData["quotedMsgId"].(string)
	if stanzaID == "" {
		return nil, nil
	}
	if cached, _ := c.cache.get(msg.ID.Remote, stanzaID); cached != nil {
		return cached, nil
	}

	participant, _ := msg.RawData["quotedParticipant"].(string)
	body, _ := msg.RawData["quotedBody"].(string)
	quoted := &wweb.RawMessage{
		ID: wweb.MessageID{
			Remote:     msg.ID.Remote,
			ID:         stanzaID,
			Serialized: "false_" + msg.ID.Remote + "_" + stanzaID,
		},
		From:      participant,
		Body:      body,
		Type:      wweb.MessageTypeText,
		Timestamp: msg.Timestamp,
		RawData:   map[string]any{},
	}
	if msg.Author != "" {
		quoted.Author = participant
		quoted.From = msg.ID.Remote
	}
	return quoted, nil
}

func (c *Client) ProfilePictureURL(ctx context.Context, contactID string) (string, error) {
	jid, err := parseSerializedID(contactID)
	if err != nil {
		return "", fmt.Errorf("invalid contact id %s: %w", contactID, err)
	}
	info, err := c.wa.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{Preview: true})
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", nil
	}
	return info.URL, nil
}
