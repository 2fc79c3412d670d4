// Package bot exposes the capability surface the host framework consumes:
// session construction, dispatch, and online/offline state for one
// authenticated WhatsApp Web account.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

// Platform is the tag under which this adapter registers its sessions and
// annotates platform-owned elements such as sticker faces.
const Platform = "whatsapp-web"

type Handler func(*universal.Session)

type Bot struct {
	SelfID string
	User   *universal.User

	client wweb.Client
	logger *logrus.Entry

	mu       sync.RWMutex
	online   bool
	handlers []Handler
	onSend   []Handler
}

func New(client wweb.Client, self *universal.User) *Bot {
	return &Bot{
		SelfID: self.ID,
		User:   self,
		client: client,
		logger: log.Print("bot"),
	}
}

func (b *Bot) Client() wweb.Client {
	return b.client
}

func (b *Bot) Logger() *logrus.Entry {
	return b.logger
}

// Session builds a fresh session prefilled with the bot identity. The
// timestamp defaults to now and is overwritten by decoders that know the
// source time.
func (b *Bot) Session() *universal.Session {
	return &universal.Session{
		ID:        uuid.NewString(),
		Platform:  Platform,
		SelfID:    b.SelfID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// OnSession registers a handler for dispatched sessions. Handlers run
// synchronously in registration order.
func (b *Bot) OnSession(fn Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
}

// OnSend registers a handler for the "send" lifecycle event emitted after
// every outbound flush.
func (b *Bot) OnSend(fn Handler) {
	b.mu.Lock()
	b.onSend = append(b.onSend, fn)
	b.mu.Unlock()
}

func (b *Bot) Dispatch(session *universal.Session) {
	if session == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(session)
	}
}

func (b *Bot) EmitSend(session *universal.Session) {
	if session == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.onSend))
	copy(handlers, b.onSend)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(session)
	}
}

// GuildList returns the group chats the account participates in.
func (b *Bot) GuildList(ctx context.Context) ([]*universal.Guild, error) {
	chats, err := b.client.GetChats(ctx)
	if err != nil {
		return nil, err
	}
	var guilds []*universal.Guild
	for _, chat := range chats {
		if !chat.IsGroup {
			continue
		}
		guilds = append(guilds, &universal.Guild{ID: chat.ID.Remote, Name: chat.Name})
	}
	return guilds, nil
}

// React adds an emoji reaction to a message in the given channel.
func (b *Bot) React(ctx context.Context, channelID string, messageID string, emoji string) error {
	return b.client.React(ctx, channelID, messageID, emoji)
}

func (b *Bot) Online() {
	b.mu.Lock()
	b.online = true
	b.mu.Unlock()
	b.logger.WithField("self_id", b.SelfID).Info("Bot is online")
}

func (b *Bot) Offline() {
	b.mu.Lock()
	b.online = false
	b.mu.Unlock()
	b.logger.WithField("self_id", b.SelfID).Info("Bot is offline")
}

func (b *Bot) IsOnline() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.online
}
