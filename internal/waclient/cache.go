package waclient

import (
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// messageCache keeps the recent inbound messages of every chat, newest last.
// The underlying protocol has no on-demand history fetch, so quote
// resolution and FetchMessages are served from this cache, populated from
// the live event stream. Entries expire by TTL and each chat is bounded by
// capacity.
type messageCache struct {
	mu       sync.RWMutex
	perChat  map[string][]*cachedMessage
	capacity int
	ttl      time.Duration
}

type cachedMessage struct {
	msg      *wweb.RawMessage
	evt      *events.Message
	storedAt time.Time
}

func newMessageCache(capacity int, ttl time.Duration) *messageCache {
	if capacity <= 0 {
		capacity = 256
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &messageCache{
		perChat:  make(map[string][]*cachedMessage),
		capacity: capacity,
		ttl:      ttl,
	}
}

func (c *messageCache) add(msg *wweb.RawMessage, evt *events.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chatID := msg.ID.Remote
	entries := c.prune(c.perChat[chatID])
	entries = append(entries, &cachedMessage{msg: msg, evt: evt, storedAt: time.Now()})
	if len(entries) > c.capacity {
		entries = entries[len(entries)-c.capacity:]
	}
	c.perChat[chatID] = entries
}

// recent returns up to limit messages of one chat, newest last. A limit of
// zero or less returns everything still cached.
func (c *messageCache) recent(chatID string, limit int) []*wweb.RawMessage {
	c.mu.Lock()
	entries := c.prune(c.perChat[chatID])
	c.perChat[chatID] = entries
	c.mu.Unlock()

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	messages := make([]*wweb.RawMessage, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, entry.msg)
	}
	return messages
}

// get looks one message up by chat and chat-local id.
func (c *messageCache) get(chatID string, messageID string) (*wweb.RawMessage, *events.Message) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, entry := range c.perChat[chatID] {
		if entry.msg.ID.ID == messageID && time.Since(entry.storedAt) <= c.ttl {
			return entry.msg, entry.evt
		}
	}
	return nil, nil
}

func (c *messageCache) chatIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.perChat))
	for id := range c.perChat {
		ids = append(ids, id)
	}
	return ids
}

func (c *messageCache) prune(entries []*cachedMessage) []*cachedMessage {
	cutoff := time.Now().Add(-c.ttl)
	for len(entries) > 0 && entries[0].storedAt.Before(cutoff) {
		entries = entries[1:]
	}
	return entries
}
