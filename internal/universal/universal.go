// Package universal holds the framework-native entity model shared by every
// adapter: users, guilds, channels, messages and the session envelope that
// carries one decoded event into the host framework.
package universal

import "github.com/arkbridge/adapter-whatsapp-web/internal/element"

type ChannelType string

const (
	ChannelTypeText   ChannelType = "text"
	ChannelTypeDirect ChannelType = "direct"
)

// Session type tags produced by this adapter.
const (
	EventMessage            = "message"
	EventGuildMemberAdded   = "guild-member-added"
	EventGuildMemberRemoved = "guild-member-removed"
	EventGuildUpdated       = "guild-updated"
	EventGuildRemoved       = "guild-removed"
	EventInternal           = "internal"
	EventSend               = "send"
)

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Channel struct {
	ID   string      `json:"id"`
	Type ChannelType `json:"type"`
	Name string      `json:"name,omitempty"`
}

type Message struct {
	ID       string             `json:"id"`
	Content  string             `json:"content,omitempty"`
	Elements []*element.Element `json:"-"`
	User     *User              `json:"user,omitempty"`
	Quote    *Message           `json:"quote,omitempty"`
}

// EventBody carries the decoded entities relevant to one session. Users is
// populated instead of User for events affecting several members at once.
type EventBody struct {
	Message *Message `json:"message,omitempty"`
	User    *User    `json:"user,omitempty"`
	Users   []*User  `json:"users,omitempty"`
	Channel *Channel `json:"channel,omitempty"`
	Guild   *Guild   `json:"guild,omitempty"`
}

// Session is the unit of dispatch into the host framework. Timestamp is in
// milliseconds.
type Session struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Platform   string    `json:"platform"`
	SelfID     string    `json:"selfId"`
	GuildID    string    `json:"guildId,omitempty"`
	ChannelID  string    `json:"channelId,omitempty"`
	OperatorID string    `json:"operatorId,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	Timestamp  int64     `json:"timestamp"`
	IsDirect   bool      `json:"isDirect,omitempty"`
	Event      EventBody `json:"event"`

	// InternalType qualifies EventInternal sessions with the raw payload
	// shape, e.g. "whatsapp-web/message".
	InternalType string `json:"internalType,omitempty"`

	// Internal keeps the platform-specific raw payload attached to the
	// session for extensions; never serialized.
	Internal any `json:"-"`
}
