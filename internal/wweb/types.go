// Package wweb models the payloads and capability surface of the underlying
// WhatsApp Web client. The adapter core consumes this package only; the
// concrete client lives behind the Client interface.
package wweb

// DirectChatSuffix marks one-to-one chat identifiers ("...@c.us"). Group
// chats live on the group server ("...@g.us").
const DirectChatSuffix = "@c"

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
	MessageTypeReaction MessageType = "reaction"
)

type GroupNotificationType string

const (
	GroupNotificationAdd     GroupNotificationType = "add"
	GroupNotificationRemove  GroupNotificationType = "remove"
	GroupNotificationLeave   GroupNotificationType = "leave"
	GroupNotificationSubject GroupNotificationType = "subject"
)

// MessageID is the composite identity of a message: the remote chat, the
// chat-local message id, and whether the message was sent by this account.
type MessageID struct {
	FromMe     bool   `json:"fromMe"`
	Remote     string `json:"remote"`
	ID         string `json:"id"`
	Serialized string `json:"_serialized"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawMessage is a message-shaped payload. Presence of RawData is what
// identifies this shape during classification.
type RawMessage struct {
	ID           MessageID      `json:"id"`
	Author       string         `json:"author,omitempty"` // set only in group chats
	From         string         `json:"from"`
	To           string         `json:"to,omitempty"`
	Body         string         `json:"body"`
	Type         MessageType    `json:"type"`
	Timestamp    int64          `json:"timestamp"` // unix seconds
	HasQuotedMsg bool           `json:"hasQuotedMsg,omitempty"`
	MediaKey     string         `json:"mediaKey,omitempty"`
	Location     *Location      `json:"location,omitempty"`
	RawData      map[string]any `json:"rawData"`
}

// NotifyName is the sender display name carried inside the raw payload.
func (m *RawMessage) NotifyName() string {
	if m.RawData == nil {
		return ""
	}
	name, _ := m.RawData["notifyName"].(string)
	return name
}

// RawGroupNotification is a group-event payload. Presence of RecipientIDs is
// what identifies this shape during classification.
type RawGroupNotification struct {
	ID           MessageID             `json:"id"`
	Author       string                `json:"author,omitempty"`
	Type         GroupNotificationType `json:"type"`
	RecipientIDs []string              `json:"recipientIds"`
	Timestamp    int64                 `json:"timestamp"`
	Body         string                `json:"body,omitempty"`
}

// RawChat is a chat-lifecycle payload. Presence of Archived is what
// identifies this shape during classification. The chat's own id is carried
// in ID.Remote so downstream code addresses it the same way as message
// identities.
type RawChat struct {
	ID        MessageID `json:"id"`
	Name      string    `json:"name,omitempty"`
	IsGroup   bool      `json:"isGroup,omitempty"`
	Archived  *bool     `json:"archived"`
	Timestamp int64     `json:"timestamp"`
}

// Contact as returned by contact lookups.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	PushName string `json:"pushname,omitempty"`
}

// Media is a downloaded or to-be-sent binary payload.
type Media struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimetype"`
	Filename string `json:"filename,omitempty"`
}

// SendContent is the payload of one physical send: plain text, or exactly
// one media item with an optional caption in SendOptions.
type SendContent struct {
	Text  string
	Media *Media
}

// Empty reports whether there is nothing to send.
func (c SendContent) Empty() bool {
	return c.Text == "" && c.Media == nil
}

type SendOptions struct {
	Caption         string
	Mentions        []string
	QuotedMessageID string
}

// SelfInfo is the authenticated account identity.
type SelfInfo struct {
	WID      string `json:"wid"`
	PushName string `json:"pushname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}
