package wweb

import "context"

type LifecycleKind string

const (
	LifecycleQR           LifecycleKind = "qr"
	LifecycleReady        LifecycleKind = "ready"
	LifecycleDisconnected LifecycleKind = "disconnected"
	LifecycleAuthFailure  LifecycleKind = "auth_failure"
)

// LifecycleEvent reports connection state changes of the underlying client.
// QR events carry the pairing payload to be rendered for scanning.
type LifecycleEvent struct {
	Kind    LifecycleKind
	QRCode  string
	Message string
	Err     error
}

// Client is the capability surface the adapter needs from the underlying
// WhatsApp Web client. Connection lifecycle, pairing and persistent auth
// storage are the implementation's concern; the adapter only consumes the
// surface below.
type Client interface {
	// Initialize connects the client and starts delivering events to the
	// registered handlers. It returns once the connection attempt is under
	// way; readiness is reported through a lifecycle event.
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error

	// OnLifecycle and OnEvent register handlers. Both must be called before
	// Initialize; handlers are invoked sequentially in arrival order.
	OnLifecycle(fn func(LifecycleEvent))
	OnEvent(fn func(*Payload))

	// Info returns the authenticated identity, available once the client has
	// reported LifecycleReady.
	Info() *SelfInfo

	GetChatByID(ctx context.Context, chatID string) (*RawChat, error)
	GetContactByID(ctx context.Context, contactID string) (*Contact, error)
	GetChats(ctx context.Context) ([]*RawChat, error)

	// SendMessage delivers one physical send to a chat and returns the new
	// message id. Content carries at most one media payload.
	SendMessage(ctx context.Context, chatID string, content SendContent, opts *SendOptions) (string, error)

	// Reply sends content as a quote-reply to an existing message.
	Reply(ctx context.Context, quoted *RawMessage, content SendContent, chatID string, opts *SendOptions) (string, error)

	// React adds an emoji reaction to an existing message. The reaction must
	// be a single emoji grapheme.
	React(ctx context.Context, chatID string, messageID string, emoji string) error

	// FetchMessages returns recent messages of a chat, newest last. A limit
	// of zero or less means no limit: the full history available from the
	// client is returned.
	FetchMessages(ctx context.Context, chatID string, limit int) ([]*RawMessage, error)

	// QuotedMessage resolves the message quoted by msg.
	QuotedMessage(ctx context.Context, msg *RawMessage) (*RawMessage, error)

	DownloadMedia(ctx context.Context, msg *RawMessage) (*Media, error)
	ProfilePictureURL(ctx context.Context, contactID string) (string, error)
}
