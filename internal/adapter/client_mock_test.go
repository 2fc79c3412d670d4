package adapter

import (
	"context"
	"fmt"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// sendCall records one outbound send observed by the fake client.
type sendCall struct {
	chatID  string
	content wweb.SendContent
	opts    wweb.SendOptions
	quoted  *wweb.RawMessage
}

// fakeClient is an in-memory wweb.Client for adapter tests.
type fakeClient struct {
	self     *wweb.SelfInfo
	contacts map[string]*wweb.Contact
	chats    map[string]*wweb.RawChat
	history  map[string][]*wweb.RawMessage
	media    map[string]*wweb.Media

	quoted      func(msg *wweb.RawMessage) *wweb.RawMessage
	quotedCalls int

	sends     []sendCall
	reactions []string

	lifecycleFns []func(wweb.LifecycleEvent)
	eventFns     []func(*wweb.Payload)
	initialized  bool
	destroyed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		self:     &wweb.SelfInfo{WID: "1000@c.us", PushName: "self"},
		contacts: map[string]*wweb.Contact{},
		chats:    map[string]*wweb.RawChat{},
		history:  map[string][]*wweb.RawMessage{},
		media:    map[string]*wweb.Media{},
	}
}

func (f *fakeClient) Initialize(ctx context.Context) error {
	f.initialized = true
	return nil
}

func (f *fakeClient) Destroy(ctx context.Context) error {
	f.destroyed = true
	return nil
}

func (f *fakeClient) OnLifecycle(fn func(wweb.LifecycleEvent)) {
	f.lifecycleFns = append(f.lifecycleFns, fn)
}

func (f *fakeClient) OnEvent(fn func(*wweb.Payload)) {
	f.eventFns = append(f.eventFns, fn)
}

func (f *fakeClient) emitLifecycle(ev wweb.LifecycleEvent) {
	for _, fn := range f.lifecycleFns {
		fn(ev)
	}
}

func (f *fakeClient) emitEvent(p *wweb.Payload) {
	for _, fn := range f.eventFns {
		fn(p)
	}
}

func (f *fakeClient) Info() *wweb.SelfInfo { return f.self }

func (f *fakeClient) GetChatByID(ctx context.Context, chatID string) (*wweb.RawChat, error) {
	chat, ok := f.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("unknown chat %s", chatID)
	}
	return chat, nil
}

func (f *fakeClient) GetContactByID(ctx context.Context, contactID string) (*wweb.Contact, error) {
	contact, ok := f.contacts[contactID]
	if !ok {
		return nil, fmt.Errorf("unknown contact %s", contactID)
	}
	return contact, nil
}

func (f *fakeClient) GetChats(ctx context.Context) ([]*wweb.RawChat, error) {
	chats := make([]*wweb.RawChat, 0, len(f.chats))
	for _, chat := range f.chats {
		chats = append(chats, chat)
	}
	return chats, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, chatID string, content wweb.SendContent, opts *wweb.SendOptions) (string, error) {
	call := sendCall{chatID: chatID, content: content}
	if opts != nil {
		call.opts = *opts
	}
	f.sends = append(f.sends, call)
	return fmt.Sprintf("sent-%d", len(f.sends)), nil
}

func (f *fakeClient) Reply(ctx context.Context, quoted *wweb.RawMessage, content wweb.SendContent, chatID string, opts *wweb.SendOptions) (string, error) {
	call := sendCall{chatID: chatID, content: content, quoted: quoted}
	if opts != nil {
		call.opts = *opts
	}
	f.sends = append(f.sends, call)
	return fmt.Sprintf("sent-%d", len(f.sends)), nil
}

func (f *fakeClient) React(ctx context.Context, chatID string, messageID string, emoji string) error {
	f.reactions = append(f.reactions, chatID+"/"+messageID+"/"+emoji)
	return nil
}

func (f *fakeClient) FetchMessages(ctx context.Context, chatID string, limit int) ([]*wweb.RawMessage, error) {
	messages := f.history[chatID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (f *fakeClient) QuotedMessage(ctx context.Context, msg *wweb.RawMessage) (*wweb.RawMessage, error) {
	f.quotedCalls++
	if f.quoted == nil {
		return nil, nil
	}
	return f.quoted(msg), nil
}

func (f *fakeClient) DownloadMedia(ctx context.Context, msg *wweb.RawMessage) (*wweb.Media, error) {
	media, ok := f.media[msg.ID.ID]
	if !ok {
		return nil, fmt.Errorf("no media for message %s", msg.ID.ID)
	}
	return media, nil
}

func (f *fakeClient) ProfilePictureURL(ctx context.Context, contactID string) (string, error) {
	return "", nil
}

var _ wweb.Client = (*fakeClient)(nil)
