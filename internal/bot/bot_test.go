package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

type stubClient struct {
	wweb.Client
	chats []*wweb.RawChat
}

func (s *stubClient) GetChats(ctx context.Context) ([]*wweb.RawChat, error) {
	return s.chats, nil
}

func newBot(client wweb.Client) *Bot {
	return New(client, &universal.User{ID: "1000@c.us", Name: "self"})
}

func TestSessionPrefill(t *testing.T) {
	b := newBot(&stubClient{})
	session := b.Session()

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, Platform, session.Platform)
	assert.Equal(t, "1000@c.us", session.SelfID)
	assert.Positive(t, session.Timestamp)

	other := b.Session()
	assert.NotEqual(t, session.ID, other.ID)
}

func TestDispatchOrder(t *testing.T) {
	b := newBot(&stubClient{})

	var order []string
	b.OnSession(func(s *universal.Session) { order = append(order, "first") })
	b.OnSession(func(s *universal.Session) { order = append(order, "second") })

	b.Dispatch(b.Session())
	assert.Equal(t, []string{"first", "second"}, order)

	b.Dispatch(nil)
	assert.Len(t, order, 2)
}

func TestOnlineState(t *testing.T) {
	b := newBot(&stubClient{})
	assert.False(t, b.IsOnline())
	b.Online()
	assert.True(t, b.IsOnline())
	b.Offline()
	assert.False(t, b.IsOnline())
}

func TestGuildList(t *testing.T) {
	archived := false
	b := newBot(&stubClient{chats: []*wweb.RawChat{
		{ID: wweb.MessageID{Remote: "999@g.us"}, Name: "group", IsGroup: true, Archived: &archived},
		{ID: wweb.MessageID{Remote: "888@c.us"}, Name: "alice", Archived: &archived},
	}})

	guilds, err := b.GuildList(context.Background())
	require.NoError(t, err)
	require.Len(t, guilds, 1)
	assert.Equal(t, "999@g.us", guilds[0].ID)
	assert.Equal(t, "group", guilds[0].Name)
}
