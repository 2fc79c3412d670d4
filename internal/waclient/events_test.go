package waclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

func newTestClient() *Client {
	return &Client{
		logger: log.Print("waclient"),
		cache:  newMessageCache(16, time.Minute),
	}
}

func newMessageEvent(content *waE2E.Message, group bool) *events.Message {
	info := types.MessageInfo{
		ID:        "m1",
		Timestamp: time.Unix(1700000000, 0),
		PushName:  "alice",
	}
	info.Sender = types.NewJID("628111", types.DefaultUserServer)
	if group {
		info.Chat = types.NewJID("120363000000000001", types.GroupServer)
		info.IsGroup = true
	} else {
		info.Chat = info.Sender
	}
	return &events.Message{Info: info, Message: content}
}

func TestMessagePayload(t *testing.T) {
	c := newTestClient()

	t.Run("plain text", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{
			Conversation: proto.String("hello"),
		}, false))
		require.NotNil(t, payload)
		assert.Equal(t, "hello", payload.Body)
		assert.Equal(t, "text", payload.Type)
		assert.Equal(t, "628111@c.us", payload.From)
		assert.Empty(t, payload.Author)
		assert.Equal(t, int64(1700000000), payload.Timestamp)
		assert.Equal(t, "alice", payload.RawData["notifyName"])

		event, ok := wweb.Classify(payload)
		require.True(t, ok)
		assert.Equal(t, wweb.KindMessage, event.Kind)
	})

	t.Run("group message carries the author", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{
			Conversation: proto.String("hi all"),
		}, true))
		require.NotNil(t, payload)
		assert.Equal(t, "628111@c.us", payload.Author)
		assert.Equal(t, "120363000000000001@g.us", payload.From)
	})

	t.Run("extended text with quote context", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text: proto.String("reply"),
				ContextInfo: &waE2E.ContextInfo{
					StanzaID:      proto.String("q1"),
					Participant:   proto.String("628222@s.whatsapp.net"),
					QuotedMessage: &waE2E.Message{Conversation: proto.String("original")},
				},
			},
		}, false))
		require.NotNil(t, payload)
		assert.True(t, payload.HasQuotedMsg)
		assert.Equal(t, "q1", payload.RawData["quotedMsgId"])
		assert.Equal(t, "628222@c.us", payload.RawData["quotedParticipant"])
		assert.Equal(t, "original", payload.RawData["quotedBody"])
	})

	t.Run("image caption becomes the body", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")},
		}, false))
		require.NotNil(t, payload)
		assert.Equal(t, "image", payload.Type)
		assert.Equal(t, "look", payload.Body)
	})

	t.Run("location carries coordinates", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{
			LocationMessage: &waE2E.LocationMessage{
				DegreesLatitude:  proto.Float64(1.5),
				DegreesLongitude: proto.Float64(-2.25),
			},
		}, false))
		require.NotNil(t, payload)
		require.NotNil(t, payload.Location)
		assert.Equal(t, 1.5, payload.Location.Latitude)
	})

	t.Run("unsupported content drops the event", func(t *testing.T) {
		payload, _ := c.messagePayload(newMessageEvent(&waE2E.Message{}, false))
		assert.Nil(t, payload)
	})
}

func TestGroupNotificationPayloads(t *testing.T) {
	c := newTestClient()
	groupJID := types.NewJID("120363000000000001", types.GroupServer)
	actor := types.NewJID("628111", types.DefaultUserServer)
	other := types.NewJID("628222", types.DefaultUserServer)

	t.Run("join becomes add", func(t *testing.T) {
		payloads := c.groupNotificationPayloads(&events.GroupInfo{
			JID:       groupJID,
			Sender:    &actor,
			Timestamp: time.Unix(1700000000, 0),
			Join:      []types.JID{other},
		})
		require.Len(t, payloads, 1)
		assert.Equal(t, "add", payloads[0].Type)
		assert.Equal(t, []string{"628222@c.us"}, payloads[0].RecipientIDs)
		assert.Equal(t, "628111@c.us", payloads[0].Author)

		event, ok := wweb.Classify(payloads[0])
		require.True(t, ok)
		assert.Equal(t, wweb.KindGroupNotification, event.Kind)
	})

	t.Run("self departure becomes leave", func(t *testing.T) {
		payloads := c.groupNotificationPayloads(&events.GroupInfo{
			JID:       groupJID,
			Sender:    &actor,
			Timestamp: time.Unix(1700000000, 0),
			Leave:     []types.JID{actor},
		})
		require.Len(t, payloads, 1)
		assert.Equal(t, "leave", payloads[0].Type)
	})

	t.Run("removal by someone else becomes remove", func(t *testing.T) {
		payloads := c.groupNotificationPayloads(&events.GroupInfo{
			JID:       groupJID,
			Sender:    &actor,
			Timestamp: time.Unix(1700000000, 0),
			Leave:     []types.JID{other},
		})
		require.Len(t, payloads, 1)
		assert.Equal(t, "remove", payloads[0].Type)
	})

	t.Run("subject change classifies with empty recipients", func(t *testing.T) {
		payloads := c.groupNotificationPayloads(&events.GroupInfo{
			JID:       groupJID,
			Sender:    &actor,
			Timestamp: time.Unix(1700000000, 0),
			Name:      &types.GroupName{Name: "new subject"},
		})
		require.Len(t, payloads, 1)
		assert.Equal(t, "subject", payloads[0].Type)
		assert.Equal(t, "new subject", payloads[0].Body)
		require.NotNil(t, payloads[0].RecipientIDs)
		assert.Empty(t, payloads[0].RecipientIDs)
	})

	t.Run("no reportable change yields nothing", func(t *testing.T) {
		payloads := c.groupNotificationPayloads(&events.GroupInfo{
			JID:       groupJID,
			Timestamp: time.Unix(1700000000, 0),
		})
		assert.Empty(t, payloads)
	})
}

func TestDeletedChatPayload(t *testing.T) {
	c := newTestClient()
	payload := c.deletedChatPayload(&events.DeleteChat{
		JID:       types.NewJID("120363000000000001", types.GroupServer),
		Timestamp: time.Unix(1700000000, 0),
	})
	require.NotNil(t, payload.Archived)
	assert.False(t, *payload.Archived)
	assert.True(t, payload.IsGroup)
	assert.Equal(t, "120363000000000001@g.us", payload.ID.Remote)

	event, ok := wweb.Classify(payload)
	require.True(t, ok)
	assert.Equal(t, wweb.KindChat, event.Kind)
}
