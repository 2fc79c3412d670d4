package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkbridge/adapter-whatsapp-web/internal/element"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

func directMessage(body string) *wweb.RawMessage {
	return &wweb.RawMessage{
		ID:        wweb.MessageID{Remote: "888@c.us", ID: "m1", Serialized: "false_888@c.us_m1"},
		From:      "888@c.us",
		Body:      body,
		Type:      wweb.MessageTypeText,
		Timestamp: 1700000000,
		RawData:   map[string]any{"notifyName": "alice"},
	}
}

func groupMessage(body string) *wweb.RawMessage {
	msg := directMessage(body)
	msg.ID.Remote = "999@g.us"
	msg.From = "999@g.us"
	msg.Author = "888@c.us"
	return msg
}

func TestDecodeMessageUser(t *testing.T) {
	t.Run("direct message user is the sender", func(t *testing.T) {
		user := DecodeMessageUser(directMessage("hi"))
		assert.Equal(t, "888@c.us", user.ID)
		assert.Equal(t, "alice", user.Name)
	})

	t.Run("group message user is the author", func(t *testing.T) {
		user := DecodeMessageUser(groupMessage("hi"))
		assert.Equal(t, "888@c.us", user.ID)
	})
}

func TestDecodeMessageChannel(t *testing.T) {
	t.Run("no author means direct", func(t *testing.T) {
		channel := DecodeMessageChannel(directMessage("hi"))
		assert.Equal(t, universal.ChannelTypeDirect, channel.Type)
		assert.Equal(t, "888@c.us", channel.ID)
	})

	t.Run("author present means group text channel", func(t *testing.T) {
		channel := DecodeMessageChannel(groupMessage("hi"))
		assert.Equal(t, universal.ChannelTypeText, channel.Type)
		assert.Equal(t, "999@g.us", channel.ID)
	})
}

func TestDecodeMessage(t *testing.T) {
	t.Run("text message decodes to a text element", func(t *testing.T) {
		client := newFakeClient()
		message, err := DecodeMessage(context.Background(), client, directMessage("hello"))
		require.NoError(t, err)
		assert.Equal(t, "m1", message.ID)
		assert.Equal(t, "hello", message.Content)
		require.Len(t, message.Elements, 1)
		assert.Equal(t, element.TypeText, message.Elements[0].Type)
	})

	t.Run("image with body decodes to text plus media", func(t *testing.T) {
		client := newFakeClient()
		client.media["m1"] = &wweb.Media{Data: []byte("png"), MIMEType: "image/png"}
		msg := directMessage("caption")
		msg.Type = wweb.MessageTypeImage

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		require.Len(t, message.Elements, 2)
		assert.Equal(t, element.TypeText, message.Elements[0].Type)
		assert.Equal(t, element.TypeImage, message.Elements[1].Type)
		assert.Equal(t, []byte("png"), message.Elements[1].Data)
	})

	t.Run("document decodes to a file element", func(t *testing.T) {
		client := newFakeClient()
		client.media["m1"] = &wweb.Media{Data: []byte("pdf"), MIMEType: "application/pdf"}
		msg := directMessage("")
		msg.Type = wweb.MessageTypeDocument

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		require.Len(t, message.Elements, 1)
		assert.Equal(t, element.TypeFile, message.Elements[0].Type)
	})

	t.Run("sticker decodes to a platform face", func(t *testing.T) {
		client := newFakeClient()
		client.media["m1"] = &wweb.Media{Data: []byte("webp"), MIMEType: "image/webp"}
		msg := directMessage("")
		msg.Type = wweb.MessageTypeSticker
		msg.MediaKey = "key-1"

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		require.Len(t, message.Elements, 1)
		face := message.Elements[0]
		assert.Equal(t, element.TypeFace, face.Type)
		assert.Equal(t, "key-1", face.Attr("id"))
		assert.Equal(t, "whatsapp-web", face.Attr("platform"))
		require.Len(t, face.Children, 1)
		assert.Equal(t, element.TypeImage, face.Children[0].Type)
	})

	t.Run("location decodes to a location element", func(t *testing.T) {
		client := newFakeClient()
		msg := directMessage("")
		msg.Type = wweb.MessageTypeLocation
		msg.Location = &wweb.Location{Latitude: 1.5, Longitude: -2.25}

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		require.Len(t, message.Elements, 1)
		assert.Equal(t, "1.5", message.Elements[0].Attr("latitude"))
		assert.Equal(t, "-2.25", message.Elements[0].Attr("longitude"))
	})

	t.Run("unknown type decodes to empty content", func(t *testing.T) {
		client := newFakeClient()
		msg := directMessage("ignored")
		msg.Type = "ciphertext"

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		assert.Empty(t, message.Elements)
		assert.Empty(t, message.Content)
	})

	t.Run("quote chain resolution is depth bounded", func(t *testing.T) {
		client := newFakeClient()
		client.quoted = func(msg *wweb.RawMessage) *wweb.RawMessage {
			quoted := directMessage("deeper")
			quoted.HasQuotedMsg = true
			return quoted
		}
		msg := directMessage("top")
		msg.HasQuotedMsg = true

		message, err := DecodeMessage(context.Background(), client, msg)
		require.NoError(t, err)
		assert.Equal(t, maxQuoteDepth, client.quotedCalls)

		depth := 0
		for quote := message.Quote; quote != nil; quote = quote.Quote {
			depth++
		}
		assert.Equal(t, maxQuoteDepth, depth)
	})
}
