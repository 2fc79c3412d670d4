// Package adapter is the translation core: inbound raw payloads become
// Universal sessions, outbound element trees become WhatsApp send calls.
package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arkbridge/adapter-whatsapp-web/internal/bot"
	"github.com/arkbridge/adapter-whatsapp-web/internal/element"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// maxQuoteDepth bounds quoted-message recursion. Quoted messages are not
// expected to carry further quotes, but the chain is structurally unbounded
// on the wire, so resolution stops here.
const maxQuoteDepth = 16

// DecodeMessageUser returns the author of a message-shaped payload: the
// group author when present, otherwise the sender, named by the payload's
// notify name.
func DecodeMessageUser(msg *wweb.RawMessage) *universal.User {
	id := msg.Author
	if id == "" {
		id = msg.From
	}
	return &universal.User{ID: id, Name: msg.NotifyName()}
}

// DecodeNotificationUsers resolves every affected recipient of a group
// notification into a user. Any failed contact lookup fails the decode as a
// whole.
func DecodeNotificationUsers(ctx context.Context, client wweb.Client, n *wweb.RawGroupNotification) ([]*universal.User, error) {
	users := make([]*universal.User, 0, len(n.RecipientIDs))
	for _, recipientID := range n.RecipientIDs {
		contact, err := client.GetContactByID(ctx, recipientID)
		if err != nil {
			return nil, fmt.Errorf("resolve recipient %s: %w", recipientID, err)
		}
		users = append(users, &universal.User{ID: contact.ID, Name: contact.Name})
	}
	return users, nil
}

// DecodeGuild resolves the payload's parent chat and returns it as a guild.
// The guild id is the id sub-field of the payload identity.
func DecodeGuild(ctx context.Context, client wweb.Client, id wweb.MessageID) (*universal.Guild, error) {
	chat, err := client.GetChatByID(ctx, id.Remote)
	if err != nil {
		return nil, fmt.Errorf("resolve chat %s: %w", id.Remote, err)
	}
	return &universal.Guild{ID: id.ID, Name: chat.Name}, nil
}

// DecodeMessageChannel types the channel of a message: direct iff the
// message has no group author.
func DecodeMessageChannel(msg *wweb.RawMessage) *universal.Channel {
	channelType := universal.ChannelTypeDirect
	if msg.Author != "" {
		channelType = universal.ChannelTypeText
	}
	return &universal.Channel{
		ID:   msg.ID.Remote,
		Type: channelType,
		Name: msg.NotifyName(),
	}
}

// DecodeNotificationChannel returns the group channel a notification belongs
// to, named after its parent chat.
func DecodeNotificationChannel(ctx context.Context, client wweb.Client, n *wweb.RawGroupNotification) (*universal.Channel, error) {
	chat, err := client.GetChatByID(ctx, n.ID.Remote)
	if err != nil {
		return nil, fmt.Errorf("resolve chat %s: %w", n.ID.Remote, err)
	}
	return &universal.Channel{
		ID:   n.ID.Remote,
		Type: universal.ChannelTypeText,
		Name: chat.Name,
	}, nil
}

// DecodeChatChannel returns a chat-shaped payload as its own channel.
func DecodeChatChannel(chat *wweb.RawChat) *universal.Channel {
	return &universal.Channel{
		ID:   chat.ID.Remote,
		Type: universal.ChannelTypeText,
		Name: chat.Name,
	}
}

// DecodeMessage turns a message-shaped payload into a Universal message,
// downloading media and resolving one level of quoted message as needed.
// Enrichment failures fail the decode as a whole.
func DecodeMessage(ctx context.Context, client wweb.Client, msg *wweb.RawMessage) (*universal.Message, error) {
	return decodeMessage(ctx, client, msg, 0)
}

func decodeMessage(ctx context.Context, client wweb.Client, msg *wweb.RawMessage, depth int) (*universal.Message, error) {
	result := &universal.Message{
		ID:   msg.ID.ID,
		User: DecodeMessageUser(msg),
	}

	if msg.HasQuotedMsg && depth < maxQuoteDepth {
		quoted, err := client.QuotedMessage(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("resolve quoted message: %w", err)
		}
		if quoted != nil {
			quote, err := decodeMessage(ctx, client, quoted, depth+1)
			if err != nil {
				return nil, err
			}
			result.Quote = quote
		}
	}

	switch msg.Type {
	case wweb.MessageTypeText:
		result.Elements = []*element.Element{element.Text(msg.Body)}

	case wweb.MessageTypeVideo, wweb.MessageTypeAudio, wweb.MessageTypeImage, wweb.MessageTypeDocument:
		media, err := client.DownloadMedia(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("download media: %w", err)
		}
		var elements []*element.Element
		if msg.Body != "" {
			elements = append(elements, element.Text(msg.Body))
		}
		elements = append(elements, element.Media(mediaElementType(msg.Type), media.Data, media.MIMEType))
		result.Elements = elements

	case wweb.MessageTypeSticker:
		media, err := client.DownloadMedia(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("download sticker: %w", err)
		}
		result.Elements = []*element.Element{
			element.Face(msg.MediaKey, bot.Platform, element.Image(media.Data, media.MIMEType)),
		}

	case wweb.MessageTypeLocation:
		if msg.Location != nil {
			result.Elements = []*element.Element{
				element.Location(
					strconv.FormatFloat(msg.Location.Latitude, 'f', -1, 64),
					strconv.FormatFloat(msg.Location.Longitude, 'f', -1, 64),
				),
			}
		}

	default:
		// unknown content types decode to empty content, not an error
	}

	result.Content = element.Join(result.Elements)
	return result, nil
}

func mediaElementType(t wweb.MessageType) string {
	switch t {
	case wweb.MessageTypeImage:
		return element.TypeImage
	case wweb.MessageTypeAudio:
		return element.TypeAudio
	case wweb.MessageTypeVideo:
		return element.TypeVideo
	default:
		return element.TypeFile
	}
}
