package waclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// messagePayload translates a live message event into the loose payload
// shape. Messages with no supported content translate to nil.
func (c *Client) messagePayload(e *events.Message) (*wweb.Payload, *events.Message) {
	msg := e.Message
	if msg == nil {
		return nil, nil
	}
	if eph := msg.GetEphemeralMessage(); eph != nil && eph.GetMessage() != nil {
		msg = eph.GetMessage()
	}
	if vo := msg.GetViewOnceMessage(); vo != nil && vo.GetMessage() != nil {
		msg = vo.GetMessage()
	}

	chat := serializeJID(e.Info.Chat)
	sender := serializeJID(e.Info.Sender.ToNonAD())

	payload := &wweb.Payload{
		ID: wweb.MessageID{
			FromMe:     e.Info.IsFromMe,
			Remote:     chat,
			ID:         e.Info.ID,
			Serialized: serializeMessageID(e.Info.IsFromMe, chat, e.Info.ID),
		},
		From:      chat,
		Timestamp: e.Info.Timestamp.Unix(),
		RawData:   map[string]any{"notifyName": e.Info.PushName},
	}
	if e.Info.IsGroup {
		payload.Author = sender
	}

	switch {
	case msg.GetConversation() != "":
		payload.Type = string(wweb.MessageTypeText)
		payload.Body = msg.GetConversation()

	case msg.GetExtendedTextMessage() != nil:
		ext := msg.GetExtendedTextMessage()
		payload.Type = string(wweb.MessageTypeText)
		payload.Body = ext.GetText()
		applyQuoteContext(payload, ext.GetContextInfo())

	case msg.GetImageMessage() != nil:
		img := msg.GetImageMessage()
		payload.Type = string(wweb.MessageTypeImage)
		payload.Body = img.GetCaption()
		applyQuoteContext(payload, img.GetContextInfo())

	case msg.GetVideoMessage() != nil:
		video := msg.GetVideoMessage()
		payload.Type = string(wweb.MessageTypeVideo)
		payload.Body = video.GetCaption()
		applyQuoteContext(payload, video.GetContextInfo())

	case msg.GetAudioMessage() != nil:
		payload.Type = string(wweb.MessageTypeAudio)
		applyQuoteContext(payload, msg.GetAudioMessage().GetContextInfo())

	case msg.GetDocumentMessage() != nil:
		doc := msg.GetDocumentMessage()
		payload.Type = string(wweb.MessageTypeDocument)
		payload.Body = doc.GetCaption()
		applyQuoteContext(payload, doc.GetContextInfo())

	case msg.GetStickerMessage() != nil:
		sticker := msg.GetStickerMessage()
		payload.Type = string(wweb.MessageTypeSticker)
		payload.MediaKey = base64.StdEncoding.EncodeToString(sticker.GetMediaKey())
		applyQuoteContext(payload, sticker.GetContextInfo())

	case msg.GetLocationMessage() != nil:
		loc := msg.GetLocationMessage()
		payload.Type = string(wweb.MessageTypeLocation)
		payload.Location = &wweb.Location{
			Latitude:  loc.GetDegreesLatitude(),
			Longitude: loc.GetDegreesLongitude(),
		}

	case msg.GetReactionMessage() != nil:
		reaction := msg.GetReactionMessage()
		payload.Type = string(wweb.MessageTypeReaction)
		payload.Body = reaction.GetText()
		payload.RawData["reactedMsgId"] = reaction.GetKey().GetID()

	default:
		c.logger.WithField("chat", maskIDForLog(chat)).Debug("Dropping message with unsupported content")
		return nil, nil
	}

	return payload, e
}

// applyQuoteContext copies quote metadata out of a message's context info so
// quote resolution still works after the original leaves the cache.
func applyQuoteContext(payload *wweb.Payload, info *waE2E.ContextInfo) {
	if info == nil || info.GetStanzaID() == "" {
		return
	}
	payload.HasQuotedMsg = true
	payload.RawData["quotedMsgId"] = info.GetStanzaID()
	if participant := info.GetParticipant(); participant != "" {
		if jid, err := types.ParseJID(participant); err == nil {
			payload.RawData["quotedParticipant"] = serializeJID(jid.ToNonAD())
		}
	}
	if quoted := info.GetQuotedMessage(); quoted != nil {
		payload.RawData["quotedBody"] = quotedBody(quoted)
	}
}

func quotedBody(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	default:
		return ""
	}
}

// groupNotificationPayloads fans a group metadata event out into one payload
// per participant change, matching the per-notification granularity the
// adapter core expects. A self-initiated departure becomes a leave, any
// other removal becomes a remove.
func (c *Client) groupNotificationPayloads(e *events.GroupInfo) []*wweb.Payload {
	chat := serializeJID(e.JID)
	timestamp := e.Timestamp.Unix()

	var author string
	if e.Sender != nil {
		author = serializeJID(e.Sender.ToNonAD())
	}

	newPayload := func(kind wweb.GroupNotificationType, recipients []string, body string) *wweb.Payload {
		id := uuid.NewString()
		return &wweb.Payload{
			ID: wweb.MessageID{
				Remote:     chat,
				ID:         id,
				Serialized: serializeMessageID(false, chat, id),
			},
			Author:       author,
			Type:         string(kind),
			RecipientIDs: recipients,
			Timestamp:    timestamp,
			Body:         body,
		}
	}

	var payloads []*wweb.Payload
	if len(e.Join) > 0 {
		payloads = append(payloads, newPayload(wweb.GroupNotificationAdd, serializeAll(e.Join), ""))
	}
	if len(e.Leave) > 0 {
		kind := wweb.GroupNotificationRemove
		if len(e.Leave) == 1 && author == serializeJID(e.Leave[0].ToNonAD()) {
			kind = wweb.GroupNotificationLeave
		}
		payloads = append(payloads, newPayload(kind, serializeAll(e.Leave), ""))
	}
	if e.Name != nil {
		// subject changes carry no recipients; the empty non-nil slice keeps
		// the payload classifiable as a group notification
		payloads = append(payloads, newPayload(wweb.GroupNotificationSubject, []string{}, e.Name.Name))
	}
	return payloads
}

func serializeAll(jids []types.JID) []string {
	out := make([]string, len(jids))
	for i, jid := range jids {
		out[i] = serializeJID(jid.ToNonAD())
	}
	return out
}

func (c *Client) deletedChatPayload(e *events.DeleteChat) *wweb.Payload {
	chat := serializeJID(e.JID)
	archived := false
	return &wweb.Payload{
		ID: wweb.MessageID{
			Remote:     chat,
			Serialized: chat,
		},
		IsGroup:   e.JID.Server == types.GroupServer,
		Archived:  &archived,
		Timestamp: e.Timestamp.Unix(),
	}
}

func serializeMessageID(fromMe bool, chat, id string) string {
	return strconv.FormatBool(fromMe) + "_" + chat + "_" + id
}

// DownloadMedia decrypts the media attached to a cached message. Messages
// that have already fallen out of the cache cannot be downloaded.
func (c *Client) DownloadMedia(ctx context.Context, msg *wweb.RawMessage) (*wweb.Media, error) {
	_, evt := c.cache.get(msg.ID.Remote, msg.ID.ID)
	if evt == nil {
		return nil, fmt.Errorf("message %s is no longer available for download", msg.ID.ID)
	}

	raw := evt.Message
	if eph := raw.GetEphemeralMessage(); eph != nil && eph.GetMessage() != nil {
		raw = eph.GetMessage()
	}
	if vo := raw.GetViewOnceMessage(); vo != nil && vo.GetMessage() != nil {
		raw = vo.GetMessage()
	}

	media := &wweb.Media{}
	var part whatsmeow.DownloadableMessage
	switch {
	case raw.GetImageMessage() != nil:
		img := raw.GetImageMessage()
		part, media.MIMEType = img, img.GetMimetype()
	case raw.GetVideoMessage() != nil:
		video := raw.GetVideoMessage()
		part, media.MIMEType = video, video.GetMimetype()
	case raw.GetAudioMessage() != nil:
		audio := raw.GetAudioMessage()
		part, media.MIMEType = audio, audio.GetMimetype()
	case raw.GetStickerMessage() != nil:
		sticker := raw.GetStickerMessage()
		part, media.MIMEType = sticker, sticker.GetMimetype()
	case raw.GetDocumentMessage() != nil:
		doc := raw.GetDocumentMessage()
		part, media.MIMEType = doc, doc.GetMimetype()
		media.Filename = doc.GetFileName()
	default:
		return nil, fmt.Errorf("message %s carries no downloadable media", msg.ID.ID)
	}

	data, err := c.wa.Download(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("download media for message %s: %w", msg.ID.ID, err)
	}
	media.Data = data
	return media, nil
}
