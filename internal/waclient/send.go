package waclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
	"github.com/sunshineplan/imgconv"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// SendMessage delivers one physical send. All sends pass through the rate
// limiter so bursts of rendered elements do not trip server-side flood
// detection.
func (c *Client) SendMessage(ctx context.Context, chatID string, content wweb.SendContent, opts *wweb.SendOptions) (string, error) {
	return c.send(ctx, chatID, content, opts, nil)
}

// Reply sends content quoting an existing message.
func (c *Client) Reply(ctx context.Context, quoted *wweb.RawMessage, content wweb.SendContent, chatID string, opts *wweb.SendOptions) (string, error) {
	if quoted == nil {
		return "", errors.New("reply requires a message to quote")
	}
	return c.send(ctx, chatID, content, opts, quoted)
}

func (c *Client) send(ctx context.Context, chatID string, content wweb.SendContent, opts *wweb.SendOptions, quoted *wweb.RawMessage) (string, error) {
	if !c.wa.IsConnected() {
		return "", ErrNotConnected
	}
	if content.Empty() {
		return "", errors.New("nothing to send")
	}

	remoteJID, err := parseSerializedID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %s: %w", chatID, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if opts == nil {
		opts = &wweb.SendOptions{}
	}
	contextInfo := c.buildContextInfo(opts, quoted)

	var msg *waE2E.Message
	if content.Media != nil {
		msg, err = c.buildMediaMessage(ctx, content.Media, opts.Caption, contextInfo)
	} else {
		msg = buildTextMessage(content.Text, contextInfo)
	}
	if err != nil {
		return "", err
	}

	extra := whatsmeow.SendRequestExtra{ID: c.wa.GenerateMessageID()}
	if _, err := c.wa.SendMessage(ctx, remoteJID, msg, extra); err != nil {
		return "", fmt.Errorf("send to %s: %w", maskIDForLog(chatID), err)
	}
	return serializeMessageID(true, chatID, string(extra.ID)), nil
}

// React adds an emoji reaction to an existing message. The reaction must be
// a single emoji grapheme.
func (c *Client) React(ctx context.Context, chatID string, messageID string, emoji string) error {
	if !c.wa.IsConnected() {
		return ErrNotConnected
	}
	if !gomoji.ContainsEmoji(emoji) && uniseg.GraphemeClusterCount(emoji) != 1 {
		return errors.New("reaction must be a single emoji character")
	}
	remoteJID, err := parseSerializedID(chatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %s: %w", chatID, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := &waE2E.Message{
		ReactionMessage: &waE2E.ReactionMessage{
			Key: &waCommon.MessageKey{
				FromMe:    proto.Bool(false),
				ID:        proto.String(messageID),
				RemoteJID: proto.String(remoteJID.String()),
			},
			Text:              proto.String(emoji),
			SenderTimestampMS: proto.Int64(time.Now().UnixMilli()),
		},
	}
	_, err = c.wa.SendMessage(ctx, remoteJID, msg)
	return err
}

// buildContextInfo assembles mention and quote context. A nil return means
// the message needs no extended context and may go out as plain text.
func (c *Client) buildContextInfo(opts *wweb.SendOptions, quoted *wweb.RawMessage) *waE2E.ContextInfo {
	var info *waE2E.ContextInfo

	if len(opts.Mentions) > 0 {
		info = &waE2E.ContextInfo{}
		for _, mention := range opts.Mentions {
			jid, err := parseSerializedID(mention)
			if err != nil {
				c.logger.WithField("mention", mention).Warn("Skipping unparseable mention id")
				continue
			}
			info.MentionedJID = append(info.MentionedJID, jid.String())
		}
	}

	if quoted != nil {
		if info == nil {
			info = &waE2E.ContextInfo{}
		}
		info.StanzaID = proto.String(quoted.ID.ID)
		participantID := quoted.Author
		if participantID == "" {
			participantID = quoted.From
		}
		if jid, err := parseSerializedID(participantID); err == nil {
			info.Participant = proto.String(jid.ToNonAD().String())
		}
		info.QuotedMessage = &waE2E.Message{Conversation: proto.String(quoted.Body)}
	}
	return info
}

func buildTextMessage(text string, contextInfo *waE2E.ContextInfo) *waE2E.Message {
	if contextInfo == nil {
		return &waE2E.Message{Conversation: proto.String(text)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: contextInfo,
		},
	}
}

func (c *Client) buildMediaMessage(ctx context.Context, media *wweb.Media, caption string, contextInfo *waE2E.ContextInfo) (*waE2E.Message, error) {
	switch {
	case strings.HasPrefix(media.MIMEType, "image/"):
		return c.buildImageMessage(ctx, media, caption, contextInfo)
	case strings.HasPrefix(media.MIMEType, "video/"):
		return c.buildVideoMessage(ctx, media, caption, contextInfo)
	case strings.HasPrefix(media.MIMEType, "audio/"):
		return c.buildAudioMessage(ctx, media, contextInfo)
	default:
		return c.buildDocumentMessage(ctx, media, caption, contextInfo)
	}
}

func (c *Client) buildImageMessage(ctx context.Context, media *wweb.Media, caption string, contextInfo *waE2E.ContextInfo) (*waE2E.Message, error) {
	uploaded, err := c.wa.Upload(ctx, media.Data, whatsmeow.MediaImage)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	msg := &waE2E.ImageMessage{
		URL:           proto.String(uploaded.URL),
		DirectPath:    proto.String(uploaded.DirectPath),
		Mimetype:      proto.String(media.MIMEType),
		Caption:       proto.String(caption),
		FileLength:    proto.Uint64(uploaded.FileLength),
		FileSHA256:    uploaded.FileSHA256,
		FileEncSHA256: uploaded.FileEncSHA256,
		MediaKey:      uploaded.MediaKey,
		ContextInfo:   contextInfo,
	}
	// thumbnail generation is best effort; an undecodable image still sends
	if thumb, err := imageThumbnail(media.Data); err != nil {
		c.logger.Warn(fmt.Sprintf("Failed generating image thumbnail: %s", err))
	} else {
		msg.JPEGThumbnail = thumb
		if thumbUploaded, err := c.wa.Upload(ctx, thumb, whatsmeow.MediaLinkThumbnail); err == nil {
			msg.ThumbnailDirectPath = &thumbUploaded.DirectPath
			msg.ThumbnailSHA256 = thumbUploaded.FileSHA256
			msg.ThumbnailEncSHA256 = thumbUploaded.FileEncSHA256
		}
	}
	return &waE2E.Message{ImageMessage: msg}, nil
}

func imageThumbnail(data []byte) ([]byte, error) {
	decoded, err := imgconv.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	encoded := new(bytes.Buffer)
	err = imgconv.Write(encoded,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func (c *Client) buildVideoMessage(ctx context.Context, media *wweb.Media, caption string, contextInfo *waE2E.ContextInfo) (*waE2E.Message, error) {
	uploaded, err := c.wa.Upload(ctx, media.Data, whatsmeow.MediaVideo)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	return &waE2E.Message{
		VideoMessage: &waE2E.VideoMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(media.MIMEType),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
			ContextInfo:   contextInfo,
		},
	}, nil
}

func (c *Client) buildAudioMessage(ctx context.Context, media *wweb.Media, contextInfo *waE2E.ContextInfo) (*waE2E.Message, error) {
	uploaded, err := c.wa.Upload(ctx, media.Data, whatsmeow.MediaAudio)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	return &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(media.MIMEType),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
			ContextInfo:   contextInfo,
		},
	}, nil
}

func (c *Client) buildDocumentMessage(ctx context.Context, media *wweb.Media, caption string, contextInfo *waE2E.ContextInfo) (*waE2E.Message, error) {
	uploaded, err := c.wa.Upload(ctx, media.Data, whatsmeow.MediaDocument)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	filename := media.Filename
	if filename == "" {
		filename = "file"
	}
	return &waE2E.Message{
		DocumentMessage: &waE2E.DocumentMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			Mimetype:      proto.String(media.MIMEType),
			FileName:      proto.String(filename),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(uploaded.FileLength),
			FileSHA256:    uploaded.FileSHA256,
			FileEncSHA256: uploaded.FileEncSHA256,
			MediaKey:      uploaded.MediaKey,
			ContextInfo:   contextInfo,
		},
	}, nil
}
