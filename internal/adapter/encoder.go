package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arkbridge/adapter-whatsapp-web/internal/bot"
	"github.com/arkbridge/adapter-whatsapp-web/internal/element"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

// supportedMedia is the outbound MIME allow-list. Media resolving to any
// other type is dropped with a warning instead of failing the send.
var supportedMedia = map[string]bool{
	"audio/aac":  true,
	"audio/mp4":  true,
	"audio/mpeg": true,
	"audio/amr":  true,
	"audio/ogg":  true,
	"audio/opus": true,
	"application/vnd.ms-powerpoint": true,
	"application/msword":            true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/pdf":          true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"video/mp4":                true,
	"video/3gpp":               true,
}

// Encoder walks one outbound element tree and turns it into physical sends.
// One encoder belongs to exactly one send invocation: its buffers are not
// shared and not safe for concurrent use.
//
// A physical send carries at most one non-text payload. Text accumulated
// while media is pending becomes the caption of that media. A pending quote
// id applies to the next flush and is cleared at message boundaries.
type Encoder struct {
	bot       *bot.Bot
	channelID string
	fetch     Fetcher
	logger    *logrus.Entry

	textBuffer string
	content    *wweb.Media
	options    wweb.SendOptions
	quoteID    string
	results    []*universal.Message
}

func NewEncoder(b *bot.Bot, channelID string, fetch Fetcher) *Encoder {
	if fetch == nil {
		fetch = NewHTTPFetcherFromEnv()
	}
	return &Encoder{
		bot:       b,
		channelID: channelID,
		fetch:     fetch,
		logger:    log.Chat("encoder", channelID),
	}
}

// SendElements encodes and sends one element tree on a channel, returning
// the message records of every flush. Each invocation owns a fresh encoder.
func SendElements(ctx context.Context, b *bot.Bot, channelID string, elements []*element.Element, fetch Fetcher) ([]*universal.Message, error) {
	encoder := NewEncoder(b, channelID, fetch)
	if err := encoder.Render(ctx, elements); err != nil {
		return nil, err
	}
	if err := encoder.Flush(ctx); err != nil {
		return nil, err
	}
	return encoder.results, nil
}

// Render visits a sequence of sibling nodes in document order. Later
// siblings are not visited until the current node's async work completes.
func (e *Encoder) Render(ctx context.Context, elements []*element.Element) error {
	for _, el := range elements {
		if err := e.Visit(ctx, el); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) Visit(ctx context.Context, el *element.Element) error {
	if el == nil {
		return nil
	}
	e.logger.WithField("type", el.Type).Debug("Visiting element")

	switch el.Type {
	case element.TypeText:
		e.textBuffer += el.Attr("content")

	case element.TypeImage, element.TypeAudio, element.TypeVideo:
		if el.Attr("src") == "" && el.Attr("url") == "" {
			return nil
		}
		media, err := e.createMedia(ctx, el)
		if err != nil {
			return err
		}
		e.content = media

	case element.TypeFile:
		media, err := e.createMedia(ctx, el)
		if err != nil {
			return err
		}
		e.content = media

	case element.TypeFace:
		if platform := el.Attr("platform"); platform != "" && platform != bot.Platform {
			// foreign-platform face: degrade to its underlying representation
			return e.Render(ctx, el.Children)
		}
		media, err := e.createMedia(ctx, el)
		if err != nil {
			return err
		}
		e.content = media

	case element.TypeBreak:
		e.textBuffer += "\n"

	case element.TypeParagraph:
		if !strings.HasSuffix(e.textBuffer, "\n") {
			e.textBuffer += "\n"
		}
		if err := e.Render(ctx, el.Children); err != nil {
			return err
		}
		if !strings.HasSuffix(e.textBuffer, "\n") {
			e.textBuffer += "\n"
		}

	case element.TypeLink:
		if err := e.Render(ctx, el.Children); err != nil {
			return err
		}
		e.textBuffer += " (" + el.Attr("href") + ") "

	case element.TypeMention:
		if id := el.Attr("id"); id != "" {
			e.textBuffer += "@" + id
			e.options.Mentions = append(e.options.Mentions, id)
		}

	case element.TypeButtonGroup:
		return e.Render(ctx, el.Children)

	case element.TypeMessage:
		if err := e.Flush(ctx); err != nil {
			return err
		}
		if err := e.Render(ctx, el.Children); err != nil {
			return err
		}
		if err := e.Flush(ctx); err != nil {
			return err
		}
		e.quoteID = ""

	case element.TypeQuote:
		e.quoteID = el.Attr("id")

	default:
		// unknown container: unwrap and continue
		return e.Render(ctx, el.Children)
	}
	return nil
}

// Flush converts the accumulated state into one physical send. An empty
// buffer with no pending media is a no-op. A pending quote id routes the
// send through the quoted message's reply path; if the quoted message cannot
// be found in recent history the send is skipped entirely, with no plain
// fallback.
func (e *Encoder) Flush(ctx context.Context) error {
	content := wweb.SendContent{}
	if e.content == nil {
		content.Text = e.textBuffer
	} else {
		content.Media = e.content
		e.options.Caption = e.textBuffer
	}

	if content.Empty() {
		return nil
	}

	e.logger.WithField("has_media", content.Media != nil).Debug("Flushing send buffer")

	client := e.bot.Client()
	if e.quoteID != "" {
		e.options.QuotedMessageID = e.quoteID
		quote, err := e.quoteMessage(ctx, e.channelID, e.quoteID)
		if err != nil {
			return err
		}
		if quote != nil {
			if _, err := client.Reply(ctx, quote, content, e.channelID, &e.options); err != nil {
				return err
			}
		} else {
			e.logger.WithField("quote_id", e.quoteID).Warn("Quoted message not found in recent history, send skipped")
		}
	} else {
		if _, err := client.SendMessage(ctx, e.channelID, content, &e.options); err != nil {
			return err
		}
	}

	e.textBuffer = ""
	e.content = nil
	e.options = wweb.SendOptions{}

	echo := e.bot.Session()
	echo.Type = universal.EventMessage
	echo.MessageID = e.channelID
	echo.ChannelID = e.channelID
	echo.GuildID = e.channelID
	echo.IsDirect = strings.Contains(e.channelID, wweb.DirectChatSuffix)
	echo.Event.User = e.bot.User
	echo.Event.Message = &universal.Message{ID: e.channelID, User: e.bot.User}
	echo.Timestamp = time.Now().UnixMilli()
	e.bot.EmitSend(echo)
	e.results = append(e.results, echo.Event.Message)
	return nil
}

// quoteMessage resolves a quoted message by linear scan over the chat's
// recent history. The unbounded fetch mirrors the underlying client's
// fetch-limit policy and is a known performance concern on long chats.
func (e *Encoder) quoteMessage(ctx context.Context, channelID string, messageID string) (*wweb.RawMessage, error) {
	messages, err := e.bot.Client().FetchMessages(ctx, channelID, 0)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.ID.ID == messageID {
			return m, nil
		}
	}
	return nil, nil
}

// createMedia fetches a node's source and validates it against the MIME
// allow-list. Unsupported types return nil media with no error, which
// clears any pending content, matching last-write-wins semantics.
func (e *Encoder) createMedia(ctx context.Context, el *element.Element) (*wweb.Media, error) {
	src := el.Attr("src")
	if src == "" {
		src = el.Attr("url")
	}
	media, err := e.fetch.File(ctx, src)
	if err != nil {
		return nil, err
	}
	if !supportedMedia[media.MIMEType] {
		e.logger.Warn("Unsupported media type: " + media.MIMEType)
		return nil, nil
	}
	return media, nil
}
