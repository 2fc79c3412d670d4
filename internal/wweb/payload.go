package wweb

// Payload is the loose superset shape in which raw client events enter the
// adapter. The three known shapes are told apart by attribute presence, not
// by an explicit discriminant: RawData marks a message, RecipientIDs marks a
// group notification, Archived marks a chat. Classify performs those probes
// once at the boundary and hands downstream code an explicit tagged union.
type Payload struct {
	ID           MessageID      `json:"id"`
	Timestamp    int64          `json:"timestamp"`
	Author       string         `json:"author,omitempty"`
	From         string         `json:"from,omitempty"`
	To           string         `json:"to,omitempty"`
	Body         string         `json:"body,omitempty"`
	Type         string         `json:"type,omitempty"`
	HasQuotedMsg bool           `json:"hasQuotedMsg,omitempty"`
	MediaKey     string         `json:"mediaKey,omitempty"`
	Location     *Location      `json:"location,omitempty"`
	Name         string         `json:"name,omitempty"`
	IsGroup      bool           `json:"isGroup,omitempty"`
	RawData      map[string]any `json:"rawData,omitempty"`
	RecipientIDs []string       `json:"recipientIds,omitempty"`
	Archived     *bool          `json:"archived,omitempty"`
}

type Kind int

const (
	KindNone Kind = iota
	KindMessage
	KindGroupNotification
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindGroupNotification:
		return "GroupNotification"
	case KindChat:
		return "chat"
	default:
		return "none"
	}
}

// Event is the classified form of a Payload. Exactly one of the three
// entity fields is set, matching Kind.
type Event struct {
	Kind         Kind
	Message      *RawMessage
	Notification *RawGroupNotification
	Chat         *RawChat
}

// Classify probes a payload's attribute presence and produces the matching
// tagged event. Payloads matching none of the known shapes classify to
// nothing; that is a defined empty result, not an error.
func Classify(p *Payload) (*Event, bool) {
	if p == nil {
		return nil, false
	}
	switch {
	case p.RawData != nil:
		return &Event{
			Kind: KindMessage,
			Message: &RawMessage{
				ID:           p.ID,
				Author:       p.Author,
				From:         p.From,
				To:           p.To,
				Body:         p.Body,
				Type:         MessageType(p.Type),
				Timestamp:    p.Timestamp,
				HasQuotedMsg: p.HasQuotedMsg,
				MediaKey:     p.MediaKey,
				Location:     p.Location,
				RawData:      p.RawData,
			},
		}, true
	case p.RecipientIDs != nil:
		return &Event{
			Kind: KindGroupNotification,
			Notification: &RawGroupNotification{
				ID:           p.ID,
				Author:       p.Author,
				Type:         GroupNotificationType(p.Type),
				RecipientIDs: p.RecipientIDs,
				Timestamp:    p.Timestamp,
				Body:         p.Body,
			},
		}, true
	case p.Archived != nil:
		return &Event{
			Kind: KindChat,
			Chat: &RawChat{
				ID:        p.ID,
				Name:      p.Name,
				IsGroup:   p.IsGroup,
				Archived:  p.Archived,
				Timestamp: p.Timestamp,
			},
		}, true
	default:
		return nil, false
	}
}
