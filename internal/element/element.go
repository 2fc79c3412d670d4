// Package element models rich message content as an ordered tree of typed
// nodes. Inbound decoding produces element trees from raw payloads; outbound
// sending walks a tree and turns it into one or more physical sends.
package element

import (
	"sort"
	"strings"
)

// Node types understood by the adapter. Unknown types are treated as plain
// containers and unwrapped during traversal.
const (
	TypeText        = "text"
	TypeImage       = "img"
	TypeAudio       = "audio"
	TypeVideo       = "video"
	TypeFile        = "file"
	TypeFace        = "face"
	TypeBreak       = "br"
	TypeParagraph   = "p"
	TypeLink        = "a"
	TypeMention     = "at"
	TypeButtonGroup = "button-group"
	TypeMessage     = "message"
	TypeQuote       = "quote"
	TypeLocation    = "whatsapp:location"
)

type Element struct {
	Type     string
	Attrs    map[string]string
	Data     []byte // inline media payload, not rendered
	Children []*Element
}

func (e *Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

func (e *Element) SetAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

// String renders one element in its canonical text form: text nodes render
// their content, everything else renders as a compact tag. Join concatenates
// a sequence with no separator, which is the flattened content string of a
// message.
func (e *Element) String() string {
	var sb strings.Builder
	e.render(&sb)
	return sb.String()
}

func (e *Element) render(sb *strings.Builder) {
	switch e.Type {
	case TypeText:
		sb.WriteString(e.Attr("content"))
		return
	case TypeBreak:
		sb.WriteString("\n")
		return
	}

	sb.WriteString("<")
	sb.WriteString(e.Type)
	for _, k := range sortedAttrKeys(e.Attrs) {
		if k == "content" {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(e.Attrs[k])
		sb.WriteString(`"`)
	}
	if len(e.Children) == 0 {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	for _, child := range e.Children {
		child.render(sb)
	}
	sb.WriteString("</")
	sb.WriteString(e.Type)
	sb.WriteString(">")
}

func sortedAttrKeys(attrs map[string]string) []string {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Join renders a sequence of elements with no separator.
func Join(elements []*Element) string {
	var sb strings.Builder
	for _, e := range elements {
		sb.WriteString(e.String())
	}
	return sb.String()
}

func New(typ string, attrs map[string]string, children ...*Element) *Element {
	return &Element{Type: typ, Attrs: attrs, Children: children}
}

func Text(content string) *Element {
	return New(TypeText, map[string]string{"content": content})
}

// Media builds a binary-payload node of the given type (img, audio, video,
// file) carrying the raw bytes and their MIME type.
func Media(typ string, data []byte, mimeType string) *Element {
	e := New(typ, map[string]string{"type": mimeType})
	e.Data = data
	return e
}

func Image(data []byte, mimeType string) *Element {
	return Media(TypeImage, data, mimeType)
}

func Face(id string, platform string, children ...*Element) *Element {
	return New(TypeFace, map[string]string{"id": id, "platform": platform}, children...)
}

func Location(latitude, longitude string) *Element {
	return New(TypeLocation, map[string]string{
		"latitude":  latitude,
		"longitude": longitude,
	})
}

func Break() *Element {
	return New(TypeBreak, nil)
}

func Paragraph(children ...*Element) *Element {
	return New(TypeParagraph, nil, children...)
}

func Link(href string, children ...*Element) *Element {
	return New(TypeLink, map[string]string{"href": href}, children...)
}

func Mention(id string) *Element {
	return New(TypeMention, map[string]string{"id": id})
}

func Message(children ...*Element) *Element {
	return New(TypeMessage, nil, children...)
}

func Quote(id string) *Element {
	return New(TypeQuote, map[string]string{"id": id})
}
