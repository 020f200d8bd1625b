package styled

import "strings"

// Style tags a span of rendered text for the display layer.
type Style int

const (
	// Plain marks unstyled separators such as spaces and line breaks.
	Plain Style = iota
	// Descriptive is used for explanatory prose.
	Descriptive
	// Label is used for section labels and placeholder names.
	Label
	// Code is used for command text.
	Code
)

// String returns the lower-case tag name of the style.
func (s Style) String() string {
	switch s {
	case Descriptive:
		return "descriptive"
	case Label:
		return "label"
	case Code:
		return "code"
	default:
		return "plain"
	}
}

// Span is a contiguous run of text carrying a single style.
type Span struct {
	Text  string `json:"text"`
	Style Style  `json:"-"`
}

// Text is an ordered sequence of styled spans.
type Text struct {
	spans []Span
}

// Append adds text with the given style. Empty strings are ignored.
func (t *Text) Append(text string, style Style) {
	if text == "" {
		return
	}
	t.spans = append(t.spans, Span{Text: text, Style: style})
}

// AppendLine adds text with the given style followed by an unstyled line break.
func (t *Text) AppendLine(text string, style Style) {
	t.Append(text, style)
	t.Append("\n", Plain)
}

// AppendText copies every span of other onto the end of t.
func (t *Text) AppendText(other *Text) {
	if other == nil {
		return
	}
	t.spans = append(t.spans, other.spans...)
}

// Spans returns a copy of the spans in order.
func (t *Text) Spans() []Span {
	if t == nil {
		return nil
	}
	out := make([]Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Len returns the number of spans.
func (t *Text) Len() int {
	if t == nil {
		return 0
	}
	return len(t.spans)
}

// String concatenates the span texts without styling.
func (t *Text) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, span := range t.spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
