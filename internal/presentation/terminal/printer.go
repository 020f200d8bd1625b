// Package terminal prints rendered pages and page listings to a terminal.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"

	domainpages "lethe/app/internal/domain/pages"
	"lethe/app/internal/domain/styled"
)

var (
	descriptiveColor = lipgloss.Color("3")
	labelColor       = lipgloss.Color("2")
	codeColor        = lipgloss.Color("1")
)

// Options configures a Printer.
type Options struct {
	// NoColor writes span text without any escape sequences.
	NoColor bool
}

// Printer writes styled text to an io.Writer.
type Printer struct {
	out     io.Writer
	noColor bool
	styles  map[styled.Style]lipgloss.Style
}

// NewPrinter constructs a Printer whose colour support is detected from out.
func NewPrinter(out io.Writer, opts Options) *Printer {
	renderer := lipgloss.NewRenderer(out)
	base := renderer.NewStyle().Bold(true)

	return &Printer{
		out:     out,
		noColor: opts.NoColor,
		styles: map[styled.Style]lipgloss.Style{
			styled.Descriptive: base.Foreground(descriptiveColor),
			styled.Label:       base.Foreground(labelColor),
			styled.Code:        base.Foreground(codeColor),
		},
	}
}

// Print writes every span of text, ending with a line break when the text does not.
func (p *Printer) Print(text *styled.Text) error {
	var b strings.Builder
	for _, span := range text.Spans() {
		b.WriteString(p.paint(span))
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}

	if _, err := io.WriteString(p.out, b.String()); err != nil {
		return eris.Wrap(err, "writing page")
	}
	return nil
}

// PrintIdentifiers writes one "name (platform)" line per page.
func (p *Printer) PrintIdentifiers(pages []domainpages.PageIdentifier) error {
	var b strings.Builder
	for _, page := range pages {
		name := page.Name
		if !p.noColor {
			name = p.styles[styled.Code].Render(name)
		}
		fmt.Fprintf(&b, "%s (%s)\n", name, page.Platform)
	}

	if _, err := io.WriteString(p.out, b.String()); err != nil {
		return eris.Wrap(err, "writing page list")
	}
	return nil
}

// Println writes a plain line such as a count or status message.
func (p *Printer) Println(line string) error {
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return eris.Wrap(err, "writing line")
	}
	return nil
}

func (p *Printer) paint(span styled.Span) string {
	style, ok := p.styles[span.Style]
	if p.noColor || !ok {
		return span.Text
	}
	return style.Render(span.Text)
}
