// Package markdown turns page markdown into styled spans.
package markdown

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	domainpages "lethe/app/internal/domain/pages"
	"lethe/app/internal/domain/styled"
)

// Renderer parses page markdown with goldmark and walks the result into styled text.
type Renderer struct {
	parser parser.Parser
	logger *logrus.Logger
}

var _ domainpages.Renderer = (*Renderer)(nil)

// NewRenderer constructs a renderer. A nil logger disables warnings.
func NewRenderer(logger *logrus.Logger) *Renderer {
	return &Renderer{
		parser: goldmark.New().Parser(),
		logger: logger,
	}
}

// Render converts markdown into styled text. Any failure is logged as a warning and reported
// as a missing result; it never reaches the caller as an error.
func (r *Renderer) Render(ctx context.Context, markdown string) (*styled.Text, bool) {
	out, err := r.render(ctx, markdown)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"component": "markdown.render",
				"bytes":     len(markdown),
			}).WithField("error", err.Error()).Warn("could not render markdown page")
		}
		return nil, false
	}
	return out, true
}

func (r *Renderer) render(ctx context.Context, markdown string) (out *styled.Text, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			out = nil
			err = eris.New(fmt.Sprintf("rendering panicked: %v", recovered))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "rendering cancelled")
	}

	source := []byte(markdown)
	tree := convert(r.parser.Parse(text.NewReader(source)), source)

	v := &visitor{out: &styled.Text{}}
	if err := v.visit(tree); err != nil {
		return nil, eris.Wrap(err, "visiting markdown")
	}
	return v.out, nil
}
