package http

import (
	"bytes"
	"context"
	stdhttp "net/http"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
)

const htmlContentType = "text/html; charset=utf-8"

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// renderHTML buffers the component so a render failure can still become an error status.
func renderHTML(ctx context.Context, status int, component templ.Component) (*htmlResponse, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering component")
	}
	return &htmlResponse{Status: status, ContentType: htmlContentType, Body: buf.Bytes()}, nil
}

func (s *Server) renderErrorPage(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := stdhttp.StatusText(status)
	resp, err := renderHTML(ctx, status, errorView(status, label, message))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", nil)
		return &htmlResponse{Status: status, ContentType: "text/plain; charset=utf-8", Body: []byte(message)}, nil
	}
	return resp, nil
}
