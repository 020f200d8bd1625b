package http

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"lethe/app/internal/domain/pages"
	"lethe/app/internal/domain/styled"
)

const pageStylesheet = `body{font-family:monospace;white-space:pre-wrap;margin:2rem}` +
	`.descriptive{color:#b58900}.label{color:#859900;font-weight:bold}.code{color:#dc322f}`

// pageView renders a page as a standalone HTML document, one <span> per styled span.
func pageView(page *pages.Page, text *styled.Text) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		title := templ.EscapeString(page.Name + " (" + page.Platform + ")")

		fmt.Fprintf(&b, "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title>", title)
		fmt.Fprintf(&b, "<style>%s</style></head><body><main>", pageStylesheet)
		for _, span := range text.Spans() {
			if span.Style == styled.Plain {
				b.WriteString(templ.EscapeString(span.Text))
				continue
			}
			fmt.Fprintf(&b, "<span class=\"%s\">%s</span>", span.Style, templ.EscapeString(span.Text))
		}
		b.WriteString("</main></body></html>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// errorView renders a minimal HTML error document.
func errorView(status int, label, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%d %s</title></head>"+
				"<body><h1>%s</h1><p>%s</p></body></html>",
			status, templ.EscapeString(label), templ.EscapeString(label), templ.EscapeString(message))
		return err
	})
}
