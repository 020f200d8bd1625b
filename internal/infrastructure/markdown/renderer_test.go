package markdown

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lethe/app/internal/domain/styled"
)

func render(t *testing.T, markdown string) []styled.Span {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	out, ok := NewRenderer(logger).Render(context.Background(), markdown)
	require.True(t, ok, "Render(%q) returned no result", markdown)
	return out.Spans()
}

func span(text string, style styled.Style) styled.Span {
	return styled.Span{Text: text, Style: style}
}

func TestRenderLabelLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("Download a file", styled.Label),
		span("\n", styled.Plain),
	}, render(t, "Download a file:"))
}

func TestRenderLabelStripsBracketsAndCapitalises(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("List all files", styled.Label),
		span("\n", styled.Plain),
	}, render(t, "list [a]ll files:"))
}

func TestRenderSentenceLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("Archiving utility.", styled.Descriptive),
		span("\n", styled.Plain),
	}, render(t, "Archiving utility."))
}

func TestRenderCodeWithPlaceholder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("curl", styled.Code),
		span(" ", styled.Plain),
		span("url", styled.Label),
		span("\n", styled.Plain),
	}, render(t, "`curl {{url}}`"))
}

func TestRenderPlaceholderPrefixAndSuffix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("--output=", styled.Code),
		span("path", styled.Label),
		span(".txt", styled.Code),
	}, render(t, "`--output={{path}}.txt`"))
}

func TestRenderSingleTokenCodeIsInline(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("Run ", styled.Descriptive),
		span("ls", styled.Code),
		span(" to list", styled.Descriptive),
	}, render(t, "Run `ls` to list"))
}

func TestRenderSeeAlso(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("See also: ", styled.Descriptive),
		span("foo", styled.Code),
		span(".", styled.Descriptive),
		span("\n", styled.Plain),
	}, render(t, "See also: `foo`."))
}

func TestRenderRulePrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		markdown string
		want     []styled.Span
	}{
		{
			name:     "period wins over see also",
			markdown: "See also the manual.",
			want:     []styled.Span{span("See also the manual.", styled.Descriptive), span("\n", styled.Plain)},
		},
		{
			name:     "colon wins over see also",
			markdown: "See also:",
			want:     []styled.Span{span("See also", styled.Label), span("\n", styled.Plain)},
		},
		{
			name:     "period wins over more info",
			markdown: "More info is in the manual.",
			want:     []styled.Span{span("More info is in the manual.", styled.Descriptive), span("\n", styled.Plain)},
		},
		{
			name:     "plain text is inline",
			markdown: "Just words",
			want:     []styled.Span{span("Just words", styled.Descriptive)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, render(t, tc.markdown))
		})
	}
}

func TestRenderMoreInfoDropsNextSibling(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span(".", styled.Descriptive),
		span("\n", styled.Plain),
	}, render(t, "More information: <https://example.com/tar>."))
}

func TestRenderMoreInfoWithoutSibling(t *testing.T) {
	t.Parallel()

	assert.Empty(t, render(t, "More info "))
}

func TestRenderSuppressesHeadingsAndLinks(t *testing.T) {
	t.Parallel()

	assert.Empty(t, render(t, "# tar `code` *emphasis*"))
	assert.Equal(t, []styled.Span{
		span("Visit ", styled.Descriptive),
		span(" today", styled.Descriptive),
	}, render(t, "Visit [the site](https://example.com) today"))
}

func TestRenderBulletListStartsOnNewLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("\n", styled.Plain),
		span("List files", styled.Label),
		span("\n", styled.Plain),
		span("ls", styled.Code),
	}, render(t, "- List files:\n\n`ls`"))
}

func TestRenderFullPage(t *testing.T) {
	t.Parallel()

	page := "# tar\n\n" +
		"> Archiving utility.\n" +
		"> More information: <https://www.gnu.org/software/tar>.\n\n" +
		"- Create an archive from files:\n\n" +
		"`tar cf {{target.tar}} {{file1}}`\n"

	out := render(t, page)

	want := "Archiving utility.\n" +
		".\n" +
		"\n" +
		"Create an archive from files\n" +
		"tar cf target.tar file1\n"
	text := &styled.Text{}
	for _, s := range out {
		text.Append(s.Text, s.Style)
	}
	assert.Equal(t, want, text.String())
	assert.Contains(t, out, span("target.tar", styled.Label))
	assert.Contains(t, out, span("file1", styled.Label))
	assert.Contains(t, out, span("cf", styled.Code))
}

func TestRenderUnterminatedCodeSpanYieldsNoResult(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	out, ok := NewRenderer(logger).Render(context.Background(), "`curl {{url}}")

	assert.False(t, ok)
	assert.Nil(t, out)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "could not render markdown page", hook.LastEntry().Message)
	assert.Equal(t, "markdown.render", hook.LastEntry().Data["component"])
}

func TestRenderEscapedBacktickIsText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []styled.Span{
		span("Quote with `", styled.Descriptive),
	}, render(t, "Quote with \\`"))
}

func TestRenderCancelledContextYieldsNoResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, ok := NewRenderer(nil).Render(ctx, "Archiving utility.")
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestVisitRejectsUnknownNode(t *testing.T) {
	t.Parallel()

	v := &visitor{out: &styled.Text{}}
	assert.Error(t, v.visit(unknownNode{}))
}

type unknownNode struct{}

func (unknownNode) node() {}

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Extract verbose", label("extract [[verbose]]:"))
	assert.Equal(t, "", label(":"))
	assert.Equal(t, "Ärger", label("ärger:"))
}
