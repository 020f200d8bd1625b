package terminal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpages "lethe/app/internal/domain/pages"
	"lethe/app/internal/domain/styled"
)

func sampleText() *styled.Text {
	text := &styled.Text{}
	text.AppendLine("Archiving utility.", styled.Descriptive)
	text.AppendLine("Create an archive", styled.Label)
	text.Append("tar", styled.Code)
	text.Append(" ", styled.Plain)
	text.Append("target.tar", styled.Label)
	return text
}

func TestPrintWithoutColor(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, NewPrinter(&out, Options{NoColor: true}).Print(sampleText()))

	assert.Equal(t, "Archiving utility.\nCreate an archive\ntar target.tar\n", out.String())
}

func TestPrintKeepsTrailingLineBreak(t *testing.T) {
	t.Parallel()

	text := &styled.Text{}
	text.AppendLine("Done.", styled.Descriptive)

	var out bytes.Buffer
	require.NoError(t, NewPrinter(&out, Options{NoColor: true}).Print(text))
	assert.Equal(t, "Done.\n", out.String())
}

func TestPrintWithStylesKeepsText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, NewPrinter(&out, Options{}).Print(sampleText()))

	for _, fragment := range []string{"Archiving utility.", "Create an archive", "tar", "target.tar"} {
		assert.Contains(t, out.String(), fragment)
	}
}

func TestStylesPerSpanKind(t *testing.T) {
	t.Parallel()

	p := NewPrinter(&bytes.Buffer{}, Options{})

	cases := map[styled.Style]lipgloss.TerminalColor{
		styled.Descriptive: descriptiveColor,
		styled.Label:       labelColor,
		styled.Code:        codeColor,
	}
	for style, color := range cases {
		got, ok := p.styles[style]
		require.True(t, ok, style.String())
		assert.True(t, got.GetBold(), style.String())
		assert.Equal(t, color, got.GetForeground(), style.String())
	}
	_, hasPlain := p.styles[styled.Plain]
	assert.False(t, hasPlain)
}

func TestPrintIdentifiers(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := NewPrinter(&out, Options{NoColor: true}).PrintIdentifiers([]domainpages.PageIdentifier{
		{ID: 1, Name: "tar", Platform: "common"},
		{ID: 2, Name: "apt", Platform: "linux"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tar (common)\napt (linux)\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPrintPropagatesWriteError(t *testing.T) {
	t.Parallel()

	p := NewPrinter(failingWriter{}, Options{NoColor: true})
	assert.Error(t, p.Print(sampleText()))
	assert.Error(t, p.PrintIdentifiers([]domainpages.PageIdentifier{{Name: "tar"}}))
	assert.Error(t, p.Println("3"))
}
