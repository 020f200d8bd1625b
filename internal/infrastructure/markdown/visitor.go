package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark/util"

	"lethe/app/internal/domain/styled"
)

const (
	seeAlsoPrefix    = "See also"
	moreInfoPrefix   = "More info"
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

var errUnterminatedCode = eris.New("unterminated code span")

var labelSymbols = strings.NewReplacer("[", "", "]", "")

// visitor walks the page tree once and writes styled spans to out.
type visitor struct {
	out *styled.Text
}

func (v *visitor) visit(n Node) error {
	switch node := n.(type) {
	case *Heading, *Link:
		return nil
	case *BulletList:
		v.out.Append("\n", styled.Plain)
		return v.visitChildren(node.Children)
	case *Code:
		v.code(node.Literal)
		return nil
	case *Text:
		_, err := v.text(node.Literal)
		return err
	case *Document:
		return v.visitChildren(node.Children)
	case *Paragraph:
		return v.visitChildren(node.Children)
	case *BlockQuote:
		return v.visitChildren(node.Children)
	case *OrderedList:
		return v.visitChildren(node.Children)
	case *ListItem:
		return v.visitChildren(node.Children)
	case *Emphasis:
		return v.visitChildren(node.Children)
	case *Container:
		return v.visitChildren(node.Children)
	case nil:
		return nil
	default:
		return eris.Errorf("unsupported node %T", n)
	}
}

func (v *visitor) visitChildren(children []Node) error {
	for i := 0; i < len(children); i++ {
		text, ok := children[i].(*Text)
		if !ok {
			if err := v.visit(children[i]); err != nil {
				return err
			}
			continue
		}

		skipNext, err := v.text(text.Literal)
		if err != nil {
			return err
		}
		if skipNext {
			i++
		}
	}
	return nil
}

// text applies the plain-text rules in order. It reports whether the following sibling
// must be dropped.
func (v *visitor) text(literal string) (bool, error) {
	if containsUnescapedBacktick(literal) {
		return false, errUnterminatedCode
	}
	literal = string(util.UnescapePunctuations([]byte(literal)))

	switch {
	case strings.HasSuffix(literal, "."):
		v.out.AppendLine(literal, styled.Descriptive)
	case strings.HasSuffix(literal, ":"):
		v.out.AppendLine(label(literal), styled.Label)
	case strings.HasPrefix(literal, seeAlsoPrefix):
		v.out.Append(literal, styled.Descriptive)
	case strings.HasPrefix(literal, moreInfoPrefix):
		return true, nil
	default:
		v.out.Append(literal, styled.Descriptive)
	}
	return false, nil
}

func (v *visitor) code(literal string) {
	tokens := strings.Split(literal, " ")
	for i, token := range tokens {
		if i > 0 {
			v.out.Append(" ", styled.Plain)
		}
		v.token(token)
	}
	if len(tokens) > 1 {
		v.out.Append("\n", styled.Plain)
	}
}

// token renders one code word. A {{placeholder}} is split into code prefix, label body
// and code suffix.
func (v *visitor) token(token string) {
	open := strings.Index(token, placeholderOpen)
	if open < 0 {
		v.out.Append(token, styled.Code)
		return
	}
	rest := token[open+len(placeholderOpen):]
	end := strings.Index(rest, placeholderClose)
	if end < 0 {
		v.out.Append(token, styled.Code)
		return
	}

	v.out.Append(token[:open], styled.Code)
	v.out.Append(rest[:end], styled.Label)
	v.out.Append(rest[end+len(placeholderClose):], styled.Code)
}

// label drops the trailing colon and bracket characters and capitalises the first letter.
func label(literal string) string {
	literal = labelSymbols.Replace(strings.TrimSuffix(literal, ":"))
	first, size := utf8.DecodeRuneInString(literal)
	if first == utf8.RuneError {
		return literal
	}
	return string(unicode.ToUpper(first)) + literal[size:]
}

func containsUnescapedBacktick(literal string) bool {
	for i := 0; i < len(literal); i++ {
		switch literal[i] {
		case '\\':
			i++
		case '`':
			return true
		}
	}
	return false
}
