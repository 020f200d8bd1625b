package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// convert maps a goldmark node onto the page node tree. Leaves the visitor has no use for
// (code blocks, raw HTML, thematic breaks) map to nil.
func convert(n ast.Node, source []byte) Node {
	switch node := n.(type) {
	case *ast.Document:
		return &Document{Children: convertChildren(node, source)}
	case *ast.Paragraph:
		return &Paragraph{Children: convertChildren(node, source)}
	case *ast.TextBlock:
		return &Paragraph{Children: convertChildren(node, source)}
	case *ast.Blockquote:
		return &BlockQuote{Children: convertChildren(node, source)}
	case *ast.List:
		if node.IsOrdered() {
			return &OrderedList{Children: convertChildren(node, source)}
		}
		return &BulletList{Children: convertChildren(node, source)}
	case *ast.ListItem:
		return &ListItem{Children: convertChildren(node, source)}
	case *ast.Heading:
		return &Heading{Level: node.Level, Children: convertChildren(node, source)}
	case *ast.Link:
		return &Link{Destination: string(node.Destination), Children: convertChildren(node, source)}
	case *ast.AutoLink:
		return &Link{Destination: string(node.URL(source))}
	case *ast.Emphasis:
		return &Emphasis{Level: node.Level, Children: convertChildren(node, source)}
	case *ast.CodeSpan:
		return &Code{Literal: codeLiteral(node, source)}
	case *ast.Text:
		return &Text{Literal: string(node.Segment.Value(source))}
	case *ast.String:
		return &Text{Literal: string(node.Value)}
	default:
		if n.HasChildren() {
			return &Container{Children: convertChildren(n, source)}
		}
		return nil
	}
}

// convertChildren converts the children of parent, merging consecutive text segments that
// are not separated by a line break.
func convertChildren(parent ast.Node, source []byte) []Node {
	var (
		out  []Node
		open *Text
	)

	appendText := func(literal string, lineBreak bool) {
		if open != nil {
			open.Literal += literal
		} else {
			open = &Text{Literal: literal}
			out = append(out, open)
		}
		if lineBreak {
			open = nil
		}
	}

	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			appendText(string(c.Segment.Value(source)), c.SoftLineBreak() || c.HardLineBreak())
			continue
		case *ast.String:
			appendText(string(c.Value), false)
			continue
		}

		open = nil
		if converted := convert(child, source); converted != nil {
			out = append(out, converted)
		}
	}

	return out
}

func codeLiteral(span *ast.CodeSpan, source []byte) string {
	var b strings.Builder
	for child := span.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
		case *ast.String:
			b.Write(c.Value)
		}
	}
	return strings.ReplaceAll(b.String(), "\n", " ")
}
