package markdown

// Node is one element of a parsed page. The concrete types below are the only variants the
// visitor distinguishes; anything else is folded into Container.
type Node interface {
	node()
}

// Document is the root of a parsed page.
type Document struct {
	Children []Node
}

// Paragraph is a block of inline content.
type Paragraph struct {
	Children []Node
}

// BlockQuote holds quoted blocks. Page descriptions live here.
type BlockQuote struct {
	Children []Node
}

// BulletList is an unordered list.
type BulletList struct {
	Children []Node
}

// OrderedList is a numbered list.
type OrderedList struct {
	Children []Node
}

// ListItem is a single entry of either list kind.
type ListItem struct {
	Children []Node
}

// Heading is an ATX or setext heading.
type Heading struct {
	Level    int
	Children []Node
}

// Link is an inline link or autolink.
type Link struct {
	Destination string
	Children    []Node
}

// Emphasis is emphasised inline content.
type Emphasis struct {
	Level    int
	Children []Node
}

// Text is a run of literal text. Adjacent segments on the same line are merged.
type Text struct {
	Literal string
}

// Code is an inline code span.
type Code struct {
	Literal string
}

// Container is any other element whose children are visited in order.
type Container struct {
	Children []Node
}

func (*Document) node()    {}
func (*Paragraph) node()   {}
func (*BlockQuote) node()  {}
func (*BulletList) node()  {}
func (*OrderedList) node() {}
func (*ListItem) node()    {}
func (*Heading) node()     {}
func (*Link) node()        {}
func (*Emphasis) node()    {}
func (*Text) node()        {}
func (*Code) node()        {}
func (*Container) node()   {}
