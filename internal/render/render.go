// Package render turns model Markdown into a plain structure tree. It never
// produces HTML; callers render the tree through html/template.
package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockQuote     BlockKind = "quote"
	BlockCode      BlockKind = "code"
	BlockRule      BlockKind = "rule"
)

// Span is a run of inline text sharing the same emphasis.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
	// Break marks a hard line break; Text is empty.
	Break bool
}

// Block is one node of the tree. Which fields are set depends on Kind:
// Level for headings, Spans for headings and paragraphs, Ordered/Start/Tight
// and Items for lists, Children for quotes, Code for code blocks.
type Block struct {
	Kind     BlockKind
	Level    int
	Spans    []Span
	Ordered  bool
	Start    int
	Tight    bool
	Items    []ListItem
	Children []Block
	Code     string
}

type ListItem struct {
	Blocks []Block
}

type Document struct {
	Blocks []Block
}

// Text returns the block's inline content without formatting.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Title returns the text of the first level-1 heading, or "".
func (d Document) Title() string {
	for _, b := range d.Blocks {
		if b.Kind == BlockHeading && b.Level == 1 {
			return strings.TrimSpace(b.Text())
		}
	}
	return ""
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}

var parser = goldmark.New().Parser()

// Render parses Markdown text. It is a pure function and safe for
// concurrent use.
func Render(src string) Document {
	source := []byte(src)
	root := parser.Parse(text.NewReader(source))
	w := walker{source: source}
	return Document{Blocks: w.blocks(root)}
}

type walker struct {
	source []byte
}

func (w walker) blocks(parent ast.Node) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := w.block(n); ok {
			out = append(out, b)
		}
	}
	return out
}

func (w walker) block(n ast.Node) (Block, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		return Block{Kind: BlockHeading, Level: node.Level, Spans: w.inlines(node)}, true
	case *ast.Paragraph, *ast.TextBlock:
		spans := w.inlines(node)
		if len(spans) == 0 {
			return Block{}, false
		}
		return Block{Kind: BlockParagraph, Spans: spans}, true
	case *ast.List:
		b := Block{Kind: BlockList, Ordered: node.IsOrdered(), Start: node.Start, Tight: node.IsTight}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			b.Items = append(b.Items, ListItem{Blocks: w.blocks(item)})
		}
		return b, true
	case *ast.Blockquote:
		return Block{Kind: BlockQuote, Children: w.blocks(node)}, true
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return Block{Kind: BlockCode, Code: w.lines(node.Lines())}, true
	case *ast.ThematicBreak:
		return Block{Kind: BlockRule}, true
	case *ast.HTMLBlock:
		raw := w.lines(node.Lines())
		if node.HasClosure() {
			raw += string(node.ClosureLine.Value(w.source))
		}
		raw = strings.TrimRight(raw, "\n")
		if raw == "" {
			return Block{}, false
		}
		return Block{Kind: BlockParagraph, Spans: []Span{{Text: raw}}}, true
	default:
		if n.Type() == ast.TypeBlock && n.HasChildren() {
			return Block{Kind: BlockQuote, Children: w.blocks(n)}, true
		}
		return Block{}, false
	}
}

func (w walker) lines(segs *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(w.source))
	}
	return sb.String()
}

type style struct {
	bold, italic bool
}

func (w walker) inlines(parent ast.Node) []Span {
	var spans []Span
	w.collect(parent, style{}, &spans)
	return spans
}

func (w walker) collect(parent ast.Node, st style, spans *[]Span) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			value := node.Segment.Value(w.source)
			if node.IsRaw() {
				appendSpan(spans, Span{Text: string(value), Bold: st.bold, Italic: st.italic})
			} else {
				appendSpan(spans, Span{Text: decode(value), Bold: st.bold, Italic: st.italic})
			}
			if node.HardLineBreak() {
				*spans = append(*spans, Span{Break: true})
			} else if node.SoftLineBreak() {
				appendSpan(spans, Span{Text: " ", Bold: st.bold, Italic: st.italic})
			}
		case *ast.String:
			value := string(node.Value)
			if !node.IsCode() && !node.IsRaw() {
				value = decode(node.Value)
			}
			appendSpan(spans, Span{Text: value, Bold: st.bold, Italic: st.italic, Code: node.IsCode()})
		case *ast.Emphasis:
			next := st
			if node.Level >= 2 {
				next.bold = true
			} else {
				next.italic = true
			}
			w.collect(node, next, spans)
		case *ast.CodeSpan:
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(w.source))
				}
			}
			appendSpan(spans, Span{Text: sb.String(), Bold: st.bold, Italic: st.italic, Code: true})
		case *ast.AutoLink:
			appendSpan(spans, Span{Text: string(node.Label(w.source)), Bold: st.bold, Italic: st.italic})
		case *ast.RawHTML:
			var sb strings.Builder
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				sb.Write(seg.Value(w.source))
			}
			appendSpan(spans, Span{Text: sb.String(), Bold: st.bold, Italic: st.italic})
		default:
			// Links, images and anything else contribute their text only.
			w.collect(node, st, spans)
		}
	}
}

// decode resolves backslash escapes and character references in plain text.
// Code spans and raw HTML are literal and never pass through here.
func decode(b []byte) string {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}

// appendSpan merges s into the previous span when their formatting matches.
func appendSpan(spans *[]Span, s Span) {
	if s.Text == "" {
		return
	}
	if n := len(*spans); n > 0 {
		last := &(*spans)[n-1]
		if !last.Break && last.Bold == s.Bold && last.Italic == s.Italic && last.Code == s.Code {
			last.Text += s.Text
			return
		}
	}
	*spans = append(*spans, s)
}
