package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeadingsAndTitle(t *testing.T) {
	doc := Render("# Your Flower\n\n## Components\n\nSome text.")

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, BlockHeading, doc.Blocks[0].Kind)
	assert.Equal(t, 1, doc.Blocks[0].Level)
	assert.Equal(t, 2, doc.Blocks[1].Level)
	assert.Equal(t, "Components", doc.Blocks[1].Text())
	assert.Equal(t, BlockParagraph, doc.Blocks[2].Kind)
	assert.Equal(t, "Your Flower", doc.Title())
}

func TestRenderTitleMissing(t *testing.T) {
	assert.Empty(t, Render("## Only a subheading").Title())
	assert.True(t, Render("").IsEmpty())
}

func TestRenderEmphasis(t *testing.T) {
	doc := Render("Roses are **bold**, tulips are *shy*, and `code` stays.")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, []Span{
		{Text: "Roses are "},
		{Text: "bold", Bold: true},
		{Text: ", tulips are "},
		{Text: "shy", Italic: true},
		{Text: ", and "},
		{Text: "code", Code: true},
		{Text: " stays."},
	}, doc.Blocks[0].Spans)
}

func TestRenderNestedEmphasis(t *testing.T) {
	doc := Render("***both***")

	require.Len(t, doc.Blocks, 1)
	require.Len(t, doc.Blocks[0].Spans, 1)
	assert.True(t, doc.Blocks[0].Spans[0].Bold)
	assert.True(t, doc.Blocks[0].Spans[0].Italic)
	assert.Equal(t, "both", doc.Blocks[0].Spans[0].Text)
}

func TestRenderLists(t *testing.T) {
	doc := Render("1. Petals\n2. Stem\n\n- calm\n- focus\n")

	require.Len(t, doc.Blocks, 2)

	ordered := doc.Blocks[0]
	assert.Equal(t, BlockList, ordered.Kind)
	assert.True(t, ordered.Ordered)
	assert.Equal(t, 1, ordered.Start)
	assert.True(t, ordered.Tight)
	require.Len(t, ordered.Items, 2)
	require.Len(t, ordered.Items[0].Blocks, 1)
	assert.Equal(t, "Petals", ordered.Items[0].Blocks[0].Text())
	assert.Equal(t, "Stem", ordered.Items[1].Blocks[0].Text())

	bullets := doc.Blocks[1]
	assert.False(t, bullets.Ordered)
	require.Len(t, bullets.Items, 2)
	assert.Equal(t, "focus", bullets.Items[1].Blocks[0].Text())
}

func TestRenderNestedList(t *testing.T) {
	doc := Render("- Anxious\n  - breathe\n  - walk\n")

	require.Len(t, doc.Blocks, 1)
	item := doc.Blocks[0].Items[0]
	require.Len(t, item.Blocks, 2)
	assert.Equal(t, "Anxious", item.Blocks[0].Text())
	assert.Equal(t, BlockList, item.Blocks[1].Kind)
	assert.Len(t, item.Blocks[1].Items, 2)
}

func TestRenderQuoteCodeAndRule(t *testing.T) {
	doc := Render("> bloom where planted\n\n---\n\n```\nx := 1\n```\n")

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, BlockQuote, doc.Blocks[0].Kind)
	require.Len(t, doc.Blocks[0].Children, 1)
	assert.Equal(t, "bloom where planted", doc.Blocks[0].Children[0].Text())
	assert.Equal(t, BlockRule, doc.Blocks[1].Kind)
	assert.Equal(t, BlockCode, doc.Blocks[2].Kind)
	assert.Equal(t, "x := 1\n", doc.Blocks[2].Code)
}

func TestRenderRawHTMLIsText(t *testing.T) {
	doc := Render("Hello <script>alert(1)</script> there")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Hello <script>alert(1)</script> there", doc.Blocks[0].Text())
}

func TestRenderHTMLBlockIsText(t *testing.T) {
	doc := Render("<div onclick=\"x()\">hi</div>\n")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, BlockParagraph, doc.Blocks[0].Kind)
	assert.Equal(t, `<div onclick="x()">hi</div>`, doc.Blocks[0].Text())
}

func TestRenderLinkDestinationsDropped(t *testing.T) {
	doc := Render("See [the guide](javascript:alert(1)) and ![a rose](http://x/rose.png).")

	require.Len(t, doc.Blocks, 1)
	got := doc.Blocks[0].Text()
	assert.Equal(t, "See the guide and a rose.", got)
	assert.NotContains(t, got, "javascript")
}

func TestRenderSoftAndHardBreaks(t *testing.T) {
	doc := Render("line one\nline two  \nline three")

	require.Len(t, doc.Blocks, 1)
	spans := doc.Blocks[0].Spans
	require.Len(t, spans, 3)
	assert.Equal(t, "line one line two", strings.TrimSpace(spans[0].Text))
	assert.True(t, spans[1].Break)
	assert.Equal(t, "line three", spans[2].Text)
}

func TestRenderPlainTextWithoutMarkdown(t *testing.T) {
	doc := Render("just words")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "just words", doc.Blocks[0].Text())
	assert.Empty(t, doc.Title())
}

func TestRenderEscapesAndEntities(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{`a \*literal\* star`, "a *literal* star"},
		{"caf&eacute;", "café"},
		{"&#35; not a heading", "# not a heading"},
		{"# Heading &copy;", "Heading ©"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			doc := Render(tt.in)
			require.Len(t, doc.Blocks, 1)
			assert.Equal(t, tt.want, doc.Blocks[0].Text())
		})
	}
	assert.Equal(t, "Heading ©", Render("# Heading &copy;").Title())
}

func TestRenderCodeSpanKeepsEscapesLiteral(t *testing.T) {
	doc := Render("use `&amp;` or `\\*`")

	require.Len(t, doc.Blocks, 1)
	spans := doc.Blocks[0].Spans
	require.Len(t, spans, 4)
	assert.Equal(t, Span{Text: "&amp;", Code: true}, spans[1])
	assert.Equal(t, Span{Text: `\*`, Code: true}, spans[3])
}
