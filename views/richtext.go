package views

import (
	"strings"

	"github.com/rivergrove/wardblog/graphcms"
)

var headingTags = map[string]string{
	"heading-one":   "h1",
	"heading-two":   "h2",
	"heading-three": "h3",
	"heading-four":  "h4",
}

func renderRichText(b *strings.Builder, root graphcms.RichTextNode) {
	for _, block := range root.Children {
		renderBlock(b, block)
	}
}

func renderBlock(b *strings.Builder, n graphcms.RichTextNode) {
	switch {
	case n.Type == "image":
		if n.Src == "" {
			return
		}
		alt := n.AltText
		b.WriteString("<img src=\"" + esc(n.Src) + "\" alt=\"" + esc(alt) + "\"/>")
	case n.Type == "block-quote":
		b.WriteString("<blockquote>")
		renderSpans(b, n.Children)
		b.WriteString("</blockquote>")
	case headingTags[n.Type] != "":
		tag := headingTags[n.Type]
		b.WriteString("<" + tag + ">")
		renderSpans(b, n.Children)
		b.WriteString("</" + tag + ">")
	default:
		// Unknown block types degrade to paragraphs rather than dropping
		// the operator's text.
		b.WriteString("<p>")
		renderSpans(b, n.Children)
		b.WriteString("</p>")
	}
}

func renderSpans(b *strings.Builder, spans []graphcms.RichTextNode) {
	for _, span := range spans {
		if len(span.Children) > 0 {
			renderSpans(b, span.Children)
			continue
		}
		var openTags, closeTags string
		if span.Bold {
			openTags += "<b>"
			closeTags = "</b>" + closeTags
		}
		if span.Italic {
			openTags += "<i>"
			closeTags = "</i>" + closeTags
		}
		if span.Underline {
			openTags += "<u>"
			closeTags = "</u>" + closeTags
		}
		b.WriteString(openTags + esc(span.Text) + closeTags)
	}
}
