package graphcms

import (
	"encoding/json"
	"strings"
)

// RichText mirrors the backend's structured body content: a tree of typed
// block nodes whose leaves are styled text spans.
type RichText struct {
	Raw RichTextNode `json:"raw"`
}

// RichTextNode is either a block (Type set, Children populated) or a text
// leaf (Text set, optional style marks). Image blocks carry Src.
type RichTextNode struct {
	Type      string         `json:"type,omitempty"`
	Text      string         `json:"text,omitempty"`
	Bold      bool           `json:"bold,omitempty"`
	Italic    bool           `json:"italic,omitempty"`
	Underline bool           `json:"underline,omitempty"`
	Src       string         `json:"src,omitempty"`
	AltText   string         `json:"altText,omitempty"`
	Children  []RichTextNode `json:"children,omitempty"`
}

// MarshalJSON always emits the text key on leaf spans. The backend
// rejects a leaf without one, so an empty span must still encode as
// {"text":""} rather than {}.
func (n RichTextNode) MarshalJSON() ([]byte, error) {
	type plain RichTextNode
	if n.Type == "" && len(n.Children) == 0 {
		return json.Marshal(struct {
			plain
			Text string `json:"text"`
		}{plain(n), n.Text})
	}
	return json.Marshal(plain(n))
}

// FromPlainText wraps free text into the minimal valid rich-text tree: one
// paragraph block per non-empty line, each holding a single text span. An
// empty input still produces one paragraph so the backend accepts it.
func FromPlainText(text string) RichText {
	var blocks []RichTextNode
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		blocks = append(blocks, paragraph(line))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, paragraph(""))
	}
	return RichText{Raw: RichTextNode{Children: blocks}}
}

func paragraph(text string) RichTextNode {
	return RichTextNode{
		Type:     "paragraph",
		Children: []RichTextNode{{Text: text}},
	}
}

// PlainText flattens a stored tree back into editable text, one line per
// block. Style marks and image blocks are dropped; the admin form is a
// plain-text editor, not a rich-text one.
func (rt RichText) PlainText() string {
	var lines []string
	for _, block := range rt.Raw.Children {
		if block.Type == "image" {
			continue
		}
		if text := spanText(block); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func spanText(n RichTextNode) string {
	if len(n.Children) == 0 {
		return n.Text
	}
	var b strings.Builder
	for _, child := range n.Children {
		b.WriteString(spanText(child))
	}
	return b.String()
}
