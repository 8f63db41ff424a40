package pages

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownHandler renders Markdown pages to HTML fragments with goldmark.
type MarkdownHandler struct {
	md goldmark.Markdown
}

// NewMarkdownHandler returns a GitHub-flavoured Markdown renderer with
// generated heading IDs. Raw HTML in the source is passed through.
func NewMarkdownHandler() *MarkdownHandler {
	return &MarkdownHandler{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (h *MarkdownHandler) Name() string { return "markdown" }

func (h *MarkdownHandler) TargetExtension() string { return "html" }

func (h *MarkdownHandler) Transform(src []byte, _ PageContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := h.md.Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RegisterMarkdown binds the Markdown handler to the usual extensions.
func RegisterMarkdown(r *Registry) {
	h := NewMarkdownHandler()
	r.Register("md", h)
	r.Register("markdown", h)
}
