package telegram

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
	)

	// Telegram's HTML parse mode accepts only a handful of inline tags.
	htmlSanitizer = bluemonday.NewPolicy()
	htmlSanitizer.AllowElements("b", "strong", "i", "em", "u", "s", "code", "pre")
	htmlSanitizer.AllowAttrs("href").OnElements("a")
	htmlSanitizer.AllowURLSchemes("http", "https")
	htmlSanitizer.RequireParseableURLs(true)
}

// RenderHTML converts markdown into the HTML subset accepted by the Bot API.
// Paragraph breaks survive as blank lines because block tags are stripped.
func RenderHTML(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return strings.TrimSpace(htmlSanitizer.Sanitize(src))
	}

	rendered := strings.ReplaceAll(buf.String(), "</p>\n", "</p>\n\n")
	rendered = strings.ReplaceAll(rendered, "<br>\n", "\n")
	return strings.TrimSpace(htmlSanitizer.Sanitize(rendered))
}
