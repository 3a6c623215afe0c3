package notify

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// renderEmailHTML turns a markdown body into sanitized HTML. Template
// variables are user supplied, so raw HTML in them never reaches the inbox.
func renderEmailHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes())), nil
}
