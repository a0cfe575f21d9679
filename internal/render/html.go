// ABOUTME: Converts roster Markdown into HTML for platforms with rich bodies
// ABOUTME: Uses goldmark with hard wraps; separator lines become thematic breaks

package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// HTML renders a roster body as HTML. Raw HTML in member names is not passed through.
func HTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(normalizeSeparators(body)), &buf); err != nil {
		return "", fmt.Errorf("converting roster markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// normalizeSeparators turns dash-only lines into standalone "---" blocks.
// Left in place they would be read as setext heading underlines.
func normalizeSeparators(body string) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines)+4)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && strings.Trim(trimmed, "-") == "" {
			out = append(out, "", "---", "")
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
