// ABOUTME: Tests for roster Markdown to HTML conversion
// ABOUTME: Checks emphasis, separators and that raw HTML is not passed through

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/modclock/internal/status"
)

func TestHTML_Roster(t *testing.T) {
	r := fixedRenderer(noon)
	body := r.Roster([]status.Entry{
		{User: "1", Status: status.Modding},
		{User: "2", Status: status.Break},
	}, names(map[status.UserID]string{"1": "Alice", "2": "Bob"}))

	got, err := HTML(body)
	require.NoError(t, err)

	assert.Contains(t, got, "<strong>🕒 Mod List</strong>")
	assert.Contains(t, got, "<hr")
	assert.Contains(t, got, "🟢 Modding: Alice<br")
	assert.Contains(t, got, "<em>Updated 12:07 UTC</em>")
	assert.NotContains(t, got, "<h2>")
	assert.NotContains(t, got, "-------------------")
}

func TestHTML_DropsRawHTML(t *testing.T) {
	got, err := HTML("☕ Break: <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, got, "<script>")
}

func TestNormalizeSeparators(t *testing.T) {
	assert.Equal(t, "a\n\n---\n\nb", normalizeSeparators("a\n-----\nb"))
	assert.Equal(t, "a - b", normalizeSeparators("a - b"))
}
