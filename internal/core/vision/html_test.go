package vision

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareHTML(t *testing.T) {
	html := `<html><head><style>body { color: red; }</style></head>` +
		`<body><script type="text/javascript">var x = 1;</script><h1>Pancakes</h1></body></html>`

	prepared := PrepareHTML(html, 120000)
	assert.NotContains(t, prepared, "var x = 1")
	assert.NotContains(t, prepared, "color: red")
	assert.Contains(t, prepared, "<h1>Pancakes</h1>")
}

func TestPrepareHTMLTruncation(t *testing.T) {
	html := strings.Repeat("a", 500)
	prepared := PrepareHTML(html, 100)
	assert.Len(t, prepared, 100)
}

func TestPrepareHTMLMultilineScript(t *testing.T) {
	html := "<script>\nline1\nline2\n</script><p>kept</p>"
	prepared := PrepareHTML(html, 120000)
	assert.Equal(t, "<p>kept</p>", prepared)
}

func TestBuildHTMLFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"最後一段路徑", "https://example.com/recipes/simple-breakfast?print=1", "example.com-simple-breakfast.html"},
		{"根路徑", "https://example.com/", "example.com-index.html"},
		{"無路徑", "https://example.com", "example.com-index.html"},
		{"大寫與不安全字符", "https://Example.COM/My_Recipe", "example.com-my-recipe.html"},
		{"結尾斜線", "https://example.com/recipes/tacos/", "example.com-tacos.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, BuildHTMLFilename(u))
		})
	}
}
