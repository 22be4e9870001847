package vision

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	unsafeCharsPattern = regexp.MustCompile(`[^a-z0-9.-]+`)
)

// PrepareHTML 將網頁原始碼整理成可送入模型的文本
// 移除 script/style 區塊（對食譜內容沒有價值、又佔掉大量字數），
// 再截斷到 maxChars 個字符以內
func PrepareHTML(html string, maxChars int) string {
	cleaned := scriptBlockPattern.ReplaceAllString(html, "")
	cleaned = styleBlockPattern.ReplaceAllString(cleaned, "")

	runes := []rune(cleaned)
	if len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return cleaned
}

// BuildHTMLFilename 由來源網址產生穩定且安全的檔名
//
//	https://example.com/recipes/simple-breakfast?print=1 → "example.com-simple-breakfast.html"
func BuildHTMLFilename(u *url.URL) string {
	segment := "index"
	for _, part := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if part != "" {
			segment = part
		}
	}

	name := strings.ToLower(u.Hostname() + "-" + segment)
	name = unsafeCharsPattern.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	return name + ".html"
}
