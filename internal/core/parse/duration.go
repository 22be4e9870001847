package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	hourPattern   = regexp.MustCompile(`(\d+)\s*(?:hour|hr|h)`)
	minutePattern = regexp.MustCompile(`(\d+)\s*(?:minute|min|m)`)
	numberPattern = regexp.MustCompile(`(\d+)`)
)

// ParseDuration 將自由文字的時間描述轉換為總分鐘數
//
//	"30 min"      → 30
//	"1 hour"      → 60
//	"1h 30m"      → 90
//	"45 minutes"  → 45
//	"30"          → 30（沒有單位時當作分鐘）
//	""            → 0
//
// 小時與分鐘的搜尋彼此獨立，可在同一字串中各命中一次
func ParseDuration(s string) int {
	if s == "" {
		return 0
	}

	lower := strings.ToLower(s)
	total := 0

	// 比對小時
	if m := hourPattern.FindStringSubmatch(lower); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			total += hours * 60
		}
	}

	// 比對分鐘
	if m := minutePattern.FindStringSubmatch(lower); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			total += minutes
		}
	}

	// 兩種單位都沒中時，退而求其次取任何數字當作分鐘
	if total == 0 {
		if m := numberPattern.FindStringSubmatch(lower); m != nil {
			if minutes, err := strconv.Atoi(m[1]); err == nil {
				total = minutes
			}
		}
	}

	return total
}
