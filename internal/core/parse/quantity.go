package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fractionSlash Unicode 分數斜線 (U+2044)，NFKD 分解後的分數字符都以它分隔
const fractionSlash = "⁄"

var (
	// mixedNumberPattern 在整數與緊鄰的分數之間補上空格："11⁄2" → "1 1⁄2"
	mixedNumberPattern = regexp.MustCompile(`(\d)(\d\x{2044})`)
	// mixedFractionPattern 帶分數："1 1/2"
	mixedFractionPattern = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
)

// ParseQuantity 將單一數量 token 解析為浮點數
// 支援文字分數 ("1/2")、小數 ("1.5")、Unicode 分數 ("½")
// 以及帶分數 ("1½"、"1 ½"、"1 1/2")
//
// 透過 NFKD 正規化把 Unicode 分數分解為可解析的組件：
//
//	'½'  → '1⁄2'（U+2044 分數斜線）
//	'1½' → '11⁄2'（數字連在一起，無空格）
//
// 分母為零或無法解析的 token 回傳錯誤，不會產生 NaN/Inf
func ParseQuantity(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty quantity token")
	}

	// 將 Unicode 分數正規化為分解形式
	normalized := norm.NFKD.String(trimmed)

	// 在帶分數中於分數斜線前補上空格
	// '11⁄2' → '1 1⁄2'；'1⁄2' 不變（單純分數）
	withSpace := mixedNumberPattern.ReplaceAllString(normalized, "$1 $2")

	// 將 Unicode 分數斜線 (U+2044) 換成一般斜線 (U+002F)
	withRegularSlash := strings.ReplaceAll(withSpace, fractionSlash, "/")

	// 處理分數（"1/2"、"1 1/2"）
	if strings.Contains(withRegularSlash, "/") {
		// 帶分數格式："1 1/2"（整數 空格 分數）
		if m := mixedFractionPattern.FindStringSubmatch(withRegularSlash); m != nil {
			whole, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid whole part %q: %w", m[1], err)
			}
			numerator, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid numerator %q: %w", m[2], err)
			}
			denominator, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid denominator %q: %w", m[3], err)
			}
			if denominator == 0 {
				return 0, fmt.Errorf("zero denominator in %q", s)
			}
			return whole + numerator/denominator, nil
		}

		// 單純分數："1/2"
		parts := strings.SplitN(withRegularSlash, "/", 2)
		numerator, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numerator %q: %w", parts[0], err)
		}
		denominator, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid denominator %q: %w", parts[1], err)
		}
		if denominator == 0 {
			return 0, fmt.Errorf("zero denominator in %q", s)
		}
		return numerator / denominator, nil
	}

	// 一般整數或小數
	value, err := strconv.ParseFloat(withRegularSlash, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("quantity out of range: %q", s)
	}
	return value, nil
}

// decimalToFraction 顯示用的 Unicode 分數對照表（二、三、四、五、六、八分位）
var decimalToFraction = map[float64]string{
	0.5:     "½",
	1.0 / 3: "⅓",
	2.0 / 3: "⅔",
	0.25:    "¼",
	0.75:    "¾",
	0.2:     "⅕",
	0.4:     "⅖",
	0.6:     "⅗",
	0.8:     "⅘",
	1.0 / 6: "⅙",
	5.0 / 6: "⅚",
	0.125:   "⅛",
	0.375:   "⅜",
	0.625:   "⅝",
	0.875:   "⅞",
}

// fractionTolerance 吸收浮點除法誤差（例如 1/3 算出的 0.3333333333333333）
const fractionTolerance = 0.001

// FormatQuantity 將小數數量格式化為人類可讀的字串，盡量使用 Unicode 分數
//
//	0.5  → "½"
//	1.5  → "1½"
//	2.75 → "2¾"
//	2    → "2"
//
// 不在對照表範圍內的小數維持小數顯示
func FormatQuantity(quantity float64) string {
	// 整數直接輸出
	if quantity == math.Trunc(quantity) {
		return strconv.FormatFloat(quantity, 'f', -1, 64)
	}

	wholePart := math.Floor(quantity)
	fractionalPart := quantity - wholePart

	// 先嘗試精確比對
	if glyph, ok := decimalToFraction[fractionalPart]; ok {
		return formatWithGlyph(wholePart, glyph)
	}

	// 容忍浮點誤差再掃一次
	for decimal, glyph := range decimalToFraction {
		if math.Abs(fractionalPart-decimal) < fractionTolerance {
			return formatWithGlyph(wholePart, glyph)
		}
	}

	// 回退到小數表示
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}

func formatWithGlyph(whole float64, glyph string) string {
	if whole > 0 {
		return strconv.FormatFloat(whole, 'f', -1, 64) + glyph
	}
	return glyph
}
