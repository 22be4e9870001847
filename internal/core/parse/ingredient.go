package parse

import (
	"regexp"

	"recipe-importer/internal/pkg/common"
)

// unicodeFractionClass 比對 Unicode 分數字符的字符類
//
// 涵蓋所有 Unicode 定義的分數字符：
//   - U+00BC-U+00BE: ¼ ½ ¾ (Latin-1 Supplement)
//   - U+2150-U+215F: ⅐ ⅑ ⅒ ⅓ ⅔ ⅕ ⅖ ⅗ ⅘ ⅙ ⅚ ⅛ ⅜ ⅝ ⅞ ⅟ (Number Forms)
//
// 用標準 Unicode 區段而不是逐字列舉，數值對應交給 ParseQuantity 的 NFKD 處理
const unicodeFractionClass = `\x{00BC}-\x{00BE}\x{2150}-\x{215F}`

// qty 數量 token：純數字/小數/斜線，或（可帶前導數字的）單一 Unicode 分數
const qty = `[\d/.]*[` + unicodeFractionClass + `]|[\d/.]+`

// qtyGroup 一到兩個數量 token，容許 "1 ½" 這種以空格分隔的帶分數
const qtyGroup = `((?:` + qty + `)(?:\s+(?:` + qty + `))?)`

// attemptKind 標記逐行解析嘗試的種類
type attemptKind int

const (
	attemptWithUnit attemptKind = iota // "2 cups flour"、"1 ½ cups flour"、"1½ cups milk"
	attemptNoUnit                      // "2 eggs"、"½ egg"
	attemptFallback                    // "salt to taste"：整行原樣保留
)

// ingredientAttempt 一種解析嘗試；依序套用，先中者勝
type ingredientAttempt struct {
	kind    attemptKind
	pattern *regexp.Regexp
}

// 依嚴格順序排列的解析嘗試；Fallback 沒有 pattern，永遠成立
var ingredientAttempts = []ingredientAttempt{
	{kind: attemptWithUnit, pattern: regexp.MustCompile(`^` + qtyGroup + `\s+(\w+)\s+(.+)$`)},
	{kind: attemptNoUnit, pattern: regexp.MustCompile(`^` + qtyGroup + `\s+(.+)$`)},
	{kind: attemptFallback},
}

// ParseIngredients 將原始食材行解析為結構化格式
// 輸出長度永遠等於輸入長度，順序不變，不丟行也不併行
//
// 每行依序嘗試「數量+單位+名稱」、「數量+名稱」兩種格式；
// 都不成立（或數量 token 本身無法解析）時整行降級為原樣保留，
// 並設置 OriginalString 告知下游直接顯示原文
func ParseIngredients(lines []string) []common.Ingredient {
	result := make([]common.Ingredient, 0, len(lines))

	for _, line := range lines {
		result = append(result, parseIngredientLine(line))
	}

	return result
}

func parseIngredientLine(line string) common.Ingredient {
	for _, attempt := range ingredientAttempts {
		switch attempt.kind {
		case attemptWithUnit:
			if m := attempt.pattern.FindStringSubmatch(line); m != nil {
				quantity, err := ParseQuantity(m[1])
				if err != nil {
					continue // 數量 token 解析失敗，換下一種嘗試
				}
				return common.Ingredient{
					Quantity: quantity,
					Unit:     m[2],
					Name:     m[3],
				}
			}

		case attemptNoUnit:
			if m := attempt.pattern.FindStringSubmatch(line); m != nil {
				quantity, err := ParseQuantity(m[1])
				if err != nil {
					continue
				}
				return common.Ingredient{
					Quantity: quantity,
					Unit:     "whole",
					Name:     m[2],
				}
			}

		case attemptFallback:
			// 無法恢復結構：整行當作名稱，OriginalString 標記原樣顯示
			return common.Ingredient{
				Quantity:       1,
				Unit:           "whole",
				Name:           line,
				OriginalString: line,
			}
		}
	}

	// ingredientAttempts 以 Fallback 結尾，不會走到這裡
	return common.Ingredient{Quantity: 1, Unit: "whole", Name: line, OriginalString: line}
}
