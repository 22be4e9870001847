package recipe

import (
	"strings"

	"recipe-importer/internal/pkg/common"
)

// MatchesSearchQuery 檢查食譜是否符合搜尋字串
// 空字串永遠匹配；其餘以不分大小寫的子字串比對標題、食材名稱與餐別，命中即回傳
func MatchesSearchQuery(recipe *common.Recipe, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(recipe.Title), query) {
		return true
	}

	for _, ing := range recipe.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), query) {
			return true
		}
	}

	return strings.Contains(strings.ToLower(string(recipe.MealType)), query)
}
