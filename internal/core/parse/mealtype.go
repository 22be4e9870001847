package parse

import (
	"strings"

	"recipe-importer/internal/pkg/common"
)

// 餐別關鍵字組，依優先順序排列
// breakfast 必須排在 dessert 前面，否則 "pancake" 會因包含 "cake" 被誤判為甜點
var mealTypeKeywordGroups = []struct {
	mealType common.MealType
	keywords []string
}{
	{common.MealTypeBreakfast, []string{"pancake", "waffle", "breakfast", "toast", "egg", "cereal", "oatmeal"}},
	{common.MealTypeDessert, []string{"cake", "cookie", "brownie", "dessert", "chocolate", "sweet"}},
	{common.MealTypeDinner, []string{"dinner", "steak", "roast", "baked", "casserole"}},
}

// InferMealType 從標題與食材文字推斷餐別
// 無法判斷時回傳空字串，由呼叫端決定預設值（慣例為 lunch）
func InferMealType(title string, ingredients []string) common.MealType {
	parts := make([]string, 0, len(ingredients)+1)
	parts = append(parts, title)
	parts = append(parts, ingredients...)
	text := strings.ToLower(strings.Join(parts, " "))

	for _, group := range mealTypeKeywordGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(text, keyword) {
				return group.mealType
			}
		}
	}

	return ""
}
