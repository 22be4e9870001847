package vision

import (
	"fmt"

	"recipe-importer/internal/pkg/common"
)

// rawAnalysisResult 用指針欄位區分「缺欄位 / null」與空值
type rawAnalysisResult struct {
	RawText     *string        `json:"rawText"`
	Description *string        `json:"description"`
	Confidence  *float64       `json:"confidence"`
	ContentType *string        `json:"contentType"`
	RecipeData  *rawRecipeData `json:"recipeData"`
}

type rawRecipeData struct {
	Title        *string   `json:"title"`
	Ingredients  []*string `json:"ingredients"`
	Instructions []*string `json:"instructions"`
	Servings     *string   `json:"servings"`
	PrepTime     *string   `json:"prepTime"`
	CookTime     *string   `json:"cookTime"`
}

// ParseAnalysisResponse 解析模型回應中的抽取結果
// 容忍 JSON 前後的說明文字；rawText/description/confidence/contentType
// 任一缺失都視為解析錯誤（可重試）；recipeData 內的 null 一律正規化為「不存在」
func ParseAnalysisResponse(content string) (*common.AnalysisResult, error) {
	jsonStr, err := common.ExtractJSONObject(content)
	if err != nil {
		return nil, NewExtractionError(ErrCodeParseError, err.Error(), true)
	}

	var raw rawAnalysisResult
	if err := common.ParseJSON(jsonStr, &raw); err != nil {
		return nil, NewExtractionError(ErrCodeParseError, fmt.Sprintf("failed to parse response JSON: %v", err), true)
	}

	// 驗證必要欄位
	if raw.RawText == nil {
		return nil, NewExtractionError(ErrCodeParseError, "missing rawText field", true)
	}
	if raw.Description == nil {
		return nil, NewExtractionError(ErrCodeParseError, "missing description field", true)
	}
	if raw.Confidence == nil {
		return nil, NewExtractionError(ErrCodeParseError, "missing confidence field", true)
	}
	if raw.ContentType == nil {
		return nil, NewExtractionError(ErrCodeParseError, "missing contentType field", true)
	}

	result := &common.AnalysisResult{
		RawText:     *raw.RawText,
		Description: *raw.Description,
		Confidence:  *raw.Confidence,
		ContentType: *raw.ContentType,
	}

	if raw.RecipeData != nil {
		result.RecipeData = sanitizeRecipeData(raw.RecipeData)
	}

	return result, nil
}

// sanitizeRecipeData 將 recipeData 內的 null 正規化為「不存在」
// JSON 有 null，但持久化層的可選欄位以缺省表示
func sanitizeRecipeData(raw *rawRecipeData) *common.RecipeData {
	data := &common.RecipeData{
		Title:        derefString(raw.Title),
		Ingredients:  dropNullStrings(raw.Ingredients),
		Instructions: dropNullStrings(raw.Instructions),
		Servings:     derefString(raw.Servings),
		PrepTime:     derefString(raw.PrepTime),
		CookTime:     derefString(raw.CookTime),
	}
	return data
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dropNullStrings(items []*string) []string {
	if items == nil {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item != nil {
			result = append(result, *item)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
