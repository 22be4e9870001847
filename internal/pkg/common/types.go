package common

import (
	"fmt"
	"strings"
	"time"
)

// MealType 餐別分類
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
	MealTypeDessert   MealType = "dessert"
)

// IsValid 檢查餐別是否為合法值
func (m MealType) IsValid() bool {
	switch m {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack, MealTypeDessert:
		return true
	}
	return false
}

// Ingredient 結構化食材
// OriginalString 僅在無法解析出數量結構時設置，表示應原樣顯示該行文字
type Ingredient struct {
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	Name           string  `json:"name"`
	OriginalString string  `json:"originalString,omitempty"`
}

// Recipe 食譜記錄
type Recipe struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	MealType        MealType     `json:"mealType"`
	CookTime        string       `json:"cookTime"`
	CookTimeMinutes int          `json:"cookTimeMinutes"`
	IsFavorite      bool         `json:"isFavorite"`
	Author          string       `json:"author,omitempty"`
	Source          string       `json:"source,omitempty"`
	ImageURL        string       `json:"imageUrl"`
	CreatedAt       time.Time    `json:"createdAt"`
	Ingredients     []Ingredient `json:"ingredients"`
	Instructions    []string     `json:"instructions,omitempty"`
}

// AnalysisStatus 分析任務狀態
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// RecipeData 模型抽取出的原始食譜欄位（尚未結構化）
type RecipeData struct {
	Title        string   `json:"title,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	Servings     string   `json:"servings,omitempty"`
	PrepTime     string   `json:"prepTime,omitempty"`
	CookTime     string   `json:"cookTime,omitempty"`
}

// AnalysisResult 模型回應的抽取結果
// RecipeData 僅在信心值達到保留門檻時存在
type AnalysisResult struct {
	RawText     string      `json:"rawText"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	ContentType string      `json:"contentType"`
	RecipeData  *RecipeData `json:"recipeData,omitempty"`
}

// AnalysisError 分類後的抽取錯誤
type AnalysisError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Analysis 文件抽取任務
// RecipeID 一旦設置即視為已處理，即使對應食譜後來被刪除也不會自動重建
type Analysis struct {
	ID              string          `json:"id"`
	UploadID        string          `json:"uploadId"`
	StorageURL      string          `json:"storageUrl,omitempty"`
	Status          AnalysisStatus  `json:"status"`
	AnalysisResult  *AnalysisResult `json:"analysisResult,omitempty"`
	Error           *AnalysisError  `json:"error,omitempty"`
	RetryCount      int             `json:"retryCount"`
	MaxRetries      int             `json:"maxRetries"`
	RecipeID        string          `json:"recipeId,omitempty"`
	RecipeCreatedAt *time.Time      `json:"recipeCreatedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// Upload 上傳的文件記錄
// SourceURL 僅在網址匯入時存在，用來保留食譜出處
type Upload struct {
	ID          string    `json:"id"`
	StorageURL  string    `json:"storageUrl,omitempty"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	HTMLBody    string    `json:"htmlBody,omitempty"`
	UploadDate  time.Time `json:"uploadDate"`
}

// IsImage 判斷上傳文件是否走圖片抽取路徑
func (u *Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image/")
}

// IsHTML 判斷上傳文件是否走網頁抽取路徑
func (u *Upload) IsHTML() bool {
	return u.ContentType == "text/html"
}

// FormatIngredients 將食材列表格式化為多行顯示字串
// 解析失敗的行直接使用原文
func FormatIngredients(ingredients []Ingredient) string {
	var sb strings.Builder
	for _, ing := range ingredients {
		if ing.OriginalString != "" {
			sb.WriteString(fmt.Sprintf("- %s\n", ing.OriginalString))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %g %s %s\n", ing.Quantity, ing.Unit, ing.Name))
	}
	return sb.String()
}
