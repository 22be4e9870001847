package vision

import "fmt"

// Prompt 版本化的提示詞
// 所有送往模型的提示詞集中在這裡，改動容易在 diff 中看到，
// 每筆回應也能記錄是由哪個版本的提示詞產生
type Prompt struct {
	Name    string
	Version string
	Content string
}

// Tag 回傳 "name@version"，供儲存在記錄中
func (p Prompt) Tag() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// RecipeAnalysisPrompt 圖片文件的食譜抽取提示詞
var RecipeAnalysisPrompt = Prompt{
	Name:    "recipe_analysis",
	Version: "1.0",
	Content: `You are a recipe extraction assistant. Analyze this image and extract recipe information.

Your response MUST be valid JSON with this exact structure:
{
  "rawText": "Full text content visible in the image, preserving line breaks",
  "description": "Brief 1-2 sentence description of what the image contains",
  "confidence": 0.0 to 1.0 (how confident you are this is a recipe with parseable data),
  "contentType": "recipe" | "ingredient_list" | "other",
  "recipeData": {
    "title": "Recipe title if found",
    "ingredients": ["ingredient 1", "ingredient 2", ...],
    "instructions": ["step 1", "step 2", ...],
    "servings": "Number of servings if found",
    "prepTime": "Prep time if found (e.g., '15 minutes')",
    "cookTime": "Cook time if found (e.g., '30 minutes')"
  }
}

Rules:
1. ALWAYS include rawText, description, confidence, and contentType
2. Only include recipeData if you can confidently extract at least a title AND (ingredients OR instructions)
3. Set confidence to 0.7+ only if you can extract meaningful structured data
4. For ingredient_list content (shopping lists, ingredient notes), still extract what you can
5. For "other" content, set confidence low and omit recipeData
6. If text is not in English, translate it to English in the extracted data
7. Clean up OCR artifacts and formatting issues in the extracted text

Respond ONLY with valid JSON, no additional text.`,
}

// RecipeHTMLAnalysisPrompt 網頁原始碼的食譜抽取提示詞
var RecipeHTMLAnalysisPrompt = Prompt{
	Name:    "recipe_html_analysis",
	Version: "1.0",
	Content: `You are a recipe extraction assistant. Analyze this raw HTML from a recipe webpage and extract recipe information.

Your response MUST be valid JSON with this exact structure:
{
  "rawText": "Important recipe text extracted from the HTML, preserving line breaks",
  "description": "Brief 1-2 sentence description of the recipe page",
  "confidence": 0.0 to 1.0 (how confident you are this is a recipe with parseable data),
  "contentType": "recipe" | "ingredient_list" | "other",
  "recipeData": {
    "title": "Recipe title if found",
    "ingredients": ["ingredient 1", "ingredient 2", ...],
    "instructions": ["step 1", "step 2", ...],
    "servings": "Number of servings if found",
    "prepTime": "Prep time if found (e.g., '15 minutes')",
    "cookTime": "Cook time if found (e.g., '30 minutes')"
  }
}

Rules:
1. ALWAYS include rawText, description, confidence, and contentType
2. Only include recipeData if you can confidently extract at least a title AND (ingredients OR instructions)
3. Ignore navigation, ads, comments and other page chrome
4. Set confidence to 0.7+ only if you can extract meaningful structured data
5. If text is not in English, translate it to English in the extracted data

Respond ONLY with valid JSON, no additional text.`,
}
