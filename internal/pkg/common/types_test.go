package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMealTypeIsValid(t *testing.T) {
	for _, m := range []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack, MealTypeDessert} {
		assert.True(t, m.IsValid(), "%s", m)
	}
	assert.False(t, MealType("brunch").IsValid())
	assert.False(t, MealType("").IsValid())
}

func TestUploadContentTypeHelpers(t *testing.T) {
	image := Upload{ContentType: "image/jpeg"}
	assert.True(t, image.IsImage())
	assert.False(t, image.IsHTML())

	page := Upload{ContentType: "text/html"}
	assert.True(t, page.IsHTML())
	assert.False(t, page.IsImage())

	pdf := Upload{ContentType: "application/pdf"}
	assert.False(t, pdf.IsImage())
	assert.False(t, pdf.IsHTML())
}

func TestFormatIngredients(t *testing.T) {
	out := FormatIngredients([]Ingredient{
		{Quantity: 2, Unit: "cups", Name: "flour"},
		{Quantity: 1, Unit: "whole", Name: "salt to taste", OriginalString: "salt to taste"},
	})
	assert.Equal(t, "- 2 cups flour\n- salt to taste\n", out)
}
