package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"unicode 半", "½", 0.5},
		{"unicode 四分之三", "¾", 0.75},
		{"unicode 八分之一", "⅛", 0.125},
		{"帶分數緊鄰", "1½", 1.5},
		{"帶分數空格", "1 ½", 1.5},
		{"帶分數文字", "1 1/2", 1.5},
		{"整數", "2", 2},
		{"小數", "2.5", 2.5},
		{"文字分數", "3/4", 0.75},
		{"前後空白", "  2  ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuantityThirds(t *testing.T) {
	got, err := ParseQuantity("1/3")
	require.NoError(t, err)
	assert.InDelta(t, 0.3333, got, 0.001)

	got, err = ParseQuantity("⅓")
	require.NoError(t, err)
	assert.InDelta(t, 0.3333, got, 0.001)
}

func TestParseQuantityErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"空字串", ""},
		{"分母為零", "3/0"},
		{"垃圾分數", "x/y"},
		{"非數字", "abc"},
		{"負數", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuantity(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"二分之一", 0.5, "½"},
		{"一又二分之一", 1.5, "1½"},
		{"二又四分之三", 2.75, "2¾"},
		{"整數", 2, "2"},
		{"零", 0, "0"},
		{"三分之一浮點", 1.0 / 3, "⅓"},
		{"八分之三", 0.375, "⅜"},
		{"無對應分數", 0.7, "0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatQuantity(tt.input))
		})
	}
}

// 容忍浮點除法誤差：0.3333... 應顯示為 ⅓
func TestFormatQuantityTolerance(t *testing.T) {
	assert.Equal(t, "⅓", FormatQuantity(0.3333))
	assert.Equal(t, "⅔", FormatQuantity(0.6667))
}

// 解析後再格式化應回到等價的顯示字串
func TestQuantityRoundTrip(t *testing.T) {
	for _, s := range []string{"½", "1½", "2¾", "⅛"} {
		parsed, err := ParseQuantity(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatQuantity(parsed), "round trip of %q", s)
	}
}
