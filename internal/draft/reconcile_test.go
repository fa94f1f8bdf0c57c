// internal/draft/reconcile_test.go
package draft

import (
	"testing"

	"menuscan/internal/common/errors"
	"menuscan/internal/extraction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_ItemCountMatchesInput(t *testing.T) {
	tests := []struct {
		name  string
		input []extraction.RawItem
		count int
	}{
		{
			name:  "empty input yields empty section",
			input: []extraction.RawItem{},
			count: 0,
		},
		{
			name: "single minimal item",
			input: []extraction.RawItem{
				{"name": "Doro Wat", "price": "250"},
			},
			count: 1,
		},
		{
			name: "items with mixed field coverage are never dropped",
			input: []extraction.RawItem{
				{"name": "Kitfo"},
				{"name": "Tibs", "price": 180.0, "description": "sauteed beef"},
				{"item_name": "Shiro", "ingredients": []interface{}{"chickpea", "berbere"}},
			},
			count: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, err := Reconcile(tt.input)
			require.NoError(t, err)
			assert.Equal(t, ImportedSectionName, section.Name)
			assert.Len(t, section.Items, tt.count)
		})
	}
}

func TestReconcile_EveryOptionalFieldDefaulted(t *testing.T) {
	section, err := Reconcile([]extraction.RawItem{{"name": "Doro Wat", "price": "250"}})
	require.NoError(t, err)
	require.Len(t, section.Items, 1)

	item := section.Items[0]
	assert.Equal(t, "Doro Wat", item.Name)
	assert.Equal(t, "250", item.Price())

	price, err := CoerceNumber("price", item.Price())
	require.NoError(t, err)
	assert.Equal(t, 250.0, price)

	// No undefined leaves: nutrition fully populated with zeros, arrays empty.
	assert.Equal(t, DefaultNutrition(), item.Nutrition)
	assert.Equal(t, []string{}, item.Ingredients)
	assert.Equal(t, []string{}, item.Tags)
	assert.Equal(t, []string{}, item.Images)
	assert.Equal(t, "0", item.PrepMinutes)
}

func TestReconcile_LooselyTypedFields(t *testing.T) {
	section, err := Reconcile([]extraction.RawItem{
		{
			"name":  "Tibs",
			"price": 180.0, // number, not string
			"nutritional_info": map[string]interface{}{
				"calories": 420.0,
				"protein":  "32", // string, not number
			},
			"preparation_time": 25.0,
			"tags":             []interface{}{"spicy", 5, ""},
		},
	})
	require.NoError(t, err)
	require.Len(t, section.Items, 1)

	item := section.Items[0]
	assert.Equal(t, "180", item.Price())
	assert.Equal(t, "420", item.Nutrition.Calories)
	assert.Equal(t, "32", item.Nutrition.Protein)
	assert.Equal(t, "0", item.Nutrition.Carbs) // absent field keeps default
	assert.Equal(t, "25", item.PrepMinutes)
	assert.Equal(t, []string{"spicy", "5"}, item.Tags)
}

func TestReconcile_MultiplePrices(t *testing.T) {
	section, err := Reconcile([]extraction.RawItem{
		{"name": "Injera Platter", "price": []interface{}{"350", 450.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"350", "450"}, section.Items[0].Prices)
}

func TestReconcile_NameLikeFieldFallbacks(t *testing.T) {
	section, err := Reconcile([]extraction.RawItem{
		{"item_name": "Shiro"},
		{"title": "Beyaynetu"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shiro", section.Items[0].Name)
	assert.Equal(t, "Beyaynetu", section.Items[1].Name)
}

func TestReconcile_MissingNameIsMalformed(t *testing.T) {
	_, err := Reconcile([]extraction.RawItem{
		{"name": "Kitfo"},
		{"price": "90"}, // no name-like field
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResult))
}

func TestReconcile_Deterministic(t *testing.T) {
	input := []extraction.RawItem{
		{"name": "Kitfo", "price": "220", "tags": []interface{}{"raw", "beef"}},
	}
	first, err := Reconcile(input)
	require.NoError(t, err)
	second, err := Reconcile(input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
