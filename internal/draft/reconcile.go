// internal/draft/reconcile.go
package draft

import (
	"fmt"
	"strconv"
	"strings"

	"menuscan/internal/common/errors"
	"menuscan/internal/extraction"
)

// ImportedSectionName is the canonical name given to the section holding
// reconciled extraction output.
const ImportedSectionName = "Imported"

// nameKeys are the fields accepted as an item's name, in lookup order.
var nameKeys = []string{"name", "item_name", "title"}

// Reconcile maps loosely-typed extraction output onto the canonical draft
// shape. Pure and deterministic: same input, same output, no reliance on
// prior draft state. No item is ever dropped; every absent optional field
// takes its documented default. Only an item without any name-like field is
// an error.
func Reconcile(raw []extraction.RawItem) (Section, error) {
	section := Section{
		Name:  ImportedSectionName,
		Items: make([]Item, 0, len(raw)),
	}

	for i, ri := range raw {
		name := lookupName(ri)
		if name == "" {
			return Section{}, errors.NewMalformedResultError(
				fmt.Sprintf("item %d has no name-like field", i))
		}

		item := NewItem()
		item.Name = name
		item.LocalName = stringField(ri, "local_name")
		if prices := priceList(ri); len(prices) > 0 {
			item.Prices = prices
		}
		item.Currency = stringField(ri, "currency")
		item.Description = stringField(ri, "description")
		item.LocalDescription = stringField(ri, "local_description")
		item.Ingredients = stringList(ri, "ingredients")
		item.Tags = stringList(ri, "tags")
		item.LocalTags = stringList(ri, "local_tags")
		item.Allergies = stringField(ri, "allergies")
		item.LocalAllergies = stringField(ri, "local_allergies")
		item.Nutrition = nutritionField(ri)
		if prep := numericText(ri["preparation_time"]); prep != "" {
			item.PrepMinutes = prep
		}
		item.HowToEat = stringField(ri, "how_to_eat")
		item.LocalHowToEat = stringField(ri, "local_how_to_eat")
		item.VoiceNote = stringField(ri, "voice_note")
		item.Images = stringList(ri, "image")

		section.Items = append(section.Items, item)
	}

	return section, nil
}

func lookupName(ri extraction.RawItem) string {
	for _, key := range nameKeys {
		if v := stringField(ri, key); v != "" {
			return v
		}
	}
	return ""
}

// stringField reads a string-valued field, tolerating numeric values the
// extraction service typed loosely.
func stringField(ri extraction.RawItem, key string) string {
	return numericText(ri[key])
}

// numericText renders a loosely-typed scalar as editable text. Numbers keep
// a compact decimal form so "250" and 250 reconcile identically.
func numericText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func stringList(ri extraction.RawItem, key string) []string {
	out := []string{}
	switch t := ri[key].(type) {
	case []interface{}:
		for _, e := range t {
			if s := numericText(e); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// priceList accepts a scalar price or an array of prices.
func priceList(ri extraction.RawItem) []string {
	switch t := ri["price"].(type) {
	case []interface{}:
		out := []string{}
		for _, e := range t {
			if s := numericText(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := numericText(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func nutritionField(ri extraction.RawItem) Nutrition {
	n := DefaultNutrition()
	m, ok := ri["nutritional_info"].(map[string]interface{})
	if !ok {
		return n
	}
	if v := numericText(m["calories"]); v != "" {
		n.Calories = v
	}
	if v := numericText(m["protein"]); v != "" {
		n.Protein = v
	}
	if v := numericText(m["carbs"]); v != "" {
		n.Carbs = v
	}
	if v := numericText(m["fat"]); v != "" {
		n.Fat = v
	}
	return n
}
