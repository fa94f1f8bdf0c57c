// internal/publish/wire.go
package publish

import (
	"fmt"
	"strings"

	"menuscan/internal/common/errors"
	"menuscan/internal/draft"
)

// Wire types mirror the backend menu contract. Numeric fields are real
// numbers here; coercion from the draft's editable text happens exactly
// once, at this boundary.

type wireNutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type wireItem struct {
	Name             string        `json:"name"`
	LocalName        string        `json:"local_name,omitempty"`
	Prices           []float64     `json:"prices"`
	Currency         string        `json:"currency,omitempty"`
	Description      string        `json:"description,omitempty"`
	LocalDescription string        `json:"local_description,omitempty"`
	Ingredients      []string      `json:"ingredients"`
	Tags             []string      `json:"tags"`
	LocalTags        []string      `json:"local_tags"`
	Allergies        string        `json:"allergies,omitempty"`
	LocalAllergies   string        `json:"local_allergies,omitempty"`
	Nutrition        wireNutrition `json:"nutritional_info"`
	PrepMinutes      float64       `json:"preparation_time"`
	HowToEat         string        `json:"how_to_eat,omitempty"`
	LocalHowToEat    string        `json:"local_how_to_eat,omitempty"`
	VoiceNote        string        `json:"voice_note,omitempty"`
	Images           []string      `json:"image"`
}

type wireSection struct {
	Name  string     `json:"name"`
	Items []wireItem `json:"items"`
}

type wireMenu struct {
	Name     string        `json:"name"`
	Language string        `json:"language"`
	Tags     []string      `json:"tags"`
	Sections []wireSection `json:"sections"`
}

// buildWireMenu converts the draft to the backend shape, coercing every
// numeric-looking field. Any coercion failure aborts with a validation
// error naming the offending item, never a silent zero.
func buildWireMenu(menu *draft.Menu) (*wireMenu, error) {
	out := &wireMenu{
		Name:     menu.Name,
		Language: menu.Language,
		Tags:     append([]string{}, menu.Tags...),
		Sections: make([]wireSection, 0, len(menu.Sections)),
	}

	for si, section := range menu.Sections {
		ws := wireSection{Name: section.Name, Items: make([]wireItem, 0, len(section.Items))}
		for ii, item := range section.Items {
			if strings.TrimSpace(item.Name) == "" {
				return nil, errors.NewValidationError(
					fmt.Sprintf("section %d item %d has no name", si, ii))
			}

			prices, err := item.PriceValues()
			if err != nil {
				return nil, errors.NewValidationError(
					fmt.Sprintf("item %q: %v", item.Name, err))
			}

			calories, protein, carbs, fat, err := item.Nutrition.Values()
			if err != nil {
				return nil, errors.NewValidationError(
					fmt.Sprintf("item %q: %v", item.Name, err))
			}

			prep, err := draft.CoerceNumber("preparation_time", item.PrepMinutes)
			if err != nil {
				return nil, errors.NewValidationError(
					fmt.Sprintf("item %q: %v", item.Name, err))
			}

			ws.Items = append(ws.Items, wireItem{
				Name:             item.Name,
				LocalName:        item.LocalName,
				Prices:           prices,
				Currency:         item.Currency,
				Description:      item.Description,
				LocalDescription: item.LocalDescription,
				Ingredients:      append([]string{}, item.Ingredients...),
				Tags:             append([]string{}, item.Tags...),
				LocalTags:        append([]string{}, item.LocalTags...),
				Allergies:        item.Allergies,
				LocalAllergies:   item.LocalAllergies,
				Nutrition:        wireNutrition{Calories: calories, Protein: protein, Carbs: carbs, Fat: fat},
				PrepMinutes:      prep,
				HowToEat:         item.HowToEat,
				LocalHowToEat:    item.LocalHowToEat,
				VoiceNote:        item.VoiceNote,
				Images:           append([]string{}, item.Images...),
			})
		}
		out.Sections = append(out.Sections, ws)
	}

	return out, nil
}
