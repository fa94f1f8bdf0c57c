// internal/draft/model.go
package draft

import (
	"fmt"
	"strconv"
	"strings"
)

// Nutrition holds per-item nutritional values. Fields are editable text
// while the draft is being worked on and are coerced to numbers strictly at
// the submit boundary. Absent values default to "0", never to empty.
type Nutrition struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
}

// DefaultNutrition returns the documented zero defaults.
func DefaultNutrition() Nutrition {
	return Nutrition{Calories: "0", Protein: "0", Carbs: "0", Fat: "0"}
}

// Values coerces all four fields. Coercion failure is a validation error,
// not a silent zero.
func (n Nutrition) Values() (calories, protein, carbs, fat float64, err error) {
	if calories, err = CoerceNumber("calories", n.Calories); err != nil {
		return
	}
	if protein, err = CoerceNumber("protein", n.Protein); err != nil {
		return
	}
	if carbs, err = CoerceNumber("carbs", n.Carbs); err != nil {
		return
	}
	fat, err = CoerceNumber("fat", n.Fat)
	return
}

// Item is one editable menu entry. Numeric-looking fields (prices,
// preparation time, nutrition) stay as entered; Images holds only accepted
// absolute URLs from search selections or upload results.
type Item struct {
	Name             string    `json:"name"`
	LocalName        string    `json:"local_name"`
	Prices           []string  `json:"prices"`
	Currency         string    `json:"currency"`
	Description      string    `json:"description"`
	LocalDescription string    `json:"local_description"`
	Ingredients      []string  `json:"ingredients"`
	Tags             []string  `json:"tags"`
	LocalTags        []string  `json:"local_tags"`
	Allergies        string    `json:"allergies"`
	LocalAllergies   string    `json:"local_allergies"`
	Nutrition        Nutrition `json:"nutritional_info"`
	PrepMinutes      string    `json:"preparation_time"`
	HowToEat         string    `json:"how_to_eat"`
	LocalHowToEat    string    `json:"local_how_to_eat"`
	VoiceNote        string    `json:"voice_note,omitempty"`
	Images           []string  `json:"image"`
}

// NewItem returns an item with every optional field at its documented
// default, ready for manual entry.
func NewItem() Item {
	return Item{
		Prices:      []string{"0"},
		Ingredients: []string{},
		Tags:        []string{},
		LocalTags:   []string{},
		Nutrition:   DefaultNutrition(),
		PrepMinutes: "0",
		Images:      []string{},
	}
}

// Price returns the primary price as entered.
func (it *Item) Price() string {
	if len(it.Prices) == 0 {
		return ""
	}
	return it.Prices[0]
}

// PriceValues coerces every price. Used only at the submit boundary.
func (it *Item) PriceValues() ([]float64, error) {
	out := make([]float64, 0, len(it.Prices))
	for _, p := range it.Prices {
		v, err := CoerceNumber("price", p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// HasImage reports whether url is already in the item's image list.
func (it *Item) HasImage(url string) bool {
	for _, u := range it.Images {
		if u == url {
			return true
		}
	}
	return false
}

// Section is an ordered group of items. Order is insertion order and
// reflects menu layout.
type Section struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Menu is the client-held draft. It has no backend identity until the
// publish orchestrator's create call succeeds.
type Menu struct {
	Name     string    `json:"name"`
	Language string    `json:"language"`
	Tags     []string  `json:"tags"`
	Sections []Section `json:"sections"`
}

// NewMenu returns an empty draft ready for manual entry or reconciliation.
func NewMenu(name, language string) *Menu {
	return &Menu{
		Name:     name,
		Language: language,
		Tags:     []string{},
		Sections: []Section{},
	}
}

// IsEmpty reports whether the draft has no section containing a named item.
// An empty draft must be rejected before any network call.
func (m *Menu) IsEmpty() bool {
	for _, s := range m.Sections {
		for _, it := range s.Items {
			if strings.TrimSpace(it.Name) != "" {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy so observers never alias the live tree.
func (m *Menu) Clone() *Menu {
	out := &Menu{
		Name:     m.Name,
		Language: m.Language,
		Tags:     append([]string{}, m.Tags...),
		Sections: make([]Section, len(m.Sections)),
	}
	for i, s := range m.Sections {
		cs := Section{Name: s.Name, Items: make([]Item, len(s.Items))}
		for j, it := range s.Items {
			ci := it
			ci.Prices = append([]string{}, it.Prices...)
			ci.Ingredients = append([]string{}, it.Ingredients...)
			ci.Tags = append([]string{}, it.Tags...)
			ci.LocalTags = append([]string{}, it.LocalTags...)
			ci.Images = append([]string{}, it.Images...)
			cs.Items[j] = ci
		}
		out.Sections[i] = cs
	}
	return out
}

// CoerceNumber strictly converts an editable text field to a number at the
// submit boundary. Empty or non-numeric input is an error.
func CoerceNumber(field, raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%s is empty", field)
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not numeric", field, raw)
	}
	return v, nil
}
