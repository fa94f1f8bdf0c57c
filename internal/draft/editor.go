// internal/draft/editor.go
package draft

import (
	"fmt"
	"strings"
	"sync"
)

// NameChangeHook is invoked fire-and-forget whenever an item's name field
// changes, so the caller can kick off an image-candidate search keyed by the
// new name without blocking the edit.
type NameChangeHook func(sectionIdx, itemIdx int, name string)

// Editor is the single writer for a draft menu. Every mutation is a
// read-modify-write against the latest in-memory snapshot, so a
// late-resolving async update (an image-search selection, an upload result)
// merges with concurrent edits to unrelated fields instead of overwriting
// them from a stale captured copy.
type Editor struct {
	mu           sync.Mutex
	menu         *Menu
	onNameChange NameChangeHook
}

// NewEditor wraps a menu. The editor takes ownership: the caller must not
// mutate the menu directly afterwards.
func NewEditor(menu *Menu) *Editor {
	if menu == nil {
		menu = NewMenu("", "")
	}
	return &Editor{menu: menu}
}

// SetNameChangeHook registers the image-search trigger. Must be called
// before concurrent use begins.
func (e *Editor) SetNameChangeHook(hook NameChangeHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNameChange = hook
}

// Snapshot returns a deep copy of the current draft for rendering. Observers
// never alias the live tree.
func (e *Editor) Snapshot() *Menu {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menu.Clone()
}

// SetMenuName renames the draft.
func (e *Editor) SetMenuName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu.Name = name
}

// AddMenuTag appends a free-form tag, ignoring empty input.
func (e *Editor) AddMenuTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu.Tags = append(e.menu.Tags, tag)
}

// AddSection appends an untitled section and returns its index.
func (e *Editor) AddSection() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu.Sections = append(e.menu.Sections, Section{Name: "Untitled", Items: []Item{}})
	return len(e.menu.Sections) - 1
}

// AppendSection inserts an already-built section, e.g. the reconciler's
// "Imported" output, and returns its index.
func (e *Editor) AppendSection(section Section) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if section.Items == nil {
		section.Items = []Item{}
	}
	e.menu.Sections = append(e.menu.Sections, section)
	return len(e.menu.Sections) - 1
}

// RenameSection sets the section name.
func (e *Editor) RenameSection(sectionIdx int, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkSection(sectionIdx); err != nil {
		return err
	}
	e.menu.Sections[sectionIdx].Name = name
	return nil
}

// AddItem appends a new all-default item to the section and returns its index.
func (e *Editor) AddItem(sectionIdx int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkSection(sectionIdx); err != nil {
		return 0, err
	}
	s := &e.menu.Sections[sectionIdx]
	s.Items = append(s.Items, NewItem())
	return len(s.Items) - 1, nil
}

// RemoveItem deletes the item at the given position.
func (e *Editor) RemoveItem(sectionIdx, itemIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	s := &e.menu.Sections[sectionIdx]
	s.Items = append(s.Items[:itemIdx], s.Items[itemIdx+1:]...)
	return nil
}

// SetItemField updates one scalar field on an item. Setting the name field
// additionally fires the image-search hook with the new name.
func (e *Editor) SetItemField(sectionIdx, itemIdx int, field, value string) error {
	e.mu.Lock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		e.mu.Unlock()
		return err
	}

	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	var nameChanged bool

	switch field {
	case "name":
		nameChanged = it.Name != value
		it.Name = value
	case "local_name":
		it.LocalName = value
	case "price":
		if len(it.Prices) == 0 {
			it.Prices = []string{value}
		} else {
			it.Prices[0] = value
		}
	case "currency":
		it.Currency = value
	case "description":
		it.Description = value
	case "local_description":
		it.LocalDescription = value
	case "allergies":
		it.Allergies = value
	case "local_allergies":
		it.LocalAllergies = value
	case "preparation_time":
		it.PrepMinutes = value
	case "how_to_eat":
		it.HowToEat = value
	case "local_how_to_eat":
		it.LocalHowToEat = value
	case "voice_note":
		it.VoiceNote = value
	default:
		e.mu.Unlock()
		return fmt.Errorf("unknown item field %q", field)
	}

	hook := e.onNameChange
	e.mu.Unlock()

	if nameChanged && hook != nil && strings.TrimSpace(value) != "" {
		go hook(sectionIdx, itemIdx, value)
	}
	return nil
}

// SetNutritionField updates one nutrition sub-field.
func (e *Editor) SetNutritionField(sectionIdx, itemIdx int, subField, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	n := &e.menu.Sections[sectionIdx].Items[itemIdx].Nutrition
	switch subField {
	case "calories":
		n.Calories = value
	case "protein":
		n.Protein = value
	case "carbs":
		n.Carbs = value
	case "fat":
		n.Fat = value
	default:
		return fmt.Errorf("unknown nutrition field %q", subField)
	}
	return nil
}

// AddIngredient appends an ingredient, ignoring empty or whitespace-only input.
func (e *Editor) AddIngredient(sectionIdx, itemIdx int, ingredient string) error {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	it.Ingredients = append(it.Ingredients, ingredient)
	return nil
}

// RemoveIngredient deletes the ingredient at the given position.
func (e *Editor) RemoveIngredient(sectionIdx, itemIdx, ingredientIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	if ingredientIdx < 0 || ingredientIdx >= len(it.Ingredients) {
		return fmt.Errorf("ingredient index %d out of range", ingredientIdx)
	}
	it.Ingredients = append(it.Ingredients[:ingredientIdx], it.Ingredients[ingredientIdx+1:]...)
	return nil
}

// AddTag appends a tag, ignoring empty or whitespace-only input.
func (e *Editor) AddTag(sectionIdx, itemIdx int, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	it.Tags = append(it.Tags, tag)
	return nil
}

// RemoveTag deletes the tag at the given position.
func (e *Editor) RemoveTag(sectionIdx, itemIdx, tagIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	if tagIdx < 0 || tagIdx >= len(it.Tags) {
		return fmt.Errorf("tag index %d out of range", tagIdx)
	}
	it.Tags = append(it.Tags[:tagIdx], it.Tags[tagIdx+1:]...)
	return nil
}

// ToggleImage removes url from the item's image list if present, otherwise
// appends it. Removal is a set-difference, not index-based, so it stays
// correct when the surrounding search results were refreshed concurrently.
// Both search-result selection and local-upload results route through here.
func (e *Editor) ToggleImage(sectionIdx, itemIdx int, url string) error {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkItem(sectionIdx, itemIdx); err != nil {
		return err
	}
	it := &e.menu.Sections[sectionIdx].Items[itemIdx]
	if it.HasImage(url) {
		kept := make([]string, 0, len(it.Images)-1)
		for _, u := range it.Images {
			if u != url {
				kept = append(kept, u)
			}
		}
		it.Images = kept
		return nil
	}
	it.Images = append(it.Images, url)
	return nil
}

func (e *Editor) checkSection(sectionIdx int) error {
	if sectionIdx < 0 || sectionIdx >= len(e.menu.Sections) {
		return fmt.Errorf("section index %d out of range", sectionIdx)
	}
	return nil
}

func (e *Editor) checkItem(sectionIdx, itemIdx int) error {
	if err := e.checkSection(sectionIdx); err != nil {
		return err
	}
	if itemIdx < 0 || itemIdx >= len(e.menu.Sections[sectionIdx].Items) {
		return fmt.Errorf("item index %d out of range in section %d", itemIdx, sectionIdx)
	}
	return nil
}
