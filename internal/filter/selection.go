package filter

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/model"
)

// Selection mirrors the POI checkbox group: one box per category plus the
// "all" box. The "all" box is only reconciled by ToggleAll and ToggleCategory;
// it is not derived on read.
type Selection struct {
	all     bool
	checked [5]bool
}

// AllSelected returns a selection with every box checked.
func AllSelected() Selection {
	return NewSelection(true)
}

// NoneSelected returns a selection with every box cleared.
func NoneSelected() Selection {
	return NewSelection(false)
}

// NewSelection initializes the group the way the map UI does on load: when
// the "all" box starts checked every category is checked.
func NewSelection(allChecked bool) Selection {
	var s Selection
	s.ToggleAll(allChecked)
	return s
}

// SelectionOf returns a selection with exactly the given categories checked
// and the "all" box reconciled.
func SelectionOf(cats ...model.Category) (Selection, error) {
	s := NoneSelected()
	for _, c := range cats {
		if err := s.ToggleCategory(c, true); err != nil {
			return Selection{}, err
		}
	}
	return s, nil
}

// ParseSelection parses a comma separated category list such as "park,museum".
// An empty string or "all" selects every category; "none" clears them.
func ParseSelection(raw string) (Selection, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "", "all":
		return AllSelected(), nil
	case "none":
		return NoneSelected(), nil
	}

	var cats []model.Category
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := model.ParseCategory(part)
		if err != nil {
			return Selection{}, eris.Wrap(err, "filter: parse selection")
		}
		if c == model.CategoryAll {
			return AllSelected(), nil
		}
		cats = append(cats, c)
	}
	return SelectionOf(cats...)
}

// ToggleAll sets the "all" box and copies its value onto every category.
func (s *Selection) ToggleAll(checked bool) {
	s.all = checked
	for i := range s.checked {
		s.checked[i] = checked
	}
}

// ToggleCategory sets one category box and then recomputes the "all" box as
// true iff every category is checked. Siblings are left untouched.
func (s *Selection) ToggleCategory(c model.Category, checked bool) error {
	if c == model.CategoryAll {
		s.ToggleAll(checked)
		return nil
	}
	i := categoryIndex(c)
	if i < 0 {
		return eris.Errorf("filter: unknown category %q", c)
	}
	s.checked[i] = checked
	s.all = s.everyChecked()
	return nil
}

// All reports the state of the "all" box.
func (s Selection) All() bool {
	return s.all
}

// Checked reports whether category c is checked. CategoryAll reports the "all" box.
func (s Selection) Checked(c model.Category) bool {
	if c == model.CategoryAll {
		return s.all
	}
	i := categoryIndex(c)
	return i >= 0 && s.checked[i]
}

// Selected returns the checked categories in display order.
func (s Selection) Selected() []model.Category {
	var out []model.Category
	for i, c := range model.Categories {
		if s.checked[i] {
			out = append(out, c)
		}
	}
	return out
}

// String renders the selection in the format accepted by ParseSelection.
func (s Selection) String() string {
	if s.all {
		return "all"
	}
	sel := s.Selected()
	if len(sel) == 0 {
		return "none"
	}
	parts := make([]string, len(sel))
	for i, c := range sel {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler so selections serialize as
// their String form in JSON and YAML.
func (s Selection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selection) UnmarshalText(b []byte) error {
	parsed, err := ParseSelection(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Selection) everyChecked() bool {
	for _, v := range s.checked {
		if !v {
			return false
		}
	}
	return true
}

func categoryIndex(c model.Category) int {
	for i, cat := range model.Categories {
		if cat == c {
			return i
		}
	}
	return -1
}
