package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const SkillFilterFeatured = "featured"

var SkillFilters = []string{FilterAll, SkillFilterFeatured}

// Skill is one entry of the skills grid.
type Skill struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Proficiency int    `json:"proficiency"`
	IsFeatured  bool   `json:"isFeatured"`
	Order       int    `json:"order"`
}

func (s Skill) GetID() string { return s.ID }

func (s Skill) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Icon, is.URL),
		validation.Field(&s.Proficiency, validation.Min(0), validation.Max(100)),
	)
}

func (s Skill) SearchText() string { return s.Name }

func (s Skill) MatchesFilter(filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case SkillFilterFeatured:
		return s.IsFeatured
	}
	return false
}

func (s Skill) FlagValue(flag string) (bool, bool) {
	if flag == "featured" {
		return s.IsFeatured, true
	}
	return false, false
}

func (s Skill) FlagPatch(flag string, v bool) map[string]any {
	if flag == "featured" {
		return map[string]any{"isFeatured": v}
	}
	return nil
}

func (s Skill) GetOrder() int { return s.Order }

func (s *Skill) SetOrder(order int) { s.Order = order }
