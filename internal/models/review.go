package models

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Review filter views.
const (
	ReviewFilterActive   = "active"
	ReviewFilterInactive = "inactive"
	ReviewFilterFeatured = "featured"
)

var ReviewFilters = []string{FilterAll, ReviewFilterActive, ReviewFilterInactive, ReviewFilterFeatured}

// Review is a testimonial shown on the site.
type Review struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Company     string `json:"company,omitempty"`
	Rating      int    `json:"rating"`
	Text        string `json:"text"`
	ProjectType string `json:"projectType"`
	IsActive    bool   `json:"isActive"`
	IsFeatured  bool   `json:"isFeatured"`
	Order       int    `json:"order"`
}

func (r Review) GetID() string { return r.ID }

func (r Review) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Position, validation.Required),
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&r.Text, validation.Required),
		validation.Field(&r.ProjectType, validation.Required),
	)
}

func (r Review) SearchText() string {
	return joinText(r.Name, r.Company, r.Position, r.Text)
}

func (r Review) MatchesFilter(filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case ReviewFilterActive:
		return r.IsActive
	case ReviewFilterInactive:
		return !r.IsActive
	case ReviewFilterFeatured:
		return r.IsFeatured
	}
	return false
}

// MarshalJSON adds the star rendering of the rating for display.
func (r Review) MarshalJSON() ([]byte, error) {
	type stored Review
	return json.Marshal(struct {
		stored
		Stars string `json:"stars"`
	}{stored(r), r.Stars()})
}

// DerivedFields lists the display-only keys added by MarshalJSON.
func (r Review) DerivedFields() []string { return []string{"stars"} }

// Stars renders the rating as a five-character star string.
func (r Review) Stars() string {
	out := make([]rune, 0, 5)
	for i := 1; i <= 5; i++ {
		if i <= r.Rating {
			out = append(out, '★')
		} else {
			out = append(out, '☆')
		}
	}
	return string(out)
}

func (r Review) FlagValue(flag string) (bool, bool) {
	switch flag {
	case "active":
		return r.IsActive, true
	case "featured":
		return r.IsFeatured, true
	}
	return false, false
}

func (r Review) FlagPatch(flag string, v bool) map[string]any {
	switch flag {
	case "active":
		return map[string]any{"isActive": v}
	case "featured":
		return map[string]any{"isFeatured": v}
	}
	return nil
}

func (r Review) GetOrder() int { return r.Order }

func (r *Review) SetOrder(order int) { r.Order = order }
