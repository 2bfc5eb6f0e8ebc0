package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Project is a portfolio showcase item. Any category name is a valid filter.
type Project struct {
	ID           string   `json:"_id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	LiveURL      string   `json:"liveUrl"`
	SourceURL    string   `json:"sourceUrl"`
	Image        string   `json:"image"`
	Category     string   `json:"category"`
}

func (p Project) GetID() string { return p.ID }

func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Description, validation.Required),
		validation.Field(&p.Technologies, validation.Required, validation.Each(validation.Required)),
		validation.Field(&p.LiveURL, is.URL),
		validation.Field(&p.SourceURL, is.URL),
		validation.Field(&p.Image, is.URL),
		validation.Field(&p.Category, validation.Required),
	)
}

func (p Project) SearchText() string {
	return joinText(p.Title, p.Description, strings.Join(p.Technologies, " "))
}

func (p Project) MatchesFilter(filter string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return strings.EqualFold(p.Category, filter)
}
