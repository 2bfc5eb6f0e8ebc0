package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const ExperienceFilterCurrent = "current"

var ExperienceFilters = []string{FilterAll, ExperienceFilterCurrent}

// Experience is a position in the work history.
type Experience struct {
	ID           string   `json:"_id,omitempty"`
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
	Current      bool     `json:"current"`
}

func (e Experience) GetID() string { return e.ID }

func (e Experience) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Company, validation.Required),
		validation.Field(&e.Position, validation.Required),
		validation.Field(&e.StartDate, validation.Required),
		validation.Field(&e.EndDate, validation.When(!e.Current, validation.Required)),
		validation.Field(&e.Description, validation.Required),
		validation.Field(&e.Achievements, validation.Each(validation.Required)),
		validation.Field(&e.Technologies, validation.Each(validation.Required)),
	)
}

func (e Experience) SearchText() string {
	return joinText(e.Company, e.Position, strings.Join(e.Technologies, " "))
}

func (e Experience) MatchesFilter(filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case ExperienceFilterCurrent:
		return e.Current
	}
	return false
}

// Period renders the start/end range, "Present" for the current job.
func (e Experience) Period() string {
	end := e.EndDate
	if e.Current {
		end = "Present"
	}
	return e.StartDate + " – " + end
}
