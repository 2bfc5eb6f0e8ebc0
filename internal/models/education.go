package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Education entry kinds, also used as filter views.
const (
	EducationTypeEducation     = "education"
	EducationTypeCertification = "certification"
	EducationTypeAchievement   = "achievement"
	EducationTypePublication   = "publication"
)

var EducationFilters = []string{
	FilterAll,
	EducationTypeEducation,
	EducationTypeCertification,
	EducationTypeAchievement,
	EducationTypePublication,
}

// Education is a degree, certificate, achievement or publication.
type Education struct {
	ID             string `json:"_id,omitempty"`
	Type           string `json:"type"`
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Period         string `json:"period"`
	Description    string `json:"description"`
	CertificateURL string `json:"certificateUrl,omitempty"`
}

func (e Education) GetID() string { return e.ID }

func (e Education) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In(
			EducationTypeEducation,
			EducationTypeCertification,
			EducationTypeAchievement,
			EducationTypePublication,
		)),
		validation.Field(&e.Institution, validation.Required),
		validation.Field(&e.Degree, validation.Required),
		validation.Field(&e.Period, validation.Required),
		validation.Field(&e.CertificateURL, is.URL),
	)
}

func (e Education) SearchText() string {
	return joinText(e.Institution, e.Degree, e.Description)
}

func (e Education) MatchesFilter(filter string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return e.Type == filter
}
