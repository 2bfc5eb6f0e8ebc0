package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SiteContent is the singleton hero/about document.
type SiteContent struct {
	ID            string   `json:"_id,omitempty"`
	HeroTexts     []string `json:"heroTexts"`
	Intro         string   `json:"intro"`
	ResumeURL     string   `json:"resumeUrl"`
	AboutIntro    string   `json:"aboutIntro"`
	AboutJourney  string   `json:"aboutJourney"`
	AboutApproach string   `json:"aboutApproach"`
	AboutPersonal string   `json:"aboutPersonal"`
}

func (c SiteContent) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HeroTexts, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Intro, validation.Required),
		validation.Field(&c.ResumeURL, is.URL),
	)
}
