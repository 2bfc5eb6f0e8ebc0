package shell

import (
	"time"

	"github.com/starford/folio/internal/contentapi"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/panel"
)

// Panel ids in sidebar order.
const (
	PanelMessages   = "messages"
	PanelReviews    = "reviews"
	PanelBlog       = "blog"
	PanelSkills     = "skills"
	PanelEducation  = "education"
	PanelProjects   = "projects"
	PanelExperience = "experience"
	PanelContent    = "content"
)

// DefaultPanel is shown after sign-in.
const DefaultPanel = PanelMessages

// DefaultPollInterval is how often the inbox is refreshed while visible.
const DefaultPollInterval = 30 * time.Second

// Specs returns the panel catalogue. poll applies to the messages panel.
func Specs(poll time.Duration) []panel.Spec {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return []panel.Spec{
		{
			Name: PanelMessages, Title: "Messages", Noun: "message", Resource: "messages",
			Flags:        []string{"read", "starred", "archived"},
			PollInterval: poll,
			Filters:      models.MessageFilters,
		},
		{
			Name: PanelReviews, Title: "Reviews", Noun: "review", Resource: "reviews",
			AllowCreate: true, Flags: []string{"active", "featured"}, Reorderable: true,
			Filters: models.ReviewFilters,
		},
		{
			Name: PanelBlog, Title: "Blog", Noun: "post", Resource: "blogs",
			AllowCreate: true, Flags: []string{"published"},
			Filters: models.BlogFilters,
		},
		{
			Name: PanelSkills, Title: "Skills", Noun: "skill", Resource: "skills",
			AllowCreate: true, Flags: []string{"featured"}, Reorderable: true,
			Filters: models.SkillFilters,
		},
		{
			Name: PanelEducation, Title: "Education", Noun: "entry", Resource: "education",
			AllowCreate: true, Filters: models.EducationFilters,
		},
		{
			Name: PanelProjects, Title: "Projects", Noun: "project", Resource: "projects",
			AllowCreate: true,
		},
		{
			Name: PanelExperience, Title: "Experience", Noun: "position", Resource: "experience",
			AllowCreate: true, Filters: models.ExperienceFilters,
		},
		{Name: PanelContent, Title: "Site content", Noun: "site content", Resource: "content"},
	}
}

// Panels is the full set of panels of one operator.
type Panels struct {
	Messages   *panel.Panel[models.Message]
	Reviews    *panel.Panel[models.Review]
	Blog       *panel.Panel[models.BlogPost]
	Skills     *panel.Panel[models.Skill]
	Education  *panel.Panel[models.Education]
	Projects   *panel.Panel[models.Project]
	Experience *panel.Panel[models.Experience]
	Content    *panel.Document[models.SiteContent]

	specs  []panel.Spec
	byName map[string]panel.Mountable
}

// NewPanels binds every panel to the content API.
func NewPanels(c *contentapi.Client, poll time.Duration, opts ...panel.Option) *Panels {
	specs := Specs(poll)
	spec := func(name string) panel.Spec {
		for _, s := range specs {
			if s.Name == name {
				return s
			}
		}
		panic("shell: no spec for panel " + name)
	}

	ps := &Panels{
		Messages:   collection[models.Message](c, spec(PanelMessages), opts),
		Reviews:    collection[models.Review](c, spec(PanelReviews), opts),
		Blog:       collection[models.BlogPost](c, spec(PanelBlog), opts),
		Skills:     collection[models.Skill](c, spec(PanelSkills), opts),
		Education:  collection[models.Education](c, spec(PanelEducation), opts),
		Projects:   collection[models.Project](c, spec(PanelProjects), opts),
		Experience: collection[models.Experience](c, spec(PanelExperience), opts),
		specs:      specs,
	}
	cs := spec(PanelContent)
	ps.Content = panel.NewDocument[models.SiteContent](cs, contentapi.NewDocument[models.SiteContent](c, cs.Resource), opts...)

	ps.byName = map[string]panel.Mountable{
		PanelMessages:   ps.Messages,
		PanelReviews:    ps.Reviews,
		PanelBlog:       ps.Blog,
		PanelSkills:     ps.Skills,
		PanelEducation:  ps.Education,
		PanelProjects:   ps.Projects,
		PanelExperience: ps.Experience,
		PanelContent:    ps.Content,
	}
	return ps
}

func collection[T models.Record](c *contentapi.Client, spec panel.Spec, opts []panel.Option) *panel.Panel[T] {
	return panel.New[T](spec, contentapi.NewResource[T](c, spec.Resource), opts...)
}

// Specs returns the catalogue the panels were built from.
func (ps *Panels) Specs() []panel.Spec {
	return ps.specs
}

// Get returns any panel by id.
func (ps *Panels) Get(name string) (panel.Mountable, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// Collection returns a list panel by id. The site content document is not a collection.
func (ps *Panels) Collection(name string) (panel.Controller, bool) {
	p, ok := ps.byName[name]
	if !ok {
		return nil, false
	}
	c, ok := p.(panel.Controller)
	return c, ok
}
