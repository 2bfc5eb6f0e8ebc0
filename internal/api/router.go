// Package api implements the dashboard REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/activity"
	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/shell"
)

// Deps are the collaborators of the API router. Activity and Events may be nil.
type Deps struct {
	Shell    *shell.Shell
	Gate     *session.Gate
	Notices  *notify.Center
	Activity *activity.Log
	Events   http.Handler
}

// NewRouter creates the /api router. Every route except /session requires a
// signed-in operator.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Shell, d.Notices, d.Activity)

	r := chi.NewRouter()
	r.Use(d.Gate.Middleware)

	r.Get("/session", h.GetSession)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession)

		r.Get("/shell", h.GetShell)
		r.Put("/shell", h.SwitchPanel)

		r.Route("/panels/{panel}", func(r chi.Router) {
			r.Get("/", h.GetPanel)
			r.Post("/load", h.LoadPanel)
			r.Post("/import", h.ImportBlogPost)
			r.Post("/items", h.CreateItem)
			r.Patch("/items/{id}", h.UpdateItem)
			r.Delete("/items/{id}", h.DeleteItem)
			r.Post("/items/{id}/flags/{flag}", h.ToggleFlag)
			r.Put("/order", h.Reorder)
			r.Put("/selection", h.Select)
			r.Post("/form", h.SaveForm)
			r.Delete("/form", h.ResetForm)
			r.Post("/form/new", h.BeginCreate)
			r.Post("/form/edit/{id}", h.BeginEdit)
		})

		r.Get("/content", h.GetContent)
		r.Put("/content", h.PutContent)
		r.Post("/content/form", h.EditContent)
		r.Delete("/content/form", h.ResetContent)

		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications/{id}", h.DismissNotification)

		r.Get("/activity", h.ListActivity)

		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
	})

	return r
}
