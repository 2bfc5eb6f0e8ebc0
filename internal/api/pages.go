package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/shell"
)

const pagesHTML = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>{{.Title}} · Folio</title>
</head>
<body>{{end}}

{{define "foot"}}</body>
</html>{{end}}

{{define "signin"}}{{template "head" .}}
<main class="signin">
<h1>Folio admin</h1>
<p>Sign in to manage your portfolio.</p>
{{if .SignInURL}}<p><a href="{{.SignInURL}}">Sign in</a></p>{{else}}<p>Send your access token as a bearer token or in the <code>{{.Cookie}}</code> cookie.</p>{{end}}
</main>
{{template "foot" .}}{{end}}

{{define "loading"}}{{template "head" .}}
<main class="loading" aria-busy="true"><p>Loading your session…</p></main>
{{template "foot" .}}{{end}}

{{define "dashboard"}}{{template "head" .}}
<nav class="sidebar">
<p class="operator">{{.Operator}}</p>
<ul>
{{range .Nav}}<li{{if .Active}} class="active"{{end}} data-panel="{{.Name}}">{{.Title}}{{if .Badge}} <span class="badge">{{.Badge}}</span>{{end}}</li>
{{end}}</ul>
</nav>
<main id="panel" data-active="{{.Active}}"></main>
<ul class="notifications">
{{range .Notices}}<li class="{{.Level}}" data-id="{{.ID}}">{{.Message}}</li>
{{end}}</ul>
{{template "foot" .}}{{end}}
`

var pages = template.Must(template.New("pages").Parse(pagesHTML))

type pageData struct {
	Title     string
	Refresh   int
	SignInURL string
	Cookie    string
	Operator  string
	Active    string
	Nav       []NavItem
	Notices   []notify.Notification
}

// Pages renders the dashboard entry page for each session state: the sign-in
// page, a loading page while the session resolves, or the shell itself.
type Pages struct {
	shell   *shell.Shell
	gate    *session.Gate
	notices *notify.Center
}

// NewPages creates the page handler.
func NewPages(sh *shell.Shell, gate *session.Gate, notices *notify.Center) *Pages {
	return &Pages{shell: sh, gate: gate, notices: notices}
}

func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := p.gate.Resolve(r)
	switch st.Status {
	case session.Pending:
		p.render(w, http.StatusOK, "loading", pageData{Title: "Loading", Refresh: 2})
	case session.SignedIn:
		nav := p.shell.Navigator(r.Context(), st.Operator)
		view := shellView(nav, st.Operator)
		p.render(w, http.StatusOK, "dashboard", pageData{
			Title:    "Dashboard",
			Operator: st.Operator,
			Active:   view.Active,
			Nav:      view.Panels,
			Notices:  p.notices.List(st.Operator),
		})
	default:
		if u := p.gate.SignInURL(); u != "" {
			http.Redirect(w, r, u, http.StatusFound)
			return
		}
		p.render(w, http.StatusUnauthorized, "signin", pageData{Title: "Sign in", Cookie: p.gate.CookieName()})
	}
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render page failed", slog.String("page", name), slog.String("error", err.Error()))
	}
}
