package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/activity"
	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/shell"
)

// Handler holds API route handlers.
type Handler struct {
	shell    *shell.Shell
	notices  *notify.Center
	activity *activity.Log
}

// NewHandler creates a new Handler. activity may be nil.
func NewHandler(sh *shell.Shell, notices *notify.Center, log *activity.Log) *Handler {
	return &Handler{shell: sh, notices: notices, activity: log}
}

func operator(r *http.Request) string {
	return session.FromContext(r.Context()).Operator
}

func (h *Handler) navigator(r *http.Request) *shell.Navigator {
	return h.shell.Navigator(r.Context(), operator(r))
}

// collection resolves the {panel} URL parameter to the active list panel.
func (h *Handler) collection(r *http.Request) (panel.Controller, error) {
	return h.navigator(r).Collection(chi.URLParam(r, "panel"))
}

func invalid(err error) error {
	if fields := models.FieldErrors(err); fields != nil {
		return &apperr.ValidationError{Fields: fields}
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

func snapshot(c panel.Controller, r *http.Request) any {
	q := r.URL.Query()
	return c.Snapshot(q.Get("filter"), q.Get("search"))
}

func shellView(nav *shell.Navigator, op string) ShellResponse {
	active := nav.Active()
	specs := nav.Panels().Specs()
	items := make([]NavItem, len(specs))
	for i, s := range specs {
		items[i] = NavItem{Spec: s, Active: s.Name == active}
		if s.Name == shell.PanelMessages {
			items[i].Badge = nav.Panels().Messages.Counts()[models.MessageFilterUnread]
		}
	}
	return ShellResponse{Operator: op, Active: active, Panels: items}
}

// GetSession handles GET /api/session.
//
//	@Summary		Resolve the caller's session
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	session.State
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.FromContext(r.Context()))
}

// GetShell handles GET /api/shell.
//
//	@Summary		Active panel and sidebar entries
//	@Tags			shell
//	@Produce		json
//	@Success		200	{object}	ShellResponse
//	@Security		BearerAuth
//	@Router			/shell [get]
func (h *Handler) GetShell(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shellView(h.navigator(r), operator(r)))
}

// SwitchPanel handles PUT /api/shell.
//
//	@Summary		Switch the active panel
//	@Tags			shell
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SwitchRequest	true	"Panel to show"
//	@Success		200		{object}	ShellResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/shell [put]
func (h *Handler) SwitchPanel(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, invalid(err))
		return
	}

	nav := h.navigator(r)
	if err := nav.Switch(r.Context(), req.Active); err != nil {
		// A failed initial load is already reported as a notification; the
		// switch itself happened.
		if nav.Active() != req.Active {
			writeError(w, r, err)
			return
		}
		slog.Debug("initial load failed", slog.String("panel", req.Active), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, shellView(nav, operator(r)))
}

// GetPanel handles GET /api/panels/{panel}.
//
//	@Summary		Panel state filtered to a view
//	@Tags			panels
//	@Produce		json
//	@Param			panel	path		string	true	"Panel id"
//	@Param			filter	query		string	false	"Filter view"
//	@Param			search	query		string	false	"Search text"
//	@Success		200		{object}	object
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{panel} [get]
func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// LoadPanel handles POST /api/panels/{panel}/load. The filter and search may
// come as a JSON body or as query parameters.
func (h *Handler) LoadPanel(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := panel.Query{Filter: r.URL.Query().Get("filter"), Search: r.URL.Query().Get("search")}
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &q); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := c.Load(r.Context(), q); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot(q.Filter, q.Search))
}

// CreateItem handles POST /api/panels/{panel}/items.
//
//	@Summary		Create a record
//	@Tags			panels
//	@Accept			json
//	@Produce		json
//	@Param			panel	path		string	true	"Panel id"
//	@Success		201		{object}	object
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{panel}/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := c.CreateJSON(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateItem handles PATCH /api/panels/{panel}/items/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := c.UpdateJSON(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteItem handles DELETE /api/panels/{panel}/items/{id}?confirm=true.
//
//	@Summary		Delete a record
//	@Tags			panels
//	@Param			panel	path	string	true	"Panel id"
//	@Param			id		path	string	true	"Record id"
//	@Param			confirm	query	bool	true	"Must be true"
//	@Success		204
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{panel}/items/{id} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := c.Delete(r.Context(), chi.URLParam(r, "id"), confirmed); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFlag handles POST /api/panels/{panel}/items/{id}/flags/{flag}.
func (h *Handler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.ToggleFlag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "flag")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// Reorder handles PUT /api/panels/{panel}/order.
//
//	@Summary		Save a new display order
//	@Tags			panels
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReorderRequest	true	"Every id in the new order"
//	@Success		200		{object}	object
//	@Failure		405		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/{panel}/order [put]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, invalid(err))
		return
	}
	if err := c.Reorder(r.Context(), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// Select handles PUT /api/panels/{panel}/selection.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.Select(req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// SaveForm handles POST /api/panels/{panel}/form. The draft is created, or
// applied to the record being edited.
func (h *Handler) SaveForm(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := c.SaveJSON(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// BeginCreate handles POST /api/panels/{panel}/form/new.
func (h *Handler) BeginCreate(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.BeginCreate(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// BeginEdit handles POST /api/panels/{panel}/form/edit/{id}.
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.BeginEdit(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// ResetForm handles DELETE /api/panels/{panel}/form.
func (h *Handler) ResetForm(w http.ResponseWriter, r *http.Request) {
	c, err := h.collection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ResetForm()
	w.WriteHeader(http.StatusNoContent)
}

// ImportBlogPost handles POST /api/panels/blog/import.
//
//	@Summary		Open the create form prefilled from a Markdown file
//	@Tags			blog
//	@Accept			plain
//	@Produce		json
//	@Success		200	{object}	object
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panels/blog/import [post]
func (h *Handler) ImportBlogPost(w http.ResponseWriter, r *http.Request) {
	if name := chi.URLParam(r, "panel"); name != shell.PanelBlog {
		writeError(w, r, fmt.Errorf("%q has no import: %w", name, apperr.ErrNotFound))
		return
	}
	nav := h.navigator(r)
	c, err := nav.Collection(shell.PanelBlog)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := parser.BlogDraft(data)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}
	if err := nav.Panels().Blog.Prefill(draft); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(c, r))
}

// GetContent handles GET /api/content.
//
//	@Summary		Site content document
//	@Tags			content
//	@Produce		json
//	@Success		200	{object}	object
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.navigator(r).Content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.State())
}

// PutContent handles PUT /api/content.
func (h *Handler) PutContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.navigator(r).Content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	var draft models.SiteContent
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := doc.Save(r.Context(), draft); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.State())
}

// EditContent handles POST /api/content/form.
func (h *Handler) EditContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.navigator(r).Content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc.BeginEdit()
	writeJSON(w, http.StatusOK, doc.State())
}

// ResetContent handles DELETE /api/content/form.
func (h *Handler) ResetContent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.navigator(r).Content()
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc.ResetForm()
	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications handles GET /api/notifications.
//
//	@Summary		Live notifications of the operator
//	@Tags			notifications
//	@Produce		json
//	@Success		200	{object}	NotificationListResponse
//	@Security		BearerAuth
//	@Router			/notifications [get]
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NotificationListResponse{Notifications: h.notices.List(operator(r))})
}

// DismissNotification handles DELETE /api/notifications/{id}.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.notices.Dismiss(operator(r), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorBody("notification not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivity handles GET /api/activity.
//
//	@Summary		Recent dashboard operations
//	@Tags			activity
//	@Produce		json
//	@Param			limit	query		int		false	"Maximum entries"
//	@Param			panel	query		string	false	"Restrict to one panel"
//	@Success		200		{object}	object
//	@Security		BearerAuth
//	@Router			/activity [get]
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []activity.Entry{}})
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.activity.Recent(r.Context(), q.Get("panel"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
