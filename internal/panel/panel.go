// Package panel implements the list/edit contract shared by every content
// collection of the dashboard.
//
// A panel keeps a local copy of one remote collection together with the open
// form. Every lifecycle change is written to the content API immediately; only
// the form is local. State is guarded by a mutex and remote calls are made
// without holding it.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
)

// Remote is the content API collection a panel is backed by.
type Remote[T any] interface {
	List(ctx context.Context, query url.Values) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
}

// State is a point-in-time copy of a panel.
// IsLoading, IsSaving and IsEditing are independent of each other.
type State[T models.Record] struct {
	Items     []T  `json:"items"`
	IsLoading bool `json:"isLoading"`
	IsSaving  bool `json:"isSaving"`
	IsEditing bool `json:"isEditing"`
	Draft     *T   `json:"draft"`
	// DraftKey identifies the open form on the client. It is never sent as _id.
	DraftKey    string            `json:"draftKey,omitempty"`
	EditingID   string            `json:"editingId,omitempty"`
	Selected    string            `json:"selected,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Query       Query             `json:"query"`
	Counts      map[string]int    `json:"counts,omitempty"`
}

// Panel manages one collection.
type Panel[T models.Record] struct {
	spec   Spec
	remote Remote[T]
	deps

	mu      sync.Mutex
	state   State[T]
	loading int
	// gen changes on mount and unmount; list responses from an older
	// generation are dropped.
	gen     uint64
	mounted bool
	sum     string
	// counts come from the last unfiltered load and follow local mutations,
	// so a filtered list does not shrink them.
	counts map[string]int
}

// New creates a panel for spec backed by remote.
func New[T models.Record](spec Spec, remote Remote[T], opts ...Option) *Panel[T] {
	return &Panel[T]{
		spec:   spec,
		remote: remote,
		deps:   newDeps(opts),
		state:  State[T]{Items: []T{}},
	}
}

func (p *Panel[T]) Spec() Spec {
	return p.spec
}

// State returns a copy of the full panel state.
func (p *Panel[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyState(p.state.Items)
}

// ViewState is State with Items narrowed to a filter and search, plus filter counts.
func (p *Panel[T]) ViewState(filter, search string) State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.copyState(view(p.state.Items, filter, search))
	st.Counts = p.countLocked()
	return st
}

// Snapshot is ViewState for callers that do not know T.
func (p *Panel[T]) Snapshot(filter, search string) any {
	return p.ViewState(filter, search)
}

func (p *Panel[T]) copyState(items []T) State[T] {
	st := p.state
	st.Items = slices.Clone(items)
	if st.Items == nil {
		st.Items = []T{}
	}
	if p.state.Draft != nil {
		d := *p.state.Draft
		st.Draft = &d
	}
	if p.state.FieldErrors != nil {
		st.FieldErrors = make(map[string]string, len(p.state.FieldErrors))
		for k, v := range p.state.FieldErrors {
			st.FieldErrors[k] = v
		}
	}
	return st
}

// View filters and searches the current items without touching the remote store.
// Applying the same view to its own output returns the same items.
func (p *Panel[T]) View(filter, search string) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return view(p.state.Items, filter, search)
}

func view[T models.Record](items []T, filter, search string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.MatchesFilter(filter) && models.MatchesSearch(it, search) {
			out = append(out, it)
		}
	}
	return out
}

// Counts returns the number of records per configured filter, for sidebar
// badges. It is nil until the panel has been loaded without a filter.
func (p *Panel[T]) Counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countLocked()
}

func (p *Panel[T]) countLocked() map[string]int {
	if p.counts == nil {
		return nil
	}
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func (p *Panel[T]) recountLocked() {
	if len(p.spec.Filters) == 0 {
		return
	}
	p.counts = make(map[string]int, len(p.spec.Filters))
	for _, f := range p.spec.Filters {
		for _, it := range p.state.Items {
			if it.MatchesFilter(f) {
				p.counts[f]++
			}
		}
	}
}

// adjustCountsLocked moves one record between filter counts. before or after
// is nil for a created or deleted record.
func (p *Panel[T]) adjustCountsLocked(before, after *T) {
	if p.counts == nil {
		return
	}
	for _, f := range p.spec.Filters {
		if before != nil && (*before).MatchesFilter(f) {
			p.counts[f]--
		}
		if after != nil && (*after).MatchesFilter(f) {
			p.counts[f]++
		}
	}
}

// Mount marks the panel visible.
func (p *Panel[T]) Mount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.mounted = true
}

// Unmount closes the form and drops list responses still in flight.
func (p *Panel[T]) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.mounted = false
	p.clearFormLocked()
	p.state.Selected = ""
}

// Refresh reloads a mounted panel with its last query.
func (p *Panel[T]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	mounted, q := p.mounted, p.state.Query
	p.mu.Unlock()
	if !mounted {
		return nil
	}
	return p.Load(ctx, q)
}

// Load fetches the collection. On failure the previous items are kept.
//
// Overlapping loads are not sequenced: whichever response arrives last wins.
func (p *Panel[T]) Load(ctx context.Context, q Query) error {
	p.mu.Lock()
	p.state.Query = q
	p.loading++
	p.state.IsLoading = true
	gen := p.gen
	p.mu.Unlock()

	items, err := p.remote.List(ctx, q.Values())

	p.mu.Lock()
	p.loading--
	p.state.IsLoading = p.loading > 0
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debug("discarding list response after unmount", slog.String("panel", p.spec.Name))
		return nil
	}
	if err != nil {
		p.mu.Unlock()
		return p.fail(ctx, OpLoad, "", err)
	}
	p.state.Items = items
	if q.unfiltered() {
		p.recountLocked()
	}
	sum, _ := checksum.SumJSON(items)
	changed := sum != p.sum
	p.sum = sum
	p.mu.Unlock()

	p.emit(ctx, Event{Panel: p.spec.Name, Op: OpLoad, OK: true, Changed: changed})
	return nil
}

// Create validates rec locally and stores it. Validation failures never reach
// the remote store.
func (p *Panel[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if !p.spec.AllowCreate {
		return zero, apperr.ErrCreateDisabled
	}
	rec = derive(rec)
	if err := p.validate(rec); err != nil {
		return zero, err
	}
	if err := p.begin(); err != nil {
		return zero, err
	}

	out, err := p.remote.Create(ctx, rec)

	p.mu.Lock()
	p.state.IsSaving = false
	if err == nil {
		p.state.Items = append(p.state.Items, out)
		p.adjustCountsLocked(nil, &out)
		p.clearFormLocked()
	}
	p.mu.Unlock()

	if err != nil {
		return zero, p.fail(ctx, OpCreate, "", err)
	}
	p.succeed(ctx, OpCreate, out.GetID())
	return out, nil
}

// Update merges patch over the local record, validates the result and sends
// the partial update. The local record is replaced with what the server returns.
func (p *Panel[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T
	cur, ok := p.find(id)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", p.spec.Noun, id, apperr.ErrNotFound)
	}
	patch = withoutID(patch)
	merged, err := merge(cur, patch)
	if err != nil {
		return zero, err
	}
	if err := p.validate(merged); err != nil {
		return zero, err
	}
	return p.patch(ctx, OpUpdate, id, patch)
}

// Save submits the form: it creates a record unless an existing one is being
// edited. On failure the draft stays in the form.
func (p *Panel[T]) Save(ctx context.Context, draft T) (T, error) {
	p.mu.Lock()
	editing, id := p.state.IsEditing, p.state.EditingID
	p.setDraftLocked(draft)
	p.mu.Unlock()

	var (
		out T
		err error
	)
	if editing {
		var fields map[string]any
		fields, err = toMap(derive(draft))
		if err != nil {
			return out, err
		}
		out, err = p.Update(ctx, id, fields)
	} else {
		out, err = p.Create(ctx, draft)
	}
	if err != nil {
		return out, err
	}
	p.ResetForm()
	return out, nil
}

// Delete removes a record. It refuses to run without confirmation. A failed
// delete leaves local state as it was.
func (p *Panel[T]) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperr.ErrNotConfirmed
	}
	if err := p.begin(); err != nil {
		return err
	}

	err := p.remote.Delete(ctx, id)

	p.mu.Lock()
	p.state.IsSaving = false
	if err == nil {
		if i := p.indexLocked(id); i >= 0 {
			old := p.state.Items[i]
			p.state.Items = slices.Delete(p.state.Items, i, i+1)
			p.adjustCountsLocked(&old, nil)
		}
		if p.state.Selected == id {
			p.state.Selected = ""
		}
		if p.state.EditingID == id {
			p.clearFormLocked()
		}
	}
	p.mu.Unlock()

	if err != nil {
		return p.fail(ctx, OpDelete, id, err)
	}
	p.succeed(ctx, OpDelete, id)
	return nil
}

// ToggleFlag flips a boolean flag based on the in-memory value.
func (p *Panel[T]) ToggleFlag(ctx context.Context, id, flag string) error {
	if !p.spec.HasFlag(flag) {
		return fmt.Errorf("%s: %w", flag, apperr.ErrUnknownFlag)
	}
	cur, ok := p.find(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", p.spec.Noun, id, apperr.ErrNotFound)
	}
	f, ok := any(cur).(models.Flaggable)
	if !ok {
		return fmt.Errorf("%s: %w", flag, apperr.ErrUnknownFlag)
	}
	v, ok := f.FlagValue(flag)
	if !ok {
		return fmt.Errorf("%s: %w", flag, apperr.ErrUnknownFlag)
	}
	_, err := p.patch(ctx, OpToggle, id, f.FlagPatch(flag, !v))
	return err
}

// Reorder applies a new order locally, with order equal to list position, and
// persists the whole id list in one request. If the request fails the
// collection is fetched again. A filtered or searched list holds only part of
// the collection and cannot be reordered.
func (p *Panel[T]) Reorder(ctx context.Context, ids []string) error {
	if !p.spec.Reorderable {
		return apperr.ErrNotOrderable
	}

	p.mu.Lock()
	if p.state.IsSaving {
		p.mu.Unlock()
		return apperr.ErrBusy
	}
	if !p.state.Query.unfiltered() {
		p.mu.Unlock()
		return apperr.ErrFilteredOrder
	}
	reordered, err := permute(p.state.Items, ids)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	for i := range reordered {
		if o, ok := any(&reordered[i]).(models.Orderable); ok {
			o.SetOrder(i)
		}
	}
	p.state.Items = reordered
	p.state.IsSaving = true
	q := p.state.Query
	p.mu.Unlock()

	err = p.remote.Reorder(ctx, ids)

	p.mu.Lock()
	p.state.IsSaving = false
	p.mu.Unlock()

	if err != nil {
		err = p.fail(ctx, OpReorder, "", err)
		_ = p.Load(ctx, q)
		return err
	}
	p.succeed(ctx, OpReorder, "")
	return nil
}

// BeginCreate opens an empty create form.
func (p *Panel[T]) BeginCreate() error {
	var zero T
	return p.Prefill(zero)
}

// Prefill opens the create form with draft already filled in.
func (p *Panel[T]) Prefill(draft T) error {
	if !p.spec.AllowCreate {
		return apperr.ErrCreateDisabled
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearFormLocked()
	p.setDraftLocked(draft)
	return nil
}

// BeginEdit opens the form on a copy of an existing record.
func (p *Panel[T]) BeginEdit(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", p.spec.Noun, id, apperr.ErrNotFound)
	}
	p.clearFormLocked()
	p.setDraftLocked(p.state.Items[i])
	p.state.IsEditing = true
	p.state.EditingID = id
	return nil
}

// ResetForm discards the form.
func (p *Panel[T]) ResetForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearFormLocked()
}

// Select marks the record shown in the detail view.
func (p *Panel[T]) Select(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id != "" && p.indexLocked(id) < 0 {
		return fmt.Errorf("%s %s: %w", p.spec.Noun, id, apperr.ErrNotFound)
	}
	p.state.Selected = id
	return nil
}

// CreateJSON decodes a record and creates it.
func (p *Panel[T]) CreateJSON(ctx context.Context, body []byte) (any, error) {
	var rec T
	if err := decode(body, &rec); err != nil {
		return nil, err
	}
	return p.Create(ctx, rec)
}

// UpdateJSON decodes a partial update and applies it.
func (p *Panel[T]) UpdateJSON(ctx context.Context, id string, body []byte) (any, error) {
	var patch map[string]any
	if err := decode(body, &patch); err != nil {
		return nil, err
	}
	return p.Update(ctx, id, patch)
}

// SaveJSON decodes a form draft and saves it.
func (p *Panel[T]) SaveJSON(ctx context.Context, body []byte) (any, error) {
	var draft T
	if err := decode(body, &draft); err != nil {
		return nil, err
	}
	return p.Save(ctx, draft)
}

func (p *Panel[T]) patch(ctx context.Context, op, id string, patch map[string]any) (T, error) {
	var zero T
	if err := p.begin(); err != nil {
		return zero, err
	}

	out, err := p.remote.Update(ctx, id, patch)

	p.mu.Lock()
	p.state.IsSaving = false
	if err == nil {
		if i := p.indexLocked(id); i >= 0 {
			old := p.state.Items[i]
			p.state.Items[i] = out
			p.adjustCountsLocked(&old, &out)
		}
	}
	p.mu.Unlock()

	if err != nil {
		return zero, p.fail(ctx, op, id, err)
	}
	if op == OpToggle {
		p.emit(ctx, Event{Panel: p.spec.Name, Op: op, RecordID: id, OK: true})
	} else {
		p.succeed(ctx, op, id)
	}
	return out, nil
}

func (p *Panel[T]) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.IsSaving {
		return apperr.ErrBusy
	}
	p.state.IsSaving = true
	return nil
}

func (p *Panel[T]) validate(rec T) error {
	err := rec.Validate()
	fields := models.FieldErrors(err)

	p.mu.Lock()
	p.state.FieldErrors = fields
	p.mu.Unlock()

	if err == nil {
		return nil
	}
	if fields == nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return &apperr.ValidationError{Fields: fields}
}

func (p *Panel[T]) find(id string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.indexLocked(id); i >= 0 {
		return p.state.Items[i], true
	}
	var zero T
	return zero, false
}

func (p *Panel[T]) indexLocked(id string) int {
	return slices.IndexFunc(p.state.Items, func(it T) bool { return it.GetID() == id })
}

func (p *Panel[T]) setDraftLocked(d T) {
	p.state.Draft = &d
	if p.state.DraftKey == "" {
		p.state.DraftKey = uuid.NewString()
	}
}

func (p *Panel[T]) clearFormLocked() {
	p.state.Draft = nil
	p.state.DraftKey = ""
	p.state.IsEditing = false
	p.state.EditingID = ""
	p.state.FieldErrors = nil
}

func (p *Panel[T]) succeed(ctx context.Context, op, id string) {
	p.notify.Success(p.spec.Name, successText(p.spec, op))
	p.emit(ctx, Event{Panel: p.spec.Name, Op: op, RecordID: id, OK: true})
}

// fail reports a remote failure once: a log line, a notification and an event.
// Cancelled requests are returned silently.
func (p *Panel[T]) fail(ctx context.Context, op, id string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", p.spec.Name, op, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	msg := apperr.UserMessage(err)
	p.log.Error("panel operation failed",
		slog.String("panel", p.spec.Name),
		slog.String("op", op),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	p.notify.Error(p.spec.Name, failureText(p.spec, op)+": "+msg)
	p.emit(ctx, Event{Panel: p.spec.Name, Op: op, RecordID: id, Message: msg})
	return wrapped
}

func successText(s Spec, op string) string {
	switch op {
	case OpCreate:
		return capitalize(s.Noun) + " created"
	case OpDelete:
		return capitalize(s.Noun) + " deleted"
	case OpReorder:
		return "Order saved"
	default:
		return capitalize(s.Noun) + " saved"
	}
}

func failureText(s Spec, op string) string {
	switch op {
	case OpLoad:
		return "Could not load " + strings.ToLower(s.Title)
	case OpToggle, OpUpdate:
		return "Could not update " + s.Noun
	case OpReorder:
		return "Could not save the new order"
	default:
		return "Could not " + op + " " + s.Noun
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// permute returns items in the order given by ids, which must name every item once.
func permute[T models.Record](items []T, ids []string) ([]T, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("%w: order must list all %d records", apperr.ErrInvalidInput, len(items))
	}
	pos := make(map[string]int, len(items))
	for i, it := range items {
		pos[it.GetID()] = i
	}
	out := make([]T, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		i, ok := pos[id]
		if !ok || seen[id] {
			return nil, fmt.Errorf("%w: order must list every record exactly once", apperr.ErrInvalidInput)
		}
		seen[id] = true
		out = append(out, items[i])
	}
	return out, nil
}

type deriver[T any] interface {
	WithDerivedFields() T
}

// derive fills computed fields for records that have them.
func derive[T any](rec T) T {
	if d, ok := any(rec).(deriver[T]); ok {
		return d.WithDerivedFields()
	}
	return rec
}

func withoutID(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "_id")
	return m, nil
}

// merge overlays patch on rec through their JSON representation.
func merge[T any](rec T, patch map[string]any) (T, error) {
	var out T
	m, err := toMap(rec)
	if err != nil {
		return out, err
	}
	for k, v := range patch {
		m[k] = v
	}
	data, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return out, nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}
