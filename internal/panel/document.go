package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// DocumentRemote is a singleton endpoint of the content API.
type DocumentRemote[T any] interface {
	Get(ctx context.Context) (T, error)
	Put(ctx context.Context, doc T) (T, error)
}

// Validatable is satisfied by singleton documents.
type Validatable interface {
	Validate() error
}

// DocumentState is a point-in-time copy of a document panel.
type DocumentState[T Validatable] struct {
	Doc         T                 `json:"doc"`
	Loaded      bool              `json:"loaded"`
	IsLoading   bool              `json:"isLoading"`
	IsSaving    bool              `json:"isSaving"`
	IsEditing   bool              `json:"isEditing"`
	Draft       *T                `json:"draft"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// Document manages a single editable record, such as the site copy.
type Document[T Validatable] struct {
	spec   Spec
	remote DocumentRemote[T]
	deps

	mu      sync.Mutex
	state   DocumentState[T]
	loading int
	gen     uint64
	mounted bool
}

// NewDocument creates a document panel.
func NewDocument[T Validatable](spec Spec, remote DocumentRemote[T], opts ...Option) *Document[T] {
	return &Document[T]{spec: spec, remote: remote, deps: newDeps(opts)}
}

func (d *Document[T]) Spec() Spec {
	return d.spec
}

// State returns a copy of the document state.
func (d *Document[T]) State() DocumentState[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state
	if d.state.Draft != nil {
		draft := *d.state.Draft
		st.Draft = &draft
	}
	return st
}

func (d *Document[T]) Mount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.mounted = true
}

func (d *Document[T]) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.mounted = false
	d.clearFormLocked()
}

func (d *Document[T]) Refresh(ctx context.Context) error {
	d.mu.Lock()
	mounted := d.mounted
	d.mu.Unlock()
	if !mounted {
		return nil
	}
	return d.Load(ctx)
}

// Load fetches the document. On failure the previous copy is kept.
func (d *Document[T]) Load(ctx context.Context) error {
	d.mu.Lock()
	d.loading++
	d.state.IsLoading = true
	gen := d.gen
	d.mu.Unlock()

	doc, err := d.remote.Get(ctx)

	d.mu.Lock()
	d.loading--
	d.state.IsLoading = d.loading > 0
	if gen != d.gen {
		d.mu.Unlock()
		return nil
	}
	if err == nil {
		d.state.Doc = doc
		d.state.Loaded = true
	}
	d.mu.Unlock()

	if err != nil {
		return d.fail(ctx, OpLoad, err)
	}
	d.emit(ctx, Event{Panel: d.spec.Name, Op: OpLoad, OK: true, Changed: true})
	return nil
}

// BeginEdit opens the form on a copy of the loaded document.
func (d *Document[T]) BeginEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft := d.state.Doc
	d.state.Draft = &draft
	d.state.IsEditing = true
	d.state.FieldErrors = nil
}

// ResetForm discards the form.
func (d *Document[T]) ResetForm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearFormLocked()
}

// Save validates draft and replaces the stored document with it.
// On failure the draft stays in the form.
func (d *Document[T]) Save(ctx context.Context, draft T) (T, error) {
	var zero T
	err := draft.Validate()
	fields := models.FieldErrors(err)

	d.mu.Lock()
	kept := draft
	d.state.Draft = &kept
	d.state.FieldErrors = fields
	if err == nil && d.state.IsSaving {
		d.mu.Unlock()
		return zero, apperr.ErrBusy
	}
	if err == nil {
		d.state.IsSaving = true
	}
	d.mu.Unlock()

	if err != nil {
		if fields == nil {
			return zero, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return zero, &apperr.ValidationError{Fields: fields}
	}

	out, err := d.remote.Put(ctx, draft)

	d.mu.Lock()
	d.state.IsSaving = false
	if err == nil {
		d.state.Doc = out
		d.state.Loaded = true
		d.clearFormLocked()
	}
	d.mu.Unlock()

	if err != nil {
		return zero, d.fail(ctx, OpUpdate, err)
	}
	d.notify.Success(d.spec.Name, capitalize(d.spec.Noun)+" saved")
	d.emit(ctx, Event{Panel: d.spec.Name, Op: OpUpdate, OK: true})
	return out, nil
}

func (d *Document[T]) clearFormLocked() {
	d.state.Draft = nil
	d.state.IsEditing = false
	d.state.FieldErrors = nil
}

func (d *Document[T]) fail(ctx context.Context, op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", d.spec.Name, op, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	msg := apperr.UserMessage(err)
	d.log.Error("panel operation failed",
		slog.String("panel", d.spec.Name),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	d.notify.Error(d.spec.Name, failureText(d.spec, op)+": "+msg)
	d.emit(ctx, Event{Panel: d.spec.Name, Op: op, Message: msg})
	return wrapped
}
