package panel

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/starford/folio/internal/models"
)

// Operation names reported to observers.
const (
	OpLoad    = "load"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpToggle  = "toggle"
	OpReorder = "reorder"
)

// Spec describes what a panel offers.
type Spec struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Noun     string `json:"noun"`
	Resource string `json:"-"`
	// AllowCreate is false for collections that are only written by the public site.
	AllowCreate  bool          `json:"allowCreate"`
	Flags        []string      `json:"flags,omitempty"`
	Reorderable  bool          `json:"reorderable"`
	PollInterval time.Duration `json:"pollInterval,omitempty"`
	Filters      []string      `json:"filters,omitempty"`
}

// HasFlag reports whether flag can be toggled on this panel.
func (s Spec) HasFlag(flag string) bool {
	return slices.Contains(s.Flags, flag)
}

// Query is the filter and search sent with a list request.
type Query struct {
	Filter string `json:"filter,omitempty"`
	Search string `json:"search,omitempty"`
}

// unfiltered reports whether the query lists the whole collection.
func (q Query) unfiltered() bool {
	return len(q.Values()) == 0
}

// Values encodes the query for the content API. Defaults are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Filter != "" && q.Filter != models.FilterAll {
		v.Set("filter", q.Filter)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	return v
}

// Notifier shows transient messages to the operator.
type Notifier interface {
	Info(panel, msg string)
	Success(panel, msg string)
	Error(panel, msg string)
}

// Event is the outcome of one panel operation.
type Event struct {
	Panel    string
	Op       string
	RecordID string
	OK       bool
	Message  string
	// Changed is set on successful loads whose items differ from the previous load.
	Changed bool
}

// Observer receives every operation outcome.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Mountable is the lifecycle the navigation shell drives.
type Mountable interface {
	Spec() Spec
	// Mount marks the panel visible. Loading is left to Refresh.
	Mount()
	// Unmount discards unsaved form state and ignores responses still in flight.
	Unmount()
	// Refresh reloads a mounted panel with its current query. It does nothing
	// on an unmounted panel.
	Refresh(ctx context.Context) error
}

// Controller is the type-erased collection panel used by transports.
type Controller interface {
	Mountable
	Load(ctx context.Context, q Query) error
	Snapshot(filter, search string) any
	CreateJSON(ctx context.Context, body []byte) (any, error)
	UpdateJSON(ctx context.Context, id string, body []byte) (any, error)
	SaveJSON(ctx context.Context, body []byte) (any, error)
	Delete(ctx context.Context, id string, confirmed bool) error
	ToggleFlag(ctx context.Context, id, flag string) error
	Reorder(ctx context.Context, ids []string) error
	BeginCreate() error
	BeginEdit(id string) error
	ResetForm()
	Select(id string) error
	Counts() map[string]int
}

type deps struct {
	notify    Notifier
	observers []Observer
	log       *slog.Logger
}

// Option configures a panel.
type Option func(*deps)

// WithNotifier sets where operation failures and confirmations are shown.
func WithNotifier(n Notifier) Option {
	return func(d *deps) { d.notify = n }
}

// WithObserver adds an observer of operation outcomes.
func WithObserver(o Observer) Option {
	return func(d *deps) { d.observers = append(d.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *deps) { d.log = l }
}

func newDeps(opts []Option) deps {
	d := deps{notify: discard{}, log: slog.Default()}
	for _, o := range opts {
		o(&d)
	}
	return d
}

func (d *deps) emit(ctx context.Context, ev Event) {
	for _, o := range d.observers {
		o.Observe(ctx, ev)
	}
}

type discard struct{}

func (discard) Info(string, string)    {}
func (discard) Success(string, string) {}
func (discard) Error(string, string)   {}
