// Package shell owns navigation between panels: which panel is visible for
// an operator, and the mount lifecycle that goes with it.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/poller"
)

// SwitchFunc is called after the active panel changes.
type SwitchFunc func(from, to string)

// Navigator holds the single active panel of one operator.
type Navigator struct {
	panels   *Panels
	base     context.Context
	log      *slog.Logger
	onSwitch SwitchFunc

	mu     sync.Mutex
	active string
	poll   *poller.Handle
	closed bool
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithSwitchHook registers fn to run after every panel switch.
func WithSwitchHook(fn SwitchFunc) NavigatorOption {
	return func(n *Navigator) { n.onSwitch = fn }
}

// WithNavigatorLogger sets the logger.
func WithNavigatorLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) { n.log = l }
}

// NewNavigator creates a navigator with nothing mounted. base bounds the
// lifetime of background polls.
func NewNavigator(base context.Context, panels *Panels, opts ...NavigatorOption) *Navigator {
	n := &Navigator{panels: panels, base: base, log: slog.Default()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Start mounts the default panel and loads it.
func (n *Navigator) Start(ctx context.Context) error {
	return n.Switch(ctx, DefaultPanel)
}

// Active returns the id of the visible panel, empty before Start.
func (n *Navigator) Active() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// Panels returns every panel, active or not.
func (n *Navigator) Panels() *Panels {
	return n.panels
}

// Switch unmounts the current panel, discarding its unsaved form, and mounts
// id: its poller is started and it is loaded with its last query. Switching to
// the active panel only reloads it.
func (n *Navigator) Switch(ctx context.Context, id string) error {
	next, ok := n.panels.Get(id)
	if !ok {
		return fmt.Errorf("%q: %w", id, apperr.ErrUnknownPanel)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return context.Canceled
	}
	from := n.active
	if from != id {
		if prev, ok := n.panels.Get(from); ok {
			prev.Unmount()
		}
		n.poll.Stop()
		n.poll = nil

		next.Mount()
		n.active = id
		if iv := next.Spec().PollInterval; iv > 0 {
			n.poll = poller.Start(n.base, iv, func(ctx context.Context) {
				_ = next.Refresh(ctx)
			})
		}
	}
	n.mu.Unlock()

	if from != id {
		n.log.Debug("panel switched", slog.String("from", from), slog.String("to", id))
		if n.onSwitch != nil {
			n.onSwitch(from, id)
		}
	}
	return next.Refresh(ctx)
}

// Collection returns list panel id if it is the active one. Other panels are
// rejected with ErrPanelInactive.
func (n *Navigator) Collection(id string) (panel.Controller, error) {
	c, ok := n.panels.Collection(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, apperr.ErrUnknownPanel)
	}
	if err := n.requireActive(id); err != nil {
		return nil, err
	}
	return c, nil
}

func (n *Navigator) requireActive(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active != id {
		return fmt.Errorf("%q: %w", id, apperr.ErrPanelInactive)
	}
	return nil
}

// Content returns the site content document when it is the active panel.
func (n *Navigator) Content() (*panel.Document[models.SiteContent], error) {
	if err := n.requireActive(PanelContent); err != nil {
		return nil, err
	}
	return n.panels.Content, nil
}

// Close stops the poller and unmounts the active panel.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if p, ok := n.panels.Get(n.active); ok {
		p.Unmount()
	}
	n.poll.Stop()
	n.poll = nil
}
