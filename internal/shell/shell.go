package shell

import (
	"context"
	"log/slog"
	"sync"
)

// Factory builds the panels of one operator.
type Factory func(operator string) *Panels

// Shell keeps one navigator per signed-in operator.
type Shell struct {
	base     context.Context
	factory  Factory
	log      *slog.Logger
	onSwitch func(operator, from, to string)

	mu   sync.Mutex
	navs map[string]*started
}

// started pairs a navigator with the one-time mount of its default panel.
type started struct {
	nav  *Navigator
	once sync.Once
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// OnSwitch registers fn to run when any operator switches panels.
func OnSwitch(fn func(operator, from, to string)) Option {
	return func(s *Shell) { s.onSwitch = fn }
}

// New creates a shell. base bounds the lifetime of every poller.
func New(base context.Context, factory Factory, opts ...Option) *Shell {
	s := &Shell{
		base:    base,
		factory: factory,
		log:     slog.Default(),
		navs:    make(map[string]*started),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Navigator returns the operator's navigator, creating it with the default
// panel mounted on first use. Concurrent first calls wait for that mount.
func (s *Shell) Navigator(ctx context.Context, operator string) *Navigator {
	s.mu.Lock()
	st, ok := s.navs[operator]
	if !ok {
		opts := []NavigatorOption{WithNavigatorLogger(s.log.With(slog.String("operator", operator)))}
		if s.onSwitch != nil {
			opts = append(opts, WithSwitchHook(func(from, to string) { s.onSwitch(operator, from, to) }))
		}
		st = &started{nav: NewNavigator(s.base, s.factory(operator), opts...)}
		s.navs[operator] = st
	}
	s.mu.Unlock()

	st.once.Do(func() {
		// Other requests wait on this mount, so it outlives the caller's request.
		// A failed initial load is already reported to the operator.
		_ = st.nav.Start(context.WithoutCancel(ctx))
	})
	return st.nav
}

// Close stops every navigator.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for op, st := range s.navs {
		st.nav.Close()
		delete(s.navs, op)
	}
}
