// Package notify keeps the transient notifications shown to an operator.
// Notifications expire on their own; nothing is persisted.
package notify

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 8 * time.Second

// Level classifies a notification for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single transient message.
type Notification struct {
	ID        string    `json:"id"`
	Operator  string    `json:"-"`
	Panel     string    `json:"panel"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`

	seq uint64
}

// Publisher pushes notifications to connected clients.
type Publisher interface {
	PublishNotification(n Notification)
}

// Center stores notifications per operator with a TTL.
type Center struct {
	store *gocache.Cache
	pub   Publisher
	now   func() time.Time
	seq   atomic.Uint64
}

// NewCenter creates a center whose notifications expire after ttl.
// pub may be nil.
func NewCenter(ttl time.Duration, pub Publisher) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		store: gocache.New(ttl, 2*ttl),
		pub:   pub,
		now:   time.Now,
	}
}

func key(operator, id string) string {
	return operator + "/" + id
}

func (c *Center) add(operator, panel string, level Level, msg string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Operator:  operator,
		Panel:     panel,
		Level:     level,
		Message:   msg,
		CreatedAt: c.now(),
		seq:       c.seq.Add(1),
	}
	c.store.Set(key(operator, n.ID), n, gocache.DefaultExpiration)
	if c.pub != nil {
		c.pub.PublishNotification(n)
	}
	return n
}

// List returns the operator's live notifications, oldest first.
func (c *Center) List(operator string) []Notification {
	prefix := operator + "/"
	out := []Notification{}
	for k, item := range c.store.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if n, ok := item.Object.(Notification); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// Dismiss removes a notification before it expires.
func (c *Center) Dismiss(operator, id string) bool {
	k := key(operator, id)
	if _, ok := c.store.Get(k); !ok {
		return false
	}
	c.store.Delete(k)
	return true
}

// For returns a notifier bound to one operator.
func (c *Center) For(operator string) *Notifier {
	return &Notifier{c: c, operator: operator}
}

// Notifier emits notifications on behalf of one operator.
type Notifier struct {
	c        *Center
	operator string
}

func (n *Notifier) Info(panel, msg string) {
	n.c.add(n.operator, panel, LevelInfo, msg)
}

func (n *Notifier) Success(panel, msg string) {
	n.c.add(n.operator, panel, LevelSuccess, msg)
}

func (n *Notifier) Error(panel, msg string) {
	n.c.add(n.operator, panel, LevelError, msg)
}
