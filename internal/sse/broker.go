// Package sse pushes dashboard updates to connected browsers.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/session"
)

// Event types.
const (
	TypePanelChanged   = "panel.changed"
	TypePanelRefreshed = "panel.refreshed"
	TypeNotification   = "notification"
	TypeShellSwitched  = "shell.switched"
)

// Event is one message for the clients of an operator.
// An empty Operator addresses every client.
type Event struct {
	Operator string `json:"-"`
	Type     string `json:"type"`
	Data     any    `json:"data"`
}

type refreshReq struct {
	operator string
	panel    string
}

// Broker fans events out to SSE clients, each scoped to one operator.
//
// A single event loop goroutine owns the client set and the refresh throttle;
// public methods talk to it over channels.
type Broker struct {
	refreshMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	refreshCh     chan refreshReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type subscription struct {
	operator string
	ch       chan []byte
}

// NewBroker creates a broker that sends at most one panel.refreshed per
// operator and panel within throttle.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		refreshMin:    throttle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		refreshCh:     make(chan refreshReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastRefresh := make(map[refreshReq]time.Time)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, op := range clients {
			if event.Operator != "" && op != event.Operator {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.operator

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			send(event)

		case req := <-b.refreshCh:
			now := time.Now()
			if now.Sub(lastRefresh[req]) >= b.refreshMin {
				lastRefresh[req] = now
				send(Event{Operator: req.operator, Type: TypePanelRefreshed, Data: map[string]string{"panel": req.panel}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client of operator and returns its channel.
func (b *Broker) Subscribe(operator string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{operator: operator, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to its operator's clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishRefresh tells operator's clients that a panel has new data, throttled.
func (b *Broker) PublishRefresh(operator, panelName string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.refreshCh <- refreshReq{operator: operator, panel: panelName}:
	case <-b.stopped:
	}
}

// PublishNotification implements notify.Publisher.
func (b *Broker) PublishNotification(n notify.Notification) {
	b.Publish(Event{Operator: n.Operator, Type: TypeNotification, Data: n})
}

// PublishSwitch announces a panel switch so other tabs of the operator follow.
func (b *Broker) PublishSwitch(operator, from, to string) {
	b.Publish(Event{Operator: operator, Type: TypeShellSwitched, Data: map[string]string{"from": from, "to": to}})
}

// Observer returns a panel observer publishing for operator. Successful
// mutations are sent as panel.changed; loads that changed the list as a
// throttled panel.refreshed.
func (b *Broker) Observer(operator string) panel.Observer {
	return panel.ObserverFunc(func(_ context.Context, ev panel.Event) {
		if !ev.OK {
			return
		}
		if ev.Op == panel.OpLoad {
			if ev.Changed {
				b.PublishRefresh(operator, ev.Panel)
			}
			return
		}
		b.Publish(Event{Operator: operator, Type: TypePanelChanged, Data: map[string]string{
			"panel": ev.Panel,
			"op":    ev.Op,
			"id":    ev.RecordID,
		}})
	})
}

// ServeHTTP streams the signed-in operator's events (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	st := session.FromContext(r.Context())
	if !st.SignedIn() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(st.Operator)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
