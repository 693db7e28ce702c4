// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types published by the application.
const (
	TypeEntityWritten     = "entity.written"
	TypeEntityDeleted     = "entity.deleted"
	TypeProductChanged    = "product.changed"
	TypeWorkspaceChanged  = "workspace.changed"
	TypeWorkspaceSynced   = "workspace.synced"
	TypeWorkspaceMigrated = "workspace.migrated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ChangeKind tells whether an entity file was written or removed.
type ChangeKind string

const (
	Written ChangeKind = "written"
	Deleted ChangeKind = "deleted"
)

// EntityChange is one entity file written or removed under the workspace.
type EntityChange struct {
	Kind ChangeKind `json:"-"`
	ID   string     `json:"id"`
	Path string     `json:"path"`
}

func (c EntityChange) event() Event {
	typ := TypeEntityWritten
	if c.Kind == Deleted {
		typ = TypeEntityDeleted
	}
	return Event{Type: typ, Data: c}
}

// ChangeSummary is the payload of workspace.changed: the entity ids
// touched since the previous summary.
type ChangeSummary struct {
	Written []string `json:"written"`
	Deleted []string `json:"deleted"`
}

func newSummary() ChangeSummary {
	return ChangeSummary{Written: []string{}, Deleted: []string{}}
}

func (s *ChangeSummary) add(c EntityChange) {
	if c.Kind == Deleted {
		s.Deleted = append(s.Deleted, c.ID)
		return
	}
	s.Written = append(s.Written, c.ID)
}

func (s ChangeSummary) empty() bool {
	return len(s.Written) == 0 && len(s.Deleted) == 0
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set and the pending change summary.
// Every entity change is broadcast at once. workspace.changed goes out on
// the first change of a quiet period; changes arriving while the window is
// open are folded into one summary sent when it closes, so no change is
// left unannounced.
type Broker struct {
	window    time.Duration
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan EntityChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. workspace.changed summaries are sent
// at most once per changeWindow.
func NewBroker(changeWindow time.Duration) *Broker {
	if changeWindow <= 0 {
		changeWindow = 2 * time.Second
	}

	b := &Broker{
		window:        changeWindow,
		heartbeat:     15 * time.Second,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan EntityChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	pending := newSummary()

	// windowC is nil while no window is open.
	var (
		window  *time.Timer
		windowC <-chan time.Time
	)
	defer func() {
		if window != nil {
			window.Stop()
		}
	}()

	broadcast := func(event Event) {
		raw, err := encode(event)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}
	flush := func() {
		broadcast(Event{Type: TypeWorkspaceChanged, Data: pending})
		pending = newSummary()
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.changeCh:
			broadcast(c.event())
			pending.add(c)
			if windowC == nil {
				flush()
				if window == nil {
					window = time.NewTimer(b.window)
				} else {
					window.Reset(b.window)
				}
				windowC = window.C
			}

		case <-windowC:
			if pending.empty() {
				windowC = nil
			} else {
				flush()
				window.Reset(b.window)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishEntityChange announces an entity file change and folds it into
// the next workspace.changed summary.
func (b *Broker) PublishEntityChange(c EntityChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle streams
// get a comment line every heartbeat so proxies keep them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
