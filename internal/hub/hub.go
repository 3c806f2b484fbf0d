// Package hub fans build events out to live subscribers, keeping a bounded
// backlog per build so late subscribers can catch up.
package hub

import (
	"sort"
	"sync"
)

const defaultBacklog = 512

// Event is one line of a build log.
type Event struct {
	Build   int    `json:"build"`
	Kind    string `json:"kind"` // diagnostic kind, "status" or "error"
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// stream is the per-build state.
type stream struct {
	backlog []Event // ring
	next    int
	total   int
	subs    map[chan Event]struct{}
	closed  bool
}

// replay returns the backlog oldest first.
func (s *stream) replay() []Event {
	n := len(s.backlog)
	if n < cap(s.backlog) || s.next == 0 {
		return s.backlog
	}
	out := make([]Event, 0, n)
	out = append(out, s.backlog[s.next:]...)
	return append(out, s.backlog[:s.next]...)
}

func (s *stream) push(ev Event) {
	if len(s.backlog) < cap(s.backlog) {
		s.backlog = append(s.backlog, ev)
	} else {
		s.backlog[s.next] = ev
	}
	s.next = (s.next + 1) % cap(s.backlog)
	s.total++
}

// Hub holds one stream per build ID.
type Hub struct {
	mu      sync.Mutex
	backlog int
	streams map[int]*stream
}

// New creates a Hub ready for use.
func New() *Hub {
	return &Hub{
		backlog: defaultBacklog,
		streams: make(map[int]*stream),
	}
}

// streamFor returns the stream for id, creating it if needed.
// Caller must hold h.mu.
func (h *Hub) streamFor(id int) *stream {
	s, ok := h.streams[id]
	if !ok {
		s = &stream{
			backlog: make([]Event, 0, h.backlog),
			subs:    make(map[chan Event]struct{}),
		}
		h.streams[id] = s
	}
	return s
}

// Publish appends ev to its build's backlog and hands it to every
// subscriber. Subscribers that are not keeping up miss the event rather
// than blocking the build.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.streamFor(ev.Build)
	if s.closed {
		return
	}
	s.push(ev)
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Open creates the stream for build if it does not exist yet. Publish
// opens streams implicitly.
func (h *Hub) Open(build int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streamFor(build)
}

// Subscribe replays the build's backlog onto the returned channel, then
// delivers live events until the build is closed. For a build that is
// already closed the channel holds the backlog and is closed. ok is false
// when the hub has no stream for build; no stream is created.
func (h *Hub) Subscribe(build int) (events <-chan Event, unsubscribe func(), ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[build]
	if !ok {
		return nil, func() {}, false
	}
	ch := make(chan Event, h.backlog+64)
	for _, ev := range s.replay() {
		ch <- ev
	}
	if s.closed {
		close(ch)
		return ch, func() {}, true
	}

	s.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(s.subs, ch)
	}, true
}

// Close marks a build finished and closes its subscriber channels.
func (h *Hub) Close(build int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[build]
	if !ok {
		s = h.streamFor(build)
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Remove drops a build and its backlog, closing any subscribers.
func (h *Hub) Remove(build int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(build)
}

func (h *Hub) removeLocked(build int) {
	s, ok := h.streams[build]
	if !ok {
		return
	}
	for ch := range s.subs {
		close(ch)
	}
	delete(h.streams, build)
}

// Retain keeps the newest keep closed builds and removes older closed
// ones. Open builds are never removed.
func (h *Hub) Retain(keep int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var closed []int
	for id, s := range h.streams {
		if s.closed {
			closed = append(closed, id)
		}
	}
	if len(closed) <= keep {
		return
	}
	sort.Ints(closed)
	for _, id := range closed[:len(closed)-keep] {
		h.removeLocked(id)
	}
}

// Known reports whether the hub has a stream for build.
func (h *Hub) Known(build int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.streams[build]
	return ok
}

// IsActive reports whether build exists and has not been closed.
func (h *Hub) IsActive(build int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[build]
	return ok && !s.closed
}
