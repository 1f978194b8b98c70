// Package notify is the boundary between the pipeline engine and delivery
// channels (email, messengers, UI broadcast). Emission is fire-and-forget:
// a failing sink is logged and never propagates into a pipeline transition.
package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Notification types emitted by the pipeline engine.
const (
	TypeInterviewScheduled   = "InterviewScheduled"
	TypeInterviewRescheduled = "InterviewRescheduled"
	TypeInterviewerAssigned  = "InterviewerAssigned"
	TypeStageAdvanced        = "StageAdvanced"
)

type Event struct {
	Type        string         `json:"type"`
	CandidateID string         `json:"candidate_id,omitempty"`
	TS          time.Time      `json:"ts"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Notifier consumes pipeline notifications.
type Notifier interface {
	Emit(ctx context.Context, evt Event)
}

// Hub fans notifications out to registered sinks and subscriber channels.
// It is created at server start and closed at shutdown; subscribers are the
// UI-broadcast registry, sinks are delivery backends.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	sinks  []Notifier
	closed bool
	Logger *log.Logger
}

func NewHub(sinks ...Notifier) *Hub {
	return &Hub{
		subs:  make(map[int]chan Event),
		sinks: sinks,
	}
}

func (h *Hub) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

// Emit delivers the event to every sink and subscriber. Slow subscribers
// are skipped rather than blocking the caller. Subscriber sends happen
// under the hub lock; channels are only closed under the same lock, so a
// send can never hit a closed channel.
func (h *Hub) Emit(ctx context.Context, evt Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	sinks := make([]Notifier, len(h.sinks))
	copy(sinks, h.sinks)
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.logger().Printf("notify: dropping %s event for slow subscriber", evt.Type)
		}
	}
	h.mu.Unlock()

	for _, s := range sinks {
		h.emitSink(ctx, s, evt)
	}
}

func (h *Hub) emitSink(ctx context.Context, s Notifier, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().Printf("notify: sink panic delivering %s: %v", evt.Type, r)
		}
	}()
	s.Emit(ctx, evt)
}

// Subscribe registers a buffered channel receiving future events. The
// returned func unregisters and closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}
}

// Close unregisters all subscribers. Further Emit calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// LogSink writes notifications to a logger.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Emit(_ context.Context, evt Event) {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("notify: %s candidate=%s payload=%v", evt.Type, evt.CandidateID, evt.Payload)
}
