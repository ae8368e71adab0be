// Package stream fans appended programme updates out to live subscribers
// (SSE clients). Delivery is best-effort: slow subscribers drop events
// rather than block the writer.
package stream

import (
	"context"
	"sync"
	"time"

	"progtrack.org/internal/programme"
)

// UpdateEvent is the wire shape of one appended update. Programme carries
// the record's scope assignments for subscriber-side visibility filtering
// and is never serialized.
type UpdateEvent struct {
	ProgrammeID string    `json:"programme_id"`
	UpdateID    string    `json:"update_id"`
	Kind        string    `json:"kind"`
	Content     string    `json:"content,omitempty"`
	AuthorName  string    `json:"author_name"`
	Timestamp   time.Time `json:"timestamp"`

	Programme programme.Programme `json:"-"`
}

// Stream fan-outs update events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan UpdateEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan UpdateEvent)}
}

// Subscribe registers a subscriber and returns a channel that receives
// events until the context ends, at which point the channel is closed.
func (s *Stream) Subscribe(ctx context.Context) <-chan UpdateEvent {
	ch := make(chan UpdateEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt UpdateEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when the subscriber is slow to avoid blocking.
		}
	}
}

// PublishUpdate adapts a ledger update into an event. Satisfies
// programme.UpdatePublisher.
func (s *Stream) PublishUpdate(u programme.Update, p programme.Programme) {
	s.Publish(UpdateEvent{
		ProgrammeID: u.ProgrammeID,
		UpdateID:    u.ID,
		Kind:        u.Kind.String(),
		Content:     u.Content,
		AuthorName:  u.Author.Name,
		Timestamp:   u.CreatedAt,
		Programme:   p,
	})
}
