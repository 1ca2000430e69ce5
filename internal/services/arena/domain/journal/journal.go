// Package journal provides the append-only event log of a match.
//
// Appends are serialized: the journal assigns sequence numbers, timestamps
// and the hash chain, then delivers the stored event to every subscriber in
// subscription order before Append returns. Readers take snapshots and never
// hold the writer back.
package journal

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/louisbranch/broadside/internal/services/arena/domain/event"
)

// Subscriber receives every appended event in sequence order.
// Subscribers run on the appending goroutine and must not block for long.
type Subscriber func(event.Event)

// Option configures a Journal.
type Option func(*Journal)

// WithRegistry overrides the registry used to validate appends.
func WithRegistry(registry *event.Registry) Option {
	return func(j *Journal) {
		if registry != nil {
			j.registry = registry
		}
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(clock func() time.Time) Option {
	return func(j *Journal) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// WithLogf overrides the logger used to report subscriber panics.
func WithLogf(logf func(string, ...any)) Option {
	return func(j *Journal) {
		if logf != nil {
			j.logf = logf
		}
	}
}

// Journal is an in-memory, hash-chained event log.
type Journal struct {
	registry *event.Registry
	clock    func() time.Time
	logf     func(string, ...any)

	mu      sync.RWMutex
	events  []event.Event
	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn Subscriber
}

// New creates an empty journal using the default arena registry.
func New(opts ...Option) *Journal {
	j := &Journal{
		registry: event.DefaultRegistry(),
		clock:    time.Now,
		logf:     log.Printf,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j
}

// Append validates evt, assigns its sequence and integrity fields, stores it
// and notifies subscribers. The stored event is returned.
func (j *Journal) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	validated, err := j.registry.ValidateForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = validated

	j.mu.Lock()
	defer j.mu.Unlock()

	evt.Seq = uint64(len(j.events)) + 1
	evt.Timestamp = j.clock().UTC().Truncate(time.Millisecond)
	if n := len(j.events); n > 0 {
		evt.PrevHash = j.events[n-1].ChainHash
		// Keep timestamps monotonic even if the clock steps backwards.
		if last := j.events[n-1].Timestamp; evt.Timestamp.Before(last) {
			evt.Timestamp = last
		}
	}
	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	chainHash, err := event.ChainHash(evt, evt.PrevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	evt.ChainHash = chainHash

	evt.PayloadJSON = slices.Clip(evt.PayloadJSON)
	j.events = append(j.events, evt)
	for _, sub := range j.subs {
		j.deliver(sub, evt)
	}
	return evt, nil
}

func (j *Journal) deliver(sub subscription, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			j.logf("journal subscriber %d panicked on seq %d: %v", sub.id, evt.Seq, r)
		}
	}()
	sub.fn(evt)
}

// Subscribe registers fn for every future append and returns a function
// that removes it. Subscribers must not call back into the journal.
func (j *Journal) Subscribe(fn Subscriber) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextSub++
	id := j.nextSub
	j.subs = append(j.subs, subscription{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			j.mu.Lock()
			defer j.mu.Unlock()
			j.subs = slices.DeleteFunc(j.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Events returns a snapshot of every stored event.
func (j *Journal) Events() []event.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return slices.Clone(j.events)
}

// ListEvents returns up to limit events with Seq greater than afterSeq.
// A non-positive limit returns everything after afterSeq.
func (j *Journal) ListEvents(afterSeq uint64, limit int) []event.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if afterSeq >= uint64(len(j.events)) {
		return nil
	}
	page := j.events[afterSeq:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return slices.Clone(page)
}

// Len returns the number of stored events.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// Last returns the most recent event, if any.
func (j *Journal) Last() (event.Event, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.events) == 0 {
		return event.Event{}, false
	}
	return j.events[len(j.events)-1], true
}
