package patientstore

import (
	"slices"
	"sync"

	"stealthcompany.com/patientrecords/internal/metrics"
	"stealthcompany.com/patientrecords/internal/models"
)

// Feed broadcasts the full patient collection to subscribers. Every emission
// is a complete replacement, and a new subscriber immediately receives the
// current snapshot.
//
// Deliveries are serialized: subscribers observe snapshots in publish order.
// Handlers run on the publishing goroutine and must not call Publish or
// Subscribe on the same feed.
type Feed struct {
	deliverMu sync.Mutex

	mu       sync.Mutex
	snapshot []models.Patient
	subs     map[*Subscription]func([]models.Patient)
}

// Subscription is a handle on a feed registration
type Subscription struct {
	feed *Feed
	once sync.Once
}

// NewFeed creates a feed holding the initial snapshot
func NewFeed(initial []models.Patient) *Feed {
	return &Feed{
		snapshot: slices.Clone(initial),
		subs:     make(map[*Subscription]func([]models.Patient)),
	}
}

// Subscribe registers fn and calls it with the current snapshot before returning
func (f *Feed) Subscribe(fn func([]models.Patient)) *Subscription {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	sub := &Subscription{feed: f}

	f.mu.Lock()
	f.subs[sub] = fn
	current := slices.Clone(f.snapshot)
	f.mu.Unlock()

	metrics.AddFeedSubscribers(1)

	fn(current)
	return sub
}

// Publish replaces the snapshot and delivers it to every subscriber
func (f *Feed) Publish(patients []models.Patient) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	f.snapshot = slices.Clone(patients)
	handlers := make([]func([]models.Patient), 0, len(f.subs))
	for _, fn := range f.subs {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(slices.Clone(patients))
	}
}

// Snapshot returns a copy of the latest emission
func (f *Feed) Snapshot() []models.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.snapshot)
}

// SubscriberCount returns the number of live subscriptions
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Unsubscribe removes the registration. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()

		metrics.AddFeedSubscribers(-1)
	})
}
