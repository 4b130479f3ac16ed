package patientstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/patientrecords/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]models.Patient
}

func (r *recorder) handle(p []models.Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p)
}

func (r *recorder) emissions() [][]models.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]models.Patient(nil), r.calls...)
}

func TestSubscribeReplaysCurrentSnapshot(t *testing.T) {
	feed := NewFeed(DemoPatients())
	rec := &recorder{}

	sub := feed.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	emissions := rec.emissions()
	require.Len(t, emissions, 1)
	assert.Equal(t, DemoPatients(), emissions[0])
}

func TestPublishDeliversFullReplacement(t *testing.T) {
	feed := NewFeed(nil)
	rec := &recorder{}
	sub := feed.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	next := DemoPatients()[:2]
	feed.Publish(next)

	emissions := rec.emissions()
	require.Len(t, emissions, 2)
	assert.Empty(t, emissions[0])
	assert.Equal(t, next, emissions[1])
	assert.Equal(t, next, feed.Snapshot())
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	feed := NewFeed(nil)
	rec := &recorder{}
	sub := feed.Subscribe(rec.handle)
	assert.Equal(t, 1, feed.SubscriberCount())

	sub.Unsubscribe()
	sub.Unsubscribe()
	feed.Publish(DemoPatients())

	assert.Len(t, rec.emissions(), 1)
	assert.Equal(t, 0, feed.SubscriberCount())

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func TestSubscribersReceiveIndependentCopies(t *testing.T) {
	feed := NewFeed(DemoPatients())
	var got []models.Patient
	sub := feed.Subscribe(func(p []models.Patient) { got = p })
	defer sub.Unsubscribe()

	got[0].FirstName = "Changed"

	assert.Equal(t, "John", feed.Snapshot()[0].FirstName)
}

func TestPublishOrderIsPreservedAcrossGoroutines(t *testing.T) {
	feed := NewFeed(nil)
	rec := &recorder{}
	sub := feed.Subscribe(rec.handle)
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			feed.Publish(DemoPatients())
		}()
	}
	wg.Wait()

	assert.Len(t, rec.emissions(), 21)
}
