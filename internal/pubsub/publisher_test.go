package pubsub

import (
	"testing"
	"time"

	"arcpay-merchant/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub *Subscription) model.Order {
	t.Helper()
	select {
	case o := <-sub.C():
		return o
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return model.Order{}
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("u-1")
	defer sub.Close()

	p.Publish(model.Order{UUID: "u-1", Status: model.StatusPending, Revision: 1})

	got := recv(t, sub)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestPublishOnlyMatchingUUID(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("u-1")
	defer sub.Close()

	p.Publish(model.Order{UUID: "other", Status: model.StatusCaptured})

	select {
	case o := <-sub.C():
		t.Fatalf("unexpected delivery: %+v", o)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleSubscribers(t *testing.T) {
	p := NewPublisher()
	a := p.Subscribe("u-1")
	defer a.Close()
	b := p.Subscribe("u-1")
	defer b.Close()

	require.Equal(t, 2, p.Subscribers("u-1"))

	p.Publish(model.Order{UUID: "u-1", Revision: 1})

	assert.Equal(t, uint64(1), recv(t, a).Revision)
	assert.Equal(t, uint64(1), recv(t, b).Revision)
}

func TestSlowSubscriberNeverBlocksPublish(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("u-1")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more publishes than the buffer holds, with nobody
		// draining; Publish must not block.
		for i := 0; i < subscriberBuffer*10; i++ {
			p.Publish(model.Order{UUID: "u-1", Revision: uint64(i + 1)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("u-1")
	defer sub.Close()

	total := subscriberBuffer + 5
	for i := 1; i <= total; i++ {
		p.Publish(model.Order{UUID: "u-1", Revision: uint64(i)})
	}

	// Drain everything buffered; the latest revision must survive.
	var last uint64
	for i := 0; i < subscriberBuffer; i++ {
		select {
		case o := <-sub.C():
			assert.Greater(t, o.Revision, last)
			last = o.Revision
		case <-time.After(time.Second):
			t.Fatal("buffer drained early")
		}
	}
	assert.Equal(t, uint64(total), last)
}

func TestCloseReleasesSubscription(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe("u-1")

	sub.Close()
	assert.Equal(t, 0, p.Subscribers("u-1"))

	_, ok := <-sub.C()
	assert.False(t, ok)

	// Publishing after close must not panic.
	p.Publish(model.Order{UUID: "u-1"})

	// Double close is safe.
	sub.Close()
}
