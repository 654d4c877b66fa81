// Package pubsub fans order-state changes out to live subscribers.
// Each subscription owns a bounded channel; a full buffer drops the
// oldest snapshot rather than blocking the publisher, so slow or
// stalled consumers never back-pressure reconciliation.
package pubsub

import (
	"sync"
	"time"

	"arcpay-merchant/internal/model"

	"github.com/google/uuid"
)

// subscriberBuffer bounds undelivered snapshots per subscriber. Only
// the latest states matter to a UI, so drop-oldest loses nothing a
// reconnect would not also lose.
const subscriberBuffer = 16

// Subscription is a live listener bound to one order uuid. C yields
// order snapshots until Close. Delivery is at-least-once while the
// subscription lives; there is no replay across disconnects.
type Subscription struct {
	ID        string
	UUID      string
	CreatedAt time.Time

	ch     chan model.Order
	pub    *Publisher
	closed bool
}

// C is the receive side of the subscription.
func (s *Subscription) C() <-chan model.Order {
	return s.ch
}

// Close removes the subscription and releases its channel. Safe to
// call more than once.
func (s *Subscription) Close() {
	s.pub.unsubscribe(s)
}

type Publisher struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener for orderUUID. The caller is
// expected to emit the current store snapshot itself before draining
// the channel, then Close when done.
func (p *Publisher) Subscribe(orderUUID string) *Subscription {
	sub := &Subscription{
		ID:        uuid.NewString(),
		UUID:      orderUUID,
		CreatedAt: time.Now(),
		ch:        make(chan model.Order, subscriberBuffer),
		pub:       p,
	}

	p.mu.Lock()
	set, ok := p.subs[orderUUID]
	if !ok {
		set = make(map[*Subscription]struct{})
		p.subs[orderUUID] = set
	}
	set[sub] = struct{}{}
	p.mu.Unlock()

	return sub
}

func (p *Publisher) unsubscribe(sub *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	if set, ok := p.subs[sub.UUID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(p.subs, sub.UUID)
		}
	}
	close(sub.ch)
}

// Publish delivers order to every subscriber of its uuid without
// blocking: when a buffer is full the oldest pending snapshot is
// discarded to make room.
func (p *Publisher) Publish(order model.Order) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for sub := range p.subs[order.UUID] {
		select {
		case sub.ch <- order:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- order:
			default:
			}
		}
	}
}

// Subscribers reports the number of live subscriptions for uuid.
func (p *Publisher) Subscribers(uuid string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[uuid])
}
