// Package store holds the process-wide order state. It replaces the
// sample servers' bare global map with a keyed store whose reads and
// writes are linearizable per uuid: the map lock only guards entry
// lookup, and each entry serializes its own mutations, so different
// uuids reconcile fully in parallel.
package store

import (
	"sort"
	"sync"

	"arcpay-merchant/internal/model"
)

type entry struct {
	mu    sync.Mutex
	order model.Order
}

type Store struct {
	mu     sync.RWMutex
	orders map[string]*entry
}

func New() *Store {
	return &Store{orders: make(map[string]*entry)}
}

// Get returns a snapshot of the order for uuid.
func (s *Store) Get(uuid string) (model.Order, bool) {
	s.mu.RLock()
	e, ok := s.orders[uuid]
	s.mu.RUnlock()
	if !ok {
		return model.Order{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.order.UUID == "" {
		return model.Order{}, false
	}
	return e.order, true
}

// Upsert applies mutate under the per-uuid lock and returns the
// resulting snapshot. mutate receives the current order (zero value
// when the uuid is unseen) and reports whether its result should be
// stored; returning false leaves the entry untouched, which keeps
// no-op reconciliations out of the critical path's write set. mutate
// must be side-effect-free so the critical section stays short.
func (s *Store) Upsert(uuid string, mutate func(cur model.Order, exists bool) (model.Order, bool)) model.Order {
	s.mu.Lock()
	e, ok := s.orders[uuid]
	if !ok {
		e = &entry{}
		s.orders[uuid] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	next, store := mutate(e.order, e.order.UUID != "")
	if store {
		e.order = next
	}
	return e.order
}

// Put stores order unconditionally. Used when populating the store at
// boot and when recording a freshly created order.
func (s *Store) Put(order model.Order) {
	s.Upsert(order.UUID, func(model.Order, bool) (model.Order, bool) {
		return order, true
	})
}

// List returns snapshots of all known orders, ordered by creation
// time then uuid for stable debug output.
func (s *Store) List() []model.Order {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.orders))
	for _, e := range s.orders {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Order, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.order.UUID != "" {
			out = append(out, e.order)
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}

// Len reports the number of known orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
