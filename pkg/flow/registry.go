package flow

import (
	"math/rand"
	"sort"
)

type liveOrder struct {
	id     uint64
	symbol string
}

// Registry is the set of live (issued, not yet cancelled) order ids.
//
// Members sit in a dense slice with an id->slot index, so insert, remove
// and uniform selection are all O(1). Remove swaps the last member into
// the freed slot, which keeps slot order a deterministic function of the
// operation history. Not safe for concurrent use.
type Registry struct {
	orders []liveOrder
	slot   map[uint64]int
}

func NewRegistry() *Registry {
	return &Registry{slot: make(map[uint64]int)}
}

func (r *Registry) Len() int { return len(r.orders) }

func (r *Registry) Contains(id uint64) bool {
	_, ok := r.slot[id]
	return ok
}

// Symbol returns the symbol the live order was created on.
func (r *Registry) Symbol(id uint64) (string, bool) {
	i, ok := r.slot[id]
	if !ok {
		return "", false
	}
	return r.orders[i].symbol, true
}

// Add inserts id. Adding an id that is already live is a no-op.
func (r *Registry) Add(id uint64, symbol string) {
	if _, ok := r.slot[id]; ok {
		return
	}
	r.slot[id] = len(r.orders)
	r.orders = append(r.orders, liveOrder{id: id, symbol: symbol})
}

// Remove deletes id and reports whether it was live.
func (r *Registry) Remove(id uint64) bool {
	i, ok := r.slot[id]
	if !ok {
		return false
	}
	last := len(r.orders) - 1
	if i != last {
		r.orders[i] = r.orders[last]
		r.slot[r.orders[i].id] = i
	}
	r.orders = r.orders[:last]
	delete(r.slot, id)
	return true
}

// Pick selects a live order uniformly at random. ok is false when empty.
func (r *Registry) Pick(rng *rand.Rand) (id uint64, symbol string, ok bool) {
	if len(r.orders) == 0 {
		return 0, "", false
	}
	o := r.orders[rng.Intn(len(r.orders))]
	return o.id, o.symbol, true
}

// IDs returns the live ids in ascending order.
func (r *Registry) IDs() []uint64 {
	ids := make([]uint64, len(r.orders))
	for i, o := range r.orders {
		ids[i] = o.id
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
