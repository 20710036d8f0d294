package types

import "iter"

// Ordered is an insertion-ordered mapping from user ID to entry.
// Setting an ID that already exists replaces the value in place.
// Read methods treat a nil mapping as empty.
type Ordered[T any] struct {
	ids   []uint64
	items map[uint64]T
}

// NewOrdered creates an empty ordered mapping.
func NewOrdered[T any]() *Ordered[T] {
	return &Ordered[T]{
		items: make(map[uint64]T),
	}
}

// Len returns the number of entries. A nil mapping is empty.
func (o *Ordered[T]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.ids)
}

// Has reports whether the ID is present.
func (o *Ordered[T]) Has(id uint64) bool {
	if o == nil {
		return false
	}
	_, ok := o.items[id]
	return ok
}

// Get returns the entry stored for the ID.
func (o *Ordered[T]) Get(id uint64) (T, bool) {
	var zero T
	if o == nil {
		return zero, false
	}
	v, ok := o.items[id]
	return v, ok
}

// Set inserts the entry at the end or replaces an existing entry in place.
// The zero value is ready to use. Unlike the read methods, Set panics on a
// nil pointer since it has nowhere to store the entry.
func (o *Ordered[T]) Set(id uint64, v T) {
	if o.items == nil {
		o.items = make(map[uint64]T)
	}
	if _, ok := o.items[id]; !ok {
		o.ids = append(o.ids, id)
	}
	o.items[id] = v
}

// Delete removes the ID and reports whether it was present.
func (o *Ordered[T]) Delete(id uint64) bool {
	if o == nil {
		return false
	}
	if _, ok := o.items[id]; !ok {
		return false
	}
	delete(o.items, id)

	for i, existing := range o.ids {
		if existing == id {
			o.ids = append(o.ids[:i], o.ids[i+1:]...)
			break
		}
	}
	return true
}

// First returns the oldest entry.
func (o *Ordered[T]) First() (uint64, T, bool) {
	var zero T
	if o.Len() == 0 {
		return 0, zero, false
	}
	id := o.ids[0]
	return id, o.items[id], true
}

// IDs returns a copy of the IDs in insertion order, or nil when empty.
func (o *Ordered[T]) IDs() []uint64 {
	if o.Len() == 0 {
		return nil
	}
	ids := make([]uint64, len(o.ids))
	copy(ids, o.ids)
	return ids
}

// All iterates over entries in insertion order.
func (o *Ordered[T]) All() iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		if o == nil {
			return
		}
		for _, id := range o.ids {
			if !yield(id, o.items[id]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy that can be mutated independently.
func (o *Ordered[T]) Clone() *Ordered[T] {
	clone := NewOrdered[T]()
	for id, v := range o.All() {
		clone.Set(id, v)
	}
	return clone
}
