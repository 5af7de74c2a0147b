package containers

import "errors"

var ErrInvalidRingSize = errors.New("ring size must be positive")

// Ring is a fixed set of slots addressed by a monotonically increasing
// frame number. Slot n and slot n+Len() are the same element.
type Ring[T any] struct {
	data []T
	size int
}

// Create a new Ring with size zero-valued slots
func NewRing[T any](size int) (*Ring[T], error) {
	if size <= 0 {
		return nil, ErrInvalidRingSize
	}
	return &Ring[T]{
		data: make([]T, size),
		size: size,
	}, nil
}

// Len returns the number of slots
func (r *Ring[T]) Len() int {
	return r.size
}

// Slot maps a frame number onto a slot index
func (r *Ring[T]) Slot(frame uint64) int {
	return int(frame % uint64(r.size))
}

// At returns a pointer to the slot used by frame
func (r *Ring[T]) At(frame uint64) *T {
	return &r.data[r.Slot(frame)]
}

// Get returns the value stored at slot index i
func (r *Ring[T]) Get(i int) T {
	return r.data[i]
}

// Set replaces the value stored at slot index i
func (r *Ring[T]) Set(i int, value T) {
	r.data[i] = value
}

// Each calls fn for every slot in index order. Iteration stops at the first error.
func (r *Ring[T]) Each(fn func(i int, value *T) error) error {
	for i := range r.data {
		if err := fn(i, &r.data[i]); err != nil {
			return err
		}
	}
	return nil
}

// Reset zeroes every slot
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
}
