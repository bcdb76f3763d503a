// Package ring provides a fixed-capacity circular buffer with O(1) rotation.
//
// A Ring never grows or shrinks. Logical index i always resolves to the
// physical cell (head+i) mod n, so rotating only moves head. Shifting
// evicts the element that falls off one end and leaves the zero value of T
// in the freshly exposed cell at the other end.
package ring

import (
	"errors"
	"fmt"
	"iter"
)

// ErrZeroCapacity is returned when a ring is created without any slots.
var ErrZeroCapacity = errors.New("ring: capacity must be positive")

// Ring is a circular buffer over exactly Len() slots.
type Ring[T any] struct {
	buf  []T
	head int
}

// New creates a ring of n zero-valued slots.
func New[T any](n int) (*Ring[T], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrZeroCapacity, n)
	}
	return &Ring[T]{buf: make([]T, n)}, nil
}

// From creates a ring holding a copy of s, with s[0] at logical index 0.
func From[T any](s []T) (*Ring[T], error) {
	r, err := New[T](len(s))
	if err != nil {
		return nil, err
	}
	copy(r.buf, s)
	return r, nil
}

// Len returns the number of slots.
func (r *Ring[T]) Len() int {
	return len(r.buf)
}

func (r *Ring[T]) index(i int) int {
	n := len(r.buf)
	if i < 0 || i >= n {
		panic(fmt.Sprintf("ring: index %d out of range [0,%d)", i, n))
	}
	return (r.head + i) % n
}

// At returns the element at logical index i.
func (r *Ring[T]) At(i int) T {
	return r.buf[r.index(i)]
}

// Ptr returns a pointer to the element at logical index i.
// The pointer stays valid across rotations but not across shifts.
func (r *Ring[T]) Ptr(i int) *T {
	return &r.buf[r.index(i)]
}

// Set replaces the element at logical index i.
func (r *Ring[T]) Set(i int, v T) {
	r.buf[r.index(i)] = v
}

// RotateForward moves the head one slot forward: logical i now holds what was at i+1.
func (r *Ring[T]) RotateForward() {
	r.head = (r.head + 1) % len(r.buf)
}

// RotateBackward moves the head one slot backward: logical i now holds what was at i-1.
func (r *Ring[T]) RotateBackward() {
	n := len(r.buf)
	r.head = (r.head + n - 1) % n
}

// ShiftFront rotates backward and evicts the element that wrapped around to
// logical 0 (formerly the last element). Logical 0 is left zero-valued.
func (r *Ring[T]) ShiftFront() T {
	r.RotateBackward()
	return r.take(r.head)
}

// ShiftBack evicts logical 0 and rotates forward, leaving the last logical
// slot zero-valued.
func (r *Ring[T]) ShiftBack() T {
	old := r.take(r.head)
	r.RotateForward()
	return old
}

// PushFront shifts toward the back and installs v at logical 0.
// It returns the evicted former last element.
func (r *Ring[T]) PushFront(v T) T {
	old := r.ShiftFront()
	r.buf[r.head] = v
	return old
}

// PushBack shifts toward the front and installs v at the last logical index.
// It returns the evicted former first element.
func (r *Ring[T]) PushBack(v T) T {
	old := r.ShiftBack()
	r.Set(len(r.buf)-1, v)
	return old
}

func (r *Ring[T]) take(phys int) T {
	var zero T
	old := r.buf[phys]
	r.buf[phys] = zero
	return old
}

// Slice returns a copy of the contents in logical order.
func (r *Ring[T]) Slice() []T {
	out := make([]T, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	return append(out, r.buf[:r.head]...)
}

// Drain moves every element out in logical order, leaving all slots
// zero-valued and the head reset.
func (r *Ring[T]) Drain() []T {
	out := r.Slice()
	clear(r.buf)
	r.head = 0
	return out
}

// All iterates over the elements in logical order.
func (r *Ring[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := len(r.buf)
		for i := 0; i < n; i++ {
			if !yield(i, r.buf[(r.head+i)%n]) {
				return
			}
		}
	}
}

// Equal reports whether r holds exactly the elements of s in logical order.
func Equal[T comparable](r *Ring[T], s []T) bool {
	if r.Len() != len(s) {
		return false
	}
	for i, v := range r.All() {
		if v != s[i] {
			return false
		}
	}
	return true
}
