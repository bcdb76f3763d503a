package ring

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func mustFrom(t *testing.T, s []int) *Ring[int] {
	t.Helper()
	r, err := From(s)
	if err != nil {
		t.Fatalf("From(%v): %v", s, err)
	}
	return r
}

func TestNewZeroCapacity(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New[int](n); !errors.Is(err, ErrZeroCapacity) {
			t.Errorf("New(%d) error = %v, want ErrZeroCapacity", n, err)
		}
	}
	if _, err := From[int](nil); !errors.Is(err, ErrZeroCapacity) {
		t.Errorf("From(nil) error = %v, want ErrZeroCapacity", err)
	}
}

func TestShift(t *testing.T) {
	r := mustFrom(t, []int{0, 1, 2, 3, 4})

	if got := r.ShiftFront(); got != 4 {
		t.Errorf("ShiftFront() = %d, want 4", got)
	}
	if !Equal(r, []int{0, 0, 1, 2, 3}) {
		t.Errorf("after ShiftFront: %v", r.Slice())
	}

	for i, want := range []int{0, 0, 1} {
		if got := r.ShiftBack(); got != want {
			t.Errorf("ShiftBack() #%d = %d, want %d", i, got, want)
		}
	}
	if !Equal(r, []int{2, 3, 0, 0, 0}) {
		t.Errorf("after ShiftBack: %v", r.Slice())
	}

	r.RotateForward()
	if !Equal(r, []int{3, 0, 0, 0, 2}) {
		t.Errorf("after RotateForward: %v", r.Slice())
	}

	r.ShiftFront()
	if !Equal(r, []int{0, 3, 0, 0, 0}) {
		t.Errorf("after second ShiftFront: %v", r.Slice())
	}
}

func TestRotate(t *testing.T) {
	r := mustFrom(t, []int{0, 1, 2, 3, 4})

	r.RotateBackward()
	if !Equal(r, []int{4, 0, 1, 2, 3}) {
		t.Errorf("after RotateBackward: %v", r.Slice())
	}

	r.RotateForward()
	if !Equal(r, []int{0, 1, 2, 3, 4}) {
		t.Errorf("after RotateForward: %v", r.Slice())
	}
}

func TestRotationInvariant(t *testing.T) {
	const n = 7
	orig := []int{10, 11, 12, 13, 14, 15, 16}
	r := mustFrom(t, orig)
	rng := rand.New(rand.NewPCG(1, 2))

	net := 0
	for step := 0; step < 500; step++ {
		if rng.IntN(2) == 0 {
			r.RotateBackward()
			net++
		} else {
			r.RotateForward()
			net--
		}

		for i := 0; i < n; i++ {
			src := ((i-net)%n + n) % n
			if got := r.At(i); got != orig[src] {
				t.Fatalf("step %d: At(%d) = %d, want %d (net rotation %d)", step, i, got, orig[src], net)
			}
		}
	}
}

func TestPushFrontBack(t *testing.T) {
	r := mustFrom(t, []int{1, 2, 3})

	last := r.At(2)
	if got := r.PushFront(9); got != last {
		t.Errorf("PushFront returned %d, want %d", got, last)
	}
	if r.At(0) != 9 {
		t.Errorf("At(0) = %d after PushFront, want 9", r.At(0))
	}
	if !Equal(r, []int{9, 1, 2}) {
		t.Errorf("after PushFront: %v", r.Slice())
	}

	if got := r.PushBack(7); got != 9 {
		t.Errorf("PushBack returned %d, want 9", got)
	}
	if !Equal(r, []int{1, 2, 7}) {
		t.Errorf("after PushBack: %v", r.Slice())
	}
}

func TestDrain(t *testing.T) {
	r := mustFrom(t, []int{0, 1, 2, 3, 4})
	r.RotateBackward()
	r.RotateBackward()
	r.RotateBackward()
	if got := r.Slice(); !slices.Equal(got, []int{2, 3, 4, 0, 1}) {
		t.Errorf("Slice() = %v", got)
	}

	r.RotateForward()
	got := r.Drain()
	if !slices.Equal(got, []int{3, 4, 0, 1, 2}) {
		t.Errorf("Drain() = %v", got)
	}
	if !Equal(r, []int{0, 0, 0, 0, 0}) {
		t.Errorf("ring not emptied by Drain: %v", r.Slice())
	}
}

func TestAll(t *testing.T) {
	r := mustFrom(t, []int{0, 1, 2, 3, 4})
	r.RotateForward()

	var got []int
	for i, v := range r.All() {
		if v != r.At(i) {
			t.Errorf("All yielded %d at %d, At gives %d", v, i, r.At(i))
		}
		got = append(got, v)
	}
	if !slices.Equal(got, []int{1, 2, 3, 4, 0}) {
		t.Errorf("All() = %v", got)
	}
}

func TestIndexOutOfRangePanics(t *testing.T) {
	r := mustFrom(t, []int{1, 2})
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()
	r.At(2)
}

func TestPtrSurvivesRotation(t *testing.T) {
	r := mustFrom(t, []int{1, 2, 3})
	p := r.Ptr(1)
	r.RotateForward()
	*p = 20
	if r.At(0) != 20 {
		t.Errorf("At(0) = %d, want 20", r.At(0))
	}
}
