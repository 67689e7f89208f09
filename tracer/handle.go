package tracer

import "sync/atomic"

// Handle is an opaque reference to a live instance, assigned by the
// instantiating side when the instance is created.
// Handle 0 is reserved and always invalid.
type Handle uint32

// HandleAllocator hands out dense handles starting at 1.
// It is safe for concurrent use.
type HandleAllocator struct {
	last atomic.Uint32
}

// Next returns a fresh handle.
func (a *HandleAllocator) Next() Handle {
	return Handle(a.last.Add(1))
}

type slot[T any] struct {
	value T
	valid bool
}

// arena maps handles to values by direct indexing: the value of handle h
// lives at slots[h-1].
type arena[T any] struct {
	slots []slot[T]
	count int
}

func (a *arena[T]) get(h Handle) (T, bool) {
	var zero T
	if h == 0 || int(h) > len(a.slots) {
		return zero, false
	}
	s := a.slots[h-1]
	if !s.valid {
		return zero, false
	}
	return s.value, true
}

// insert stores v under h. It reports false if h is invalid or taken.
func (a *arena[T]) insert(h Handle, v T) bool {
	if h == 0 {
		return false
	}
	if int(h) > len(a.slots) {
		grown := make([]slot[T], int(h), max(int(h), 2*len(a.slots)))
		copy(grown, a.slots)
		a.slots = grown
	}
	if a.slots[h-1].valid {
		return false
	}
	a.slots[h-1] = slot[T]{value: v, valid: true}
	a.count++
	return true
}

func (a *arena[T]) len() int {
	return a.count
}
