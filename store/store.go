// Package store provides an arena of fixed slots addressed by small
// integer handles.
//
// Handles are assigned by the owner of the arena (e.g. dense region IDs),
// so every slot exists from construction and lookups cannot miss.
package store

import (
	"io"
	"io/ioutil"
	"log"
)

// Arena is a contiguous table of n slots of T.
type Arena[T any] struct {
	logger *log.Logger
	slots  []T
	resets []int // Handle → number of times the slot was reset.
}

// NewArena allocates an arena with n zero slots.
func NewArena[T any](n int) *Arena[T] {
	return &Arena[T]{
		logger: log.New(ioutil.Discard, "store: ", 0),
		slots:  make([]T, n),
		resets: make([]int, n),
	}
}

// Get returns the slot of handle h, or an ObjUndefError if h was never
// allocated.
func (a *Arena[T]) Get(h int) (*T, error) {
	if h < 0 || h >= len(a.slots) {
		return nil, ObjUndefError{Handle: h, Size: len(a.slots)}
	}
	return &a.slots[h], nil
}

// Slot returns the slot of handle h. An unallocated handle is a programming
// error and panics.
func (a *Arena[T]) Slot(h int) *T {
	s, err := a.Get(h)
	if err != nil {
		panic(err)
	}
	return s
}

// Reset zeroes the slot of handle h for reuse. Resetting a zero slot has no
// effect other than being counted.
func (a *Arena[T]) Reset(h int) {
	s := a.Slot(h)
	var zero T
	*s = zero
	a.resets[h]++
	a.logger.Printf("Reset: slot %d (%d resets)", h, a.resets[h])
}

// Resets returns the number of times the slot of h was reset.
func (a *Arena[T]) Resets(h int) int {
	a.Slot(h)
	return a.resets[h]
}

// Len returns the number of slots.
func (a *Arena[T]) Len() int { return len(a.slots) }

// SetLog sets debug output stream to w.
func (a *Arena[T]) SetLog(w io.Writer) {
	if w != nil {
		a.logger.SetOutput(w)
	}
}
