package todo

// DefaultInitialID is the first id handed out by a fresh allocator.
const DefaultInitialID = 1

// IDAllocator hands out monotonically increasing task ids.
// It is not safe for concurrent use on its own; the owning Store guards it.
type IDAllocator struct {
	initial int
	next    int
}

// NewIDAllocator creates an allocator starting at initial.
// Values below DefaultInitialID are raised to it.
func NewIDAllocator(initial int) *IDAllocator {
	if initial < DefaultInitialID {
		initial = DefaultInitialID
	}
	return &IDAllocator{initial: initial, next: initial}
}

// Next returns the next id and advances the counter.
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Peek returns the id Next would return, without advancing.
func (a *IDAllocator) Peek() int {
	return a.next
}

// Reset moves the counter back to its initial value.
func (a *IDAllocator) Reset() {
	a.next = a.initial
}

// Restore sets the counter to next, never below the initial value.
func (a *IDAllocator) Restore(next int) {
	if next < a.initial {
		next = a.initial
	}
	a.next = next
}
