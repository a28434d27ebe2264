package pipeline

// window is a fixed-capacity buffer of the most recent values pushed.
type window[T any] struct {
	capacity int
	values   []T
}

func newWindow[T any](capacity int) *window[T] {
	return &window[T]{
		capacity: capacity,
		values:   make([]T, 0, capacity),
	}
}

// Push appends a value, discarding the oldest when at capacity.
func (w *window[T]) Push(v T) {
	w.values = append(w.values, v)
	if len(w.values) > w.capacity {
		w.values = w.values[1:]
	}
}

// Values returns the retained values, oldest first. The slice is shared;
// callers must not mutate it.
func (w *window[T]) Values() []T {
	return w.values
}

// Len returns the number of retained values.
func (w *window[T]) Len() int {
	return len(w.values)
}
