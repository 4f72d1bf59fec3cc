package ngsio

// Reader is the capability set shared by every format reader. Each format
// package provides its own Open function and a concrete reader type.
type Reader[T any] interface {
	IterateAll() (*Iterable[T], error)
	Close() error
}

// Lifecycle tracks whether a reader is open and which of its sequences is
// the current one. Readers embed a Lifecycle; sequences hold the generation
// they were started with and check it on every pull.
type Lifecycle struct {
	name       string
	closed     bool
	generation uint64
}

// NewLifecycle returns the lifecycle of an open reader. name is used in error
// messages, e.g. "BedReader".
func NewLifecycle(name string) *Lifecycle {
	return &Lifecycle{name: name}
}

// Begin starts a new consumption path and retires every earlier one.
func (l *Lifecycle) Begin() (uint64, error) {
	if l.closed {
		return 0, Errorf(FailedPrecondition, "cannot iterate a closed %s", l.name)
	}
	l.generation++

	return l.generation, nil
}

// Alive returns nil if a sequence started at generation may still pull.
func (l *Lifecycle) Alive(generation uint64) error {
	if l.closed {
		return Errorf(FailedPrecondition, "sequence used after its reader was closed")
	}
	if generation != l.generation {
		return Errorf(FailedPrecondition, "sequence superseded by a newer iteration over the same %s", l.name)
	}

	return nil
}

// Closed reports whether MarkClosed has been called.
func (l *Lifecycle) Closed() bool {
	return l.closed
}

// MarkClosed flags the reader as closed. The second call fails and changes
// nothing.
func (l *Lifecycle) MarkClosed() error {
	if l.closed {
		return Errorf(FailedPrecondition, "%s already closed", l.name)
	}
	l.closed = true

	return nil
}

// Iterable is a single-pass, forward-only cursor over one reader. It is not
// safe for concurrent use, and neither is its reader.
type Iterable[T any] struct {
	life       *Lifecycle
	generation uint64
	pull       func() (T, error)
	done       bool
}

// NewIterable binds pull to a freshly started consumption path of life. pull
// returns Exhausted() once there are no more records.
func NewIterable[T any](life *Lifecycle, pull func() (T, error)) (*Iterable[T], error) {
	generation, err := life.Begin()
	if err != nil {
		return nil, err
	}

	return &Iterable[T]{
		life:       life,
		generation: generation,
		pull:       pull,
	}, nil
}

// Next returns the next record and true, or the zero value and false once the
// sequence is exhausted. A decode error aborts only the current pull.
func (it *Iterable[T]) Next() (T, bool, error) {
	var zero T

	if err := it.life.Alive(it.generation); err != nil {
		return zero, false, err
	}

	if it.done {
		return zero, false, nil
	}

	rec, err := it.pull()
	if IsKind(err, OutOfRange) {
		it.done = true
		return zero, false, nil
	} else if err != nil {
		return zero, false, err
	}

	return rec, true, nil
}

// Collect drains it. On error, the records read so far are returned with it.
func Collect[T any](it *Iterable[T]) ([]T, error) {
	out := make([]T, 0)
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return out, err
		} else if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}
