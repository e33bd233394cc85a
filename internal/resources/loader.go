// Package resources loads the classifier, the class labels and the disease
// reference text once per process and reports which of them are unusable.
package resources

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable is returned for a resource whose load failed.
var ErrUnavailable = errors.New("resource unavailable")

// Loader memoizes a single artifact. The load function runs at most once;
// every later Get returns the same value or the same error.
type Loader[T any] struct {
	name     string
	load     func() (T, error)
	describe func(error) string

	once  sync.Once
	val   T
	err   error
	cause error
}

func NewLoader[T any](name string, load func() (T, error), describe func(error) string) *Loader[T] {
	return &Loader[T]{name: name, load: load, describe: describe}
}

func (l *Loader[T]) Name() string {
	return l.name
}

func (l *Loader[T]) Get() (T, error) {
	l.once.Do(func() {
		val, err := l.load()
		if err != nil {
			l.cause = err
			l.err = fmt.Errorf("%w: %s: %w", ErrUnavailable, l.name, err)
			return
		}
		l.val = val
	})
	return l.val, l.err
}

// Message is the user-facing description of the load failure, or "" when the
// artifact is available.
func (l *Loader[T]) Message() string {
	if _, err := l.Get(); err == nil {
		return ""
	}
	if l.describe != nil {
		return l.describe(l.cause)
	}
	return l.cause.Error()
}
