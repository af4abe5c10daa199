package di

import (
	"context"
	"sync"

	"github.com/tkrause/scopekit/internal/errors"
)

// Future represents a value that has not been resolved from the Scope yet.
// The value is resolved the first time [Future.Result] is called.
type Future[T any] interface {
	// Result returns the resolved value, or an error if the value could not be resolved.
	Result() (T, error)
}

// NewFuture returns a [Future] that lazily resolves a service of type T from
// the given [Scope].
//
// The service is resolved at most once, on the first call to Result.
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func NewFuture[T any](ctx context.Context, s Scope, opts ...ResolveOption) Future[T] {
	return lazyFuture[T]{
		fn: sync.OnceValues(func() (T, error) {
			return Resolve[T](ctx, s, opts...)
		}),
	}
}

type lazyFuture[T any] struct {
	fn func() (T, error)
}

func (f lazyFuture[T]) Result() (T, error) {
	val, err := f.fn()
	return val, errors.Wrap(err, "future result")
}

var _ Future[any] = (*lazyFuture[any])(nil)

// promise stores the result of resolving a service.
// Concurrent resolvers share a single promise per service so an instance is
// only created once.
type promise struct {
	val  any
	err  error
	done chan struct{}
}

func newPromise() *promise {
	return &promise{
		done: make(chan struct{}),
	}
}

func (p *promise) setResult(val any, err error) {
	p.val = val
	p.err = err
	close(p.done)
}

func (p *promise) Result() (any, error) {
	<-p.done
	return p.val, p.err
}
