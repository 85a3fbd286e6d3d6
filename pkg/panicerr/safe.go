// Package panicerr turns panics in background loops into errors.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"

	"github.com/kazz187/microwin/pkg/cerr"
)

// Safe wraps fn so a panic is returned as an Internal error carrying the
// panicking goroutine's stack.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if r := catcher.Recovered(); r != nil {
			e := cerr.NewError(cerr.Internal, "panic recovered", r.AsError())
			e.Stack = string(r.Stack)
			return e
		}
		return err
	}
}

// SafeContext is Safe for functions that take a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Loop adapts a blocking func(ctx) with no result, such as a dispatcher's
// Start method, for use with SafeContext.
func Loop(fn func(context.Context)) func(context.Context) error {
	return func(ctx context.Context) error {
		fn(ctx)
		return nil
	}
}
