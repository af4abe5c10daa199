package di_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/internal/testtypes"
	"github.com/tkrause/scopekit/internal/testutils"
)

func Test_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves arguments", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA),
			di.WithService(testtypes.NewInterfaceB),
		)
		require.NoError(t, err)

		called := false
		err = di.Invoke(ctx, c, func(a testtypes.InterfaceA, b testtypes.InterfaceB) {
			assert.NotNil(t, a)
			assert.NotNil(t, b)
			called = true
		})

		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("context and scope arguments", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA),
		)
		require.NoError(t, err)

		// A value-carrying context is pointer-backed, so Same can compare it.
		invokeCtx := testutils.ContextWithTestValue(ctx, "value")

		err = di.Invoke(invokeCtx, c, func(fnCtx context.Context, s di.Scope) {
			assert.Same(t, invokeCtx, fnCtx)
			assert.True(t, s.Contains(testtypes.TypeInterfaceA))
		})
		assert.NoError(t, err)
	})

	t.Run("returns function error", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		wantErr := stderrors.New("invoke failed")
		err = di.Invoke(ctx, c, func() error { return wantErr })

		// The function's error is returned unwrapped
		assert.Same(t, wantErr, err)
	})

	t.Run("fn is not a function", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		err = di.Invoke(ctx, c, 1234)
		testutils.LogError(t, err)

		assert.EqualError(t, err, "di.Invoke int: fn must be a function")
	})

	t.Run("fn is nil", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		err = di.Invoke(ctx, c, nil)
		testutils.LogError(t, err)

		assert.EqualError(t, err, "di.Invoke <nil>: fn must be a function")
	})

	t.Run("dependency not registered", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		err = di.Invoke(ctx, c, func(testtypes.InterfaceA) {})
		testutils.LogError(t, err)

		assert.ErrorIs(t, err, di.ErrServiceNotRegistered)
	})

	t.Run("with tagged dependency", func(t *testing.T) {
		tagged := &testtypes.StructA{Tag: "tagged"}

		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA),
			di.WithService(func() testtypes.InterfaceA { return tagged }, di.WithTag("tag")),
		)
		require.NoError(t, err)

		err = di.Invoke(ctx, c, func(a testtypes.InterfaceA) {
			assert.Same(t, tagged, a)
		}, di.WithTagged[testtypes.InterfaceA]("tag"))

		assert.NoError(t, err)
	})

	t.Run("context canceled", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err = di.Invoke(canceled, c, func() {
			assert.Fail(t, "should not be called")
		})
		testutils.LogError(t, err)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
