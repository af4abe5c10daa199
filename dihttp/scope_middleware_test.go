package dihttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/dicontext"
	"github.com/tkrause/scopekit/dihttp"
	"github.com/tkrause/scopekit/internal/testtypes"
)

func Test_RequestScopeMiddleware(t *testing.T) {
	t.Run("scope on request context", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA, di.Scoped),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := dicontext.Resolve[testtypes.InterfaceA](r.Context())
			assert.NotNil(t, got)
			assert.NoError(t, err)
		})

		mw := dihttp.RequestScopeMiddleware(c)
		srv := mw(handler)

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("scoped services differ across requests", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA, di.Scoped),
		)
		require.NoError(t, err)

		var instances []testtypes.InterfaceA
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			instances = append(instances, dicontext.MustResolve[testtypes.InterfaceA](r.Context()))
		})

		mw := dihttp.RequestScopeMiddleware(c)
		srv := mw(handler)

		srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Len(t, instances, 2)
		assert.NotSame(t, instances[0], instances[1])
	})

	t.Run("request registered with the scope", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(func(r *http.Request) testtypes.InterfaceA {
				assert.NotNil(t, r)
				return &testtypes.StructA{Tag: r.URL.Path}
			}, di.Scoped),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := dicontext.MustResolve[testtypes.InterfaceA](r.Context())
			a := got.(*testtypes.StructA)
			assert.Equal(t, "/test-path", a.Tag)
		})

		mw := dihttp.RequestScopeMiddleware(c)
		srv := mw(handler)

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test-path", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("scope closed after request", func(t *testing.T) {
		closed := false

		c, err := di.NewContainer(
			di.WithService(func() *closeTracker {
				return &closeTracker{onClose: func() { closed = true }}
			}, di.Scoped),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = dicontext.MustResolve[*closeTracker](r.Context())
			assert.False(t, closed)
		})

		mw := dihttp.RequestScopeMiddleware(c)
		srv := mw(handler)

		srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, closed)
	})

	t.Run("with scope options", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := dicontext.MustResolve[testtypes.InterfaceA](r.Context())
			assert.NotNil(t, got)
		})

		mw := dihttp.RequestScopeMiddleware(c,
			dihttp.WithScopeOptions(
				di.WithService(testtypes.NewInterfaceA),
			),
		)
		srv := mw(handler)

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("new scope error handler", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		// A closed parent container makes NewScope fail
		err = c.Close(context.Background())
		require.NoError(t, err)

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		mw := dihttp.RequestScopeMiddleware(c,
			dihttp.WithNewScopeErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				assert.Error(t, err)
				http.Error(w, "scope error", http.StatusServiceUnavailable)
			}),
		)
		srv := mw(handler)

		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("scope close error handler", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(func() *closeTracker {
				return &closeTracker{
					onClose: func() {},
					err:     errCloseFailed,
				}
			}, di.Scoped),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = dicontext.MustResolve[*closeTracker](r.Context())
		})

		var gotErr error
		mw := dihttp.RequestScopeMiddleware(c,
			dihttp.WithScopeCloseErrorHandler(func(r *http.Request, err error) {
				gotErr = err
			}),
		)
		srv := mw(handler)

		srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.ErrorIs(t, gotErr, errCloseFailed)
	})
}

var errCloseFailed = errors.New("close failed")

type closeTracker struct {
	onClose func()
	err     error
}

func (c *closeTracker) Close(context.Context) error {
	c.onClose()
	return c.err
}
