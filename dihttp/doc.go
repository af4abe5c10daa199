// Package dihttp provides HTTP middleware to create per-request container scopes.
//
// The middleware creates a child scope from the root [di.Container] for each
// incoming request and stores it on the request context. Handlers resolve
// request-scoped services with [dicontext.Resolve] or [dicontext.MustResolve].
// The scope is closed, and its disposable services with it, once the request
// has been processed.
//
//	c, err := di.NewContainer(
//		di.WithService(NewLogger),
//		di.WithService(NewRequestStore, di.Scoped),
//	)
//	// ...
//	middleware := dihttp.RequestScopeMiddleware(c)
//	handler = middleware(handler)
package dihttp
