// Package web serves the demo page.
//
// The page resolves the same scoped notification service from two different
// scopes, the per-request scope and a component-local child scope it opens
// itself, and renders both identifiers side by side. When the identifiers
// differ, each scope has cached its own instance of the "same" service.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/demo/services"
	"github.com/tkrause/scopekit/dicontext"
	"github.com/tkrause/scopekit/dihttp"
)

// NewRouter returns the demo HTTP handler. Every route below runs inside a
// request scope created from the root container c.
func NewRouter(c *di.Container, log *zap.Logger) http.Handler {
	h := &handler{log: log}

	r := chi.NewRouter()
	r.Use(dihttp.RequestScopeMiddleware(c,
		dihttp.WithNewScopeErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("creating request scope", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}),
		dihttp.WithScopeCloseErrorHandler(func(r *http.Request, err error) {
			log.Error("closing request scope", zap.Error(err))
		}),
	))

	r.Get("/", h.showPage)
	r.Post("/notify/view", h.notifyView)
	r.Post("/notify/shared", h.notifyShared)
	r.Get("/healthz", h.healthz)

	return r
}

type handler struct {
	log *zap.Logger
}

func (h *handler) showPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestScope, ok := dicontext.Scope(ctx).(*di.Container)
	if !ok {
		h.serverError(w, "request scope not found on context", nil)
		return
	}

	// The scoped notification service as the request scope sees it.
	requestSvc, err := dicontext.Resolve[*services.NotificationService](ctx)
	if err != nil {
		h.serverError(w, "resolving request-scoped notification service", err)
		return
	}

	// The page owns a component-local scope, the way a UI component owns its
	// own container. Closed when the page is done rendering.
	comp, err := requestScope.NewScope()
	if err != nil {
		h.serverError(w, "creating component scope", err)
		return
	}
	defer func() {
		if err := comp.Close(ctx); err != nil {
			h.log.Error("closing component scope", zap.Error(err))
		}
	}()

	view, err := di.Resolve[*services.ViewService](ctx, comp)
	if err != nil {
		h.serverError(w, "resolving view service", err)
		return
	}

	view.SetScope(ctx, requestScope)

	shared, err := view.Outer()
	if err != nil {
		h.serverError(w, "resolving shared notification service", err)
		return
	}

	// Refresh signal from the shared service. Deferred after the component
	// scope close above, so we unsubscribe first and tear down second.
	unsubscribe := shared.Subscribe(func() {
		h.log.Debug("page refresh requested")
	})
	defer unsubscribe()

	data := pageData{
		ComponentID: view.Inner().ID().String(),
		RequestID:   requestSvc.ID().String(),
		SharedID:    shared.ID().String(),
		StampID:     view.Stamp().ID().String(),
		Message:     shared.Message(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page(data).Render(w); err != nil {
		h.log.Error("rendering page", zap.Error(err))
	}
}

// notifyView fires the notification the way the page's view service does:
// through a component scope with the outer scope supplied after construction.
func (h *handler) notifyView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestScope, ok := dicontext.Scope(ctx).(*di.Container)
	if !ok {
		h.serverError(w, "request scope not found on context", nil)
		return
	}

	comp, err := requestScope.NewScope()
	if err != nil {
		h.serverError(w, "creating component scope", err)
		return
	}
	defer func() {
		if err := comp.Close(ctx); err != nil {
			h.log.Error("closing component scope", zap.Error(err))
		}
	}()

	view, err := di.Resolve[*services.ViewService](ctx, comp)
	if err != nil {
		h.serverError(w, "resolving view service", err)
		return
	}

	view.SetScope(ctx, requestScope)

	if err := view.UpdateView(); err != nil {
		h.serverError(w, "updating view", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// notifyShared fires the notification directly on the shared service.
func (h *handler) notifyShared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shared, err := dicontext.Resolve[*services.NotificationService](ctx, di.WithTag(services.SharedTag))
	if err != nil {
		h.serverError(w, "resolving shared notification service", err)
		return
	}

	shared.NotifyChanged()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
