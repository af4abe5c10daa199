package services

import (
	"context"

	"go.uber.org/zap"

	di "github.com/tkrause/scopekit"
	"github.com/tkrause/scopekit/internal/errors"
)

// ErrScopeNotSet is returned when the shared notification service is accessed
// before SetScope has supplied the outer scope.
var ErrScopeNotSet = errors.New(
	"outer scope not set: call SetScope before accessing the shared notification service")

// ViewService aggregates the services a page works with.
//
// The transient stamp and the inner notification service are injected directly,
// so they come from whichever scope constructs the ViewService. The shared
// notification service is late-bound: the page supplies the outer scope with
// SetScope after construction, and the service is resolved lazily from there.
type ViewService struct {
	ident

	stamp *TransientStamp
	inner *NotificationService
	outer di.Future[*NotificationService]
}

func NewViewService(log *zap.Logger, stamp *TransientStamp, inner *NotificationService) *ViewService {
	return &ViewService{
		ident: newIdent("view", log),
		stamp: stamp,
		inner: inner,
	}
}

// Stamp returns the directly injected transient stamp.
func (s *ViewService) Stamp() *TransientStamp {
	return s.stamp
}

// Inner returns the notification service injected at construction.
// Its identifier reveals which scope constructed the ViewService.
func (s *ViewService) Inner() *NotificationService {
	return s.inner
}

// SetScope supplies the outer scope that owns the shared notification service.
// It must be called before Outer or UpdateView.
func (s *ViewService) SetScope(ctx context.Context, outer di.Scope) {
	s.outer = di.NewFuture[*NotificationService](ctx, outer, di.WithTag(SharedTag))
}

// Outer returns the shared notification service resolved from the scope
// supplied with SetScope.
//
// Returns [ErrScopeNotSet] if SetScope has not been called.
func (s *ViewService) Outer() (*NotificationService, error) {
	if s.outer == nil {
		return nil, ErrScopeNotSet
	}

	svc, err := s.outer.Result()
	if err != nil {
		return nil, errors.Wrap(err, "resolve shared notification service")
	}

	return svc, nil
}

// UpdateView fires NotifyChanged on the shared notification service.
//
// Returns [ErrScopeNotSet] if SetScope has not been called.
func (s *ViewService) UpdateView() error {
	outer, err := s.Outer()
	if err != nil {
		return err
	}

	outer.NotifyChanged()
	return nil
}
