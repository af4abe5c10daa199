package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SharedTag is the tag for the application-wide NotificationService
// registration. The same constructor is registered twice: untagged with a
// Scoped lifetime, and with this tag as a Singleton. Comparing the identifiers
// of the two is the whole point of the demo.
const SharedTag = "shared"

// NotificationService holds the most recent change message and notifies
// subscribers synchronously when it changes.
//
// The subscriber list is owned by the service. Subscribe returns a function
// that removes the subscriber; after it is called the subscriber receives no
// further notifications.
type NotificationService struct {
	ident

	mu      sync.Mutex
	message string
	subs    map[uint64]func()
	nextSub uint64
}

func NewNotificationService(log *zap.Logger) *NotificationService {
	return &NotificationService{
		ident: newIdent("notification", log),
		subs:  make(map[uint64]func()),
	}
}

// Message returns the message set by the last NotifyChanged call,
// or the empty string if NotifyChanged has not been called.
func (s *NotificationService) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Subscribe registers fn to be called on every NotifyChanged.
// The returned function removes the subscription.
func (s *NotificationService) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// NotifyChanged updates the message with the current time and invokes every
// currently registered subscriber exactly once.
func (s *NotificationService) NotifyChanged() {
	s.mu.Lock()
	s.message = fmt.Sprintf("Changed at %s", time.Now().Format(time.RFC3339))

	// Snapshot so subscribers can unsubscribe from within the callback.
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.log.Debug("notifying subscribers",
		zap.Stringer("id", s.id),
		zap.Int("subscribers", len(fns)),
	)

	for _, fn := range fns {
		fn()
	}
}
