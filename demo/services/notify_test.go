package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tkrause/scopekit/demo/services"
)

func Test_NotificationService(t *testing.T) {
	t.Run("message empty before first notify", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())
		assert.Empty(t, svc.Message())
	})

	t.Run("notify sets the message", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		svc.NotifyChanged()
		assert.Contains(t, svc.Message(), "Changed at ")
	})

	t.Run("subscribers are invoked exactly once per notify", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		calls := 0
		svc.Subscribe(func() { calls++ })

		svc.NotifyChanged()
		assert.Equal(t, 1, calls)

		svc.NotifyChanged()
		assert.Equal(t, 2, calls)
	})

	t.Run("multiple subscribers", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		var calls1, calls2 int
		svc.Subscribe(func() { calls1++ })
		svc.Subscribe(func() { calls2++ })

		svc.NotifyChanged()
		assert.Equal(t, 1, calls1)
		assert.Equal(t, 1, calls2)
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		calls := 0
		unsubscribe := svc.Subscribe(func() { calls++ })

		svc.NotifyChanged()
		unsubscribe()
		svc.NotifyChanged()

		assert.Equal(t, 1, calls)
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		calls := 0
		unsubscribe := svc.Subscribe(func() { calls++ })
		keep := 0
		svc.Subscribe(func() { keep++ })

		unsubscribe()
		unsubscribe()
		svc.NotifyChanged()

		assert.Equal(t, 0, calls)
		assert.Equal(t, 1, keep)
	})

	t.Run("subscriber can unsubscribe itself", func(t *testing.T) {
		svc := services.NewNotificationService(zap.NewNop())

		calls := 0
		var unsubscribe func()
		unsubscribe = svc.Subscribe(func() {
			calls++
			unsubscribe()
		})

		svc.NotifyChanged()
		svc.NotifyChanged()

		assert.Equal(t, 1, calls)
	})
}
