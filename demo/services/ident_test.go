package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tkrause/scopekit/demo/services"
)

func Test_TransientStamp(t *testing.T) {
	t.Run("identifier is stable", func(t *testing.T) {
		stamp := services.NewTransientStamp(zap.NewNop())

		assert.Equal(t, stamp.ID(), stamp.ID())
		assert.NotEqual(t, [16]byte{}, [16]byte(stamp.ID()))
	})

	t.Run("each stamp gets a fresh identifier", func(t *testing.T) {
		log := zap.NewNop()
		s1 := services.NewTransientStamp(log)
		s2 := services.NewTransientStamp(log)

		assert.NotEqual(t, s1.ID(), s2.ID())
	})

	t.Run("logs creation and disposal", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		log := zap.New(core)

		stamp := services.NewTransientStamp(log)

		err := stamp.Close(context.Background())
		require.NoError(t, err)

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.Equal(t, "service created", entries[0].Message)
		assert.Equal(t, "service disposed", entries[1].Message)

		created := entries[0].ContextMap()
		assert.Equal(t, "transient-stamp", created["service"])
		assert.Equal(t, stamp.ID().String(), created["id"])
	})
}
