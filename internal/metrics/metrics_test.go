package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	t.Run("Transition", func(t *testing.T) {
		c.Transition(models.StatusPending, models.StatusPlaying)
		c.Transition(models.StatusPending, models.StatusPlaying)
		assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("pending", "playing")))
	})

	t.Run("Reorder", func(t *testing.T) {
		c.Reorder(models.DirectionUp, true)
		c.Reorder(models.DirectionUp, false)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.reorders.WithLabelValues("up", "moved")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.reorders.WithLabelValues("up", "noop")))
	})

	t.Run("Rejected", func(t *testing.T) {
		c.Rejected("set_status", fmt.Errorf("wrapped: %w", shared.ErrInvalidTransition))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.rejections.WithLabelValues("set_status", "invalid_transition")))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		c.StoreFailure("refresh")
		assert.Equal(t, 1.0, testutil.ToFloat64(c.storeFailures.WithLabelValues("refresh")))
	})

	t.Run("Synced", func(t *testing.T) {
		at := time.Unix(1717272000, 0)
		c.Synced(map[models.Status]int{models.StatusPending: 4, models.StatusPlaying: 1}, at)
		assert.Equal(t, 4.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("pending")))
		assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(c.lastSync))
	})

	t.Run("Duplicate Registration", func(t *testing.T) {
		_, err := NewCollector(reg)
		assert.Error(t, err)
	})
}

func TestReason(t *testing.T) {
	tt := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{shared.ErrRecordBusy, "busy"},
		{fmt.Errorf("%w: %w: x", shared.ErrInvalidOperation, shared.ErrNotFound), "not_found"},
		{shared.ErrInvalidOperation, "invalid_operation"},
		{shared.ErrInvalidInput, "invalid_input"},
		{errors.New("boom"), "other"},
	}

	for _, tc := range tt {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, Reason(tc.err))
		})
	}
}
