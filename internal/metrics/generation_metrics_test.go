package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationMetrics_Creation(t *testing.T) {
	t.Run("successfully create generation metrics", func(t *testing.T) {
		m, err := NewGenerationMetrics()
		require.NoError(t, err)
		assert.NotNil(t, m)
		assert.NotNil(t, m.startedCounter)
		assert.NotNil(t, m.completedCounter)
		assert.NotNil(t, m.failedCounter)
		assert.NotNil(t, m.durationHistogram)
		assert.NotNil(t, m.filesCounter)
		assert.NotNil(t, m.activeGauge)
	})
}

func TestGenerationMetrics_RecordStarted(t *testing.T) {
	m, err := NewGenerationMetrics()
	require.NoError(t, err)

	t.Run("record stream start", func(t *testing.T) {
		ctx := context.Background()

		assert.NotPanics(t, func() {
			m.RecordStarted(ctx, "sse")
		})
	})

	t.Run("record all transports", func(t *testing.T) {
		ctx := context.Background()
		for _, transport := range []string{"sse", "json", "websocket"} {
			m.RecordStarted(ctx, transport)
		}
	})
}

func TestGenerationMetrics_RecordCompleted(t *testing.T) {
	m, err := NewGenerationMetrics()
	require.NoError(t, err)

	t.Run("record completion with file count and duration", func(t *testing.T) {
		ctx := context.Background()

		assert.NotPanics(t, func() {
			m.RecordCompleted(ctx, "sse", 4, 12*time.Second)
		})
	})

	t.Run("record completions with various durations", func(t *testing.T) {
		ctx := context.Background()
		durations := []time.Duration{
			500 * time.Millisecond,
			3 * time.Second,
			30 * time.Second,
			2 * time.Minute,
		}

		for i, duration := range durations {
			m.RecordCompleted(ctx, "sse", i+1, duration)
		}
	})
}

func TestGenerationMetrics_RecordFailed(t *testing.T) {
	m, err := NewGenerationMetrics()
	require.NoError(t, err)

	t.Run("record failure with error type", func(t *testing.T) {
		ctx := context.Background()

		assert.NotPanics(t, func() {
			m.RecordFailed(ctx, "sse", "rate_limited", 2*time.Second)
		})
	})

	t.Run("record failures with different error types", func(t *testing.T) {
		ctx := context.Background()
		errorTypes := []string{
			"rate_limited",
			"quota_exhausted",
			"gateway_error",
			"format_error",
			"internal",
		}

		for i, errorType := range errorTypes {
			m.RecordFailed(ctx, "sse", errorType, time.Duration(i+1)*time.Second)
		}
	})
}

func TestGenerationMetrics_ActiveStreams(t *testing.T) {
	m, err := NewGenerationMetrics()
	require.NoError(t, err)

	t.Run("active streams go up and down", func(t *testing.T) {
		ctx := context.Background()

		m.RecordStarted(ctx, "sse")
		m.RecordCompleted(ctx, "sse", 2, time.Second)
	})

	t.Run("active streams with failures", func(t *testing.T) {
		ctx := context.Background()

		m.RecordStarted(ctx, "websocket")
		m.RecordFailed(ctx, "websocket", "gateway_error", time.Second)
	})
}

func TestGenerationMetrics_ConcurrentRecording(t *testing.T) {
	m, err := NewGenerationMetrics()
	require.NoError(t, err)

	t.Run("handle concurrent metric recording", func(t *testing.T) {
		ctx := context.Background()
		done := make(chan bool)

		for i := 0; i < 10; i++ {
			go func(id int) {
				transport := fmt.Sprintf("transport-%d", id%3)

				m.RecordStarted(ctx, transport)

				duration := time.Duration(id) * 100 * time.Millisecond
				if id%2 == 0 {
					m.RecordCompleted(ctx, transport, id, duration)
				} else {
					m.RecordFailed(ctx, transport, "gateway_error", duration)
				}

				done <- true
			}(i)
		}

		for i := 0; i < 10; i++ {
			<-done
		}
	})
}
