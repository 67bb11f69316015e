package generation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter returns a canned completion or error
type fakeCompleter struct {
	raw string
	err error
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.raw, f.err
}

func TestGenerator_Run(t *testing.T) {
	raw := "Here you go:\n```json\n" +
		`{"message":"Portfolio ready","files":[` +
		`{"name":"App.tsx","content":"export default function App() {}"},` +
		`{"name":"styles.css","content":"body { margin: 0 }"}]}` +
		"\n```"

	gen := NewGenerator(&fakeCompleter{raw: raw}, NewEmitter(NopPacer))

	var events []Event
	payload, err := gen.Run(context.Background(), "build me a portfolio", collectSink(&events))
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Len(t, payload.Files, 2)

	// Two status events precede the file sequence
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, "Analyzing your request...", events[0].Message)
	assert.Equal(t, EventStatus, events[1].Type)

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, "Portfolio ready", last.Message)
}

func TestGenerator_UpstreamFailureBecomesErrorEvent(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name:        "rate limited",
			err:         &UpstreamError{Code: UpstreamRateLimited, Status: http.StatusTooManyRequests},
			wantMessage: "Rate limit exceeded. Please try again in a moment.",
		},
		{
			name:        "quota exhausted",
			err:         &UpstreamError{Code: UpstreamQuotaExhausted, Status: http.StatusPaymentRequired},
			wantMessage: "Credits exhausted. Please add more credits.",
		},
		{
			name:        "gateway error",
			err:         &UpstreamError{Code: UpstreamGateway, Status: http.StatusBadGateway},
			wantMessage: "AI Gateway error",
		},
		{
			name:        "unclassified error",
			err:         errors.New("socket closed"),
			wantMessage: "Unknown error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(&fakeCompleter{err: tt.err}, NewEmitter(NopPacer))

			var events []Event
			payload, err := gen.Run(context.Background(), "prompt", collectSink(&events))
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, tt.err)

			// One status, then exactly one terminal error event
			require.Len(t, events, 2)
			assert.Equal(t, EventStatus, events[0].Type)
			assert.Equal(t, EventError, events[1].Type)
			assert.Equal(t, tt.wantMessage, events[1].Message)
		})
	}
}

func TestGenerator_ForbiddenOutputFailsBeforeFileEvents(t *testing.T) {
	raw := `{"message":"Done","files":[{"name":"index.html","content":"<!DOCTYPE html>"}]}`
	gen := NewGenerator(&fakeCompleter{raw: raw}, NewEmitter(NopPacer))

	var events []Event
	payload, err := gen.Run(context.Background(), "prompt", collectSink(&events))
	assert.Nil(t, payload)

	var format *FormatError
	require.ErrorAs(t, err, &format)

	// No file event of any kind made it out
	for _, ev := range events {
		assert.NotEqual(t, EventFileStart, ev.Type)
		assert.NotEqual(t, EventFile, ev.Type)
		assert.NotEqual(t, EventFileComplete, ev.Type)
	}
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "Please try again - system generated wrong format", last.Message)
}

func TestGenerator_RunOnce(t *testing.T) {
	t.Run("returns payload without events", func(t *testing.T) {
		raw := `{"message":"Done","files":[{"name":"App.tsx","content":"x"}]}`
		gen := NewGenerator(&fakeCompleter{raw: raw}, NewEmitter(NopPacer))

		payload, err := gen.RunOnce(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Len(t, payload.Files, 1)
	})

	t.Run("propagates upstream error untouched", func(t *testing.T) {
		upstream := &UpstreamError{Code: UpstreamRateLimited, Status: 429}
		gen := NewGenerator(&fakeCompleter{err: upstream}, NewEmitter(NopPacer))

		_, err := gen.RunOnce(context.Background(), "prompt")
		var got *UpstreamError
		require.ErrorAs(t, err, &got)
		assert.Equal(t, UpstreamRateLimited, got.Code)
	})
}

// The full round trip: model output in, session state out, with the
// wire bytes actually produced and re-parsed in between.
func TestPipeline_RoundTrip(t *testing.T) {
	raw := `{"message":"Site ready","files":[` +
		`{"name":"App.tsx","content":"export default function App() {}"},` +
		`{"name":"Header.tsx","content":"export function Header() {}"},` +
		`{"name":"styles.css","content":"body { margin: 0 }"}]}`

	gen := NewGenerator(&fakeCompleter{raw: raw}, NewEmitter(NopPacer))

	var wire bytes.Buffer
	writer := NewStreamWriter(&wire)
	_, err := gen.Run(context.Background(), "build a site", writer.WriteEvent)
	require.NoError(t, err)
	writer.WriteDone()

	session := NewSession()
	session.Begin()
	reader := NewStreamReader(&wire)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		session.Apply(ev)
	}

	assert.True(t, reader.Clean())
	assert.Equal(t, StateCompleted, session.State())

	files := session.Files()
	require.Len(t, files, 3)
	assert.Equal(t, "App.tsx", files[0].Name)
	assert.Equal(t, "Header.tsx", files[1].Name)
	assert.Equal(t, "styles.css", files[2].Name)
	for _, f := range files {
		assert.Equal(t, FileComplete, f.Status)
		assert.NotEmpty(t, f.Content)
	}
}

// Failure round trip: a 429 upstream becomes one error event, the
// stream still ends with the sentinel, and the session lands in failed.
func TestPipeline_RateLimitedRoundTrip(t *testing.T) {
	gen := NewGenerator(
		&fakeCompleter{err: &UpstreamError{Code: UpstreamRateLimited, Status: 429}},
		NewEmitter(NopPacer),
	)

	var wire bytes.Buffer
	writer := NewStreamWriter(&wire)
	_, runErr := gen.Run(context.Background(), "prompt", writer.WriteEvent)
	require.Error(t, runErr)
	writer.WriteDone()

	session := NewSession()
	session.Begin()
	reader := NewStreamReader(&wire)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		session.Apply(ev)
	}

	assert.True(t, reader.Clean())
	assert.Equal(t, StateFailed, session.State())
	assert.Equal(t, "Rate limit exceeded. Please try again in a moment.", session.FailureMessage())
	assert.False(t, session.BuildError())
	assert.Empty(t, session.Files())
}

// Abnormal close: transport dies mid-stream without the sentinel. The
// session keeps the partial files and stays in streaming.
func TestPipeline_AbnormalClose(t *testing.T) {
	raw := `{"message":"Done","files":[{"name":"App.tsx","content":"x"},{"name":"B.tsx","content":"y"}]}`
	gen := NewGenerator(&fakeCompleter{raw: raw}, NewEmitter(NopPacer))

	var wire bytes.Buffer
	writer := NewStreamWriter(&wire)
	_, err := gen.Run(context.Background(), "prompt", writer.WriteEvent)
	require.NoError(t, err)
	// No WriteDone: simulate the producer dropping off

	// Truncate mid-frame as a dropped connection would
	truncated := wire.Bytes()[:wire.Len()-25]

	session := NewSession()
	session.Begin()
	reader := NewStreamReader(bytes.NewReader(truncated))
	for {
		ev, readErr := reader.Next()
		if readErr == io.EOF {
			break
		}
		require.NoError(t, readErr)
		session.Apply(ev)
	}

	assert.False(t, reader.Clean())
	assert.Equal(t, StateStreaming, session.State())
	assert.False(t, session.Terminal())
	assert.NotEmpty(t, session.Files())
}
