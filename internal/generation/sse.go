package generation

import (
	"io"
	"log"
	"net/http"
)

// StreamWriter writes framed events to an HTTP chunked response. The
// server is the sole writer; the channel is closed by writing the
// sentinel frame after the terminal event. Writes after the consumer
// disconnects are no-ops, not faults.
type StreamWriter struct {
	w       io.Writer
	flusher http.Flusher
	gone    bool
}

// NewStreamWriter wraps a response writer. SSE headers are the caller's
// responsibility; flushing per frame happens here when supported.
func NewStreamWriter(w io.Writer) *StreamWriter {
	sw := &StreamWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteEvent frames and writes one event, flushing it to the client
func (sw *StreamWriter) WriteEvent(ev Event) error {
	if sw.gone {
		return nil
	}

	frame, err := EncodeFrame(ev)
	if err != nil {
		return err
	}

	if _, err := sw.w.Write(frame); err != nil {
		sw.gone = true
		log.Printf(`{"level":"info","message":"Stream consumer disconnected","error":"%v"}`, err)
		return nil
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// WriteDone writes the end-of-stream sentinel frame
func (sw *StreamWriter) WriteDone() {
	if sw.gone {
		return
	}
	if _, err := sw.w.Write([]byte(FrameMarker + DoneMarker + "\n\n")); err != nil {
		sw.gone = true
		return
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// Disconnected reports whether the consumer went away mid-stream
func (sw *StreamWriter) Disconnected() bool {
	return sw.gone
}
