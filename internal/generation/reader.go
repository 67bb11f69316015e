package generation

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
)

// StreamReader consumes a generation stream byte-by-byte and yields
// decoded events. It is single-pass and tied to one request: frames are
// reassembled across arbitrary chunk boundaries, lines without the
// frame marker are ignored, and malformed frames are logged and skipped
// rather than aborting the stream. Consumption ends at the sentinel
// frame or when the transport closes.
type StreamReader struct {
	r         io.Reader
	buf       bytes.Buffer
	chunk     []byte
	sentinel  bool
	eof       bool
	parseErrs int
}

// NewStreamReader wraps the transport side of one generation stream
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		r:     r,
		chunk: make([]byte, 512),
	}
}

// Next returns the next decoded event. io.EOF means consumption is
// over; call Clean to distinguish the sentinel from a dropped
// connection.
func (sr *StreamReader) Next() (Event, error) {
	if sr.sentinel {
		return Event{}, io.EOF
	}
	for {
		line, ok := sr.nextLine()
		if !ok {
			if sr.fill() {
				continue
			}
			return Event{}, io.EOF
		}

		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, FrameMarker) {
			continue
		}

		data := strings.TrimSpace(line[len(FrameMarker):])
		if data == DoneMarker {
			sr.sentinel = true
			return Event{}, io.EOF
		}

		ev, err := DecodeEvent([]byte(data))
		if err != nil {
			// A single bad frame must not kill the stream
			sr.parseErrs++
			log.Printf(`{"level":"warn","message":"Skipping malformed frame","error":"%v"}`, err)
			continue
		}
		return ev, nil
	}
}

// nextLine pops one complete line from the buffer
func (sr *StreamReader) nextLine() (string, bool) {
	raw := sr.buf.Bytes()
	idx := bytes.IndexByte(raw, '\n')
	if idx == -1 {
		return "", false
	}
	line := string(raw[:idx])
	sr.buf.Next(idx + 1)
	return line, true
}

// fill reads more bytes from the transport, reporting whether progress
// was made. Readers may legally return (0, nil), so it loops until
// bytes arrive or an error ends the stream. A trailing partial line at
// connection close is discarded.
func (sr *StreamReader) fill() bool {
	if sr.eof || sr.sentinel {
		return false
	}
	for {
		n, err := sr.r.Read(sr.chunk)
		if n > 0 {
			sr.buf.Write(sr.chunk[:n])
		}
		if err != nil {
			sr.eof = true
			if !errors.Is(err, io.EOF) {
				log.Printf(`{"level":"warn","message":"Stream read failed","error":"%v"}`, err)
			}
			return n > 0
		}
		if n > 0 {
			return true
		}
	}
}

// Clean reports whether the stream ended with the sentinel frame. False
// after EOF means the producer went away without saying done.
func (sr *StreamReader) Clean() bool {
	return sr.sentinel
}

// ParseErrors counts malformed frames skipped so far
func (sr *StreamReader) ParseErrors() int {
	return sr.parseErrs
}
