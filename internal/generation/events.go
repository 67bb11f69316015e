package generation

import (
	"encoding/json"
	"fmt"
)

// EventType identifies a wire event kind
type EventType string

const (
	EventStatus       EventType = "status"
	EventThinking     EventType = "thinking"
	EventFileStart    EventType = "file_start"
	EventFile         EventType = "file"
	EventFileComplete EventType = "file_complete"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Frame marker and end-of-stream sentinel for the SSE wire protocol.
// The sentinel is a protocol-level "producer is done" signal, distinct
// from the underlying connection closing.
const (
	FrameMarker = "data: "
	DoneMarker  = "[DONE]"
)

// GeneratedFile is one file produced by the model
type GeneratedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Payload is the validated {message, files} object extracted from a model completion
type Payload struct {
	Message string          `json:"message"`
	Files   []GeneratedFile `json:"files"`
}

// Event is one wire event of the generation stream. Exactly one field
// set per type: Message for status/thinking/complete/error, FileName for
// file_start/file_complete, Data for file.
type Event struct {
	Type     EventType      `json:"type"`
	Message  string         `json:"message,omitempty"`
	FileName string         `json:"fileName,omitempty"`
	Data     *GeneratedFile `json:"data,omitempty"`
}

// Terminal reports whether the event ends a well-formed stream
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// EncodeFrame serializes an event as a single wire frame: marker, JSON
// envelope, blank-line terminator.
func EncodeFrame(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	frame := make([]byte, 0, len(FrameMarker)+len(body)+2)
	frame = append(frame, FrameMarker...)
	frame = append(frame, body...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// DecodeEvent parses one frame payload (the JSON after the marker).
// Decoding fails closed: an unrecognized type or a missing required
// field is a FrameParseError, never a silently-ignored event.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, &FrameParseError{Frame: string(data), Err: err}
	}

	switch ev.Type {
	case EventStatus, EventThinking, EventComplete, EventError:
		// message-only events; empty message is tolerated
	case EventFileStart, EventFileComplete:
		if ev.FileName == "" {
			return Event{}, &FrameParseError{Frame: string(data), Err: fmt.Errorf("%s event missing fileName", ev.Type)}
		}
	case EventFile:
		if ev.Data == nil || ev.Data.Name == "" {
			return Event{}, &FrameParseError{Frame: string(data), Err: fmt.Errorf("file event missing data")}
		}
	default:
		return Event{}, &FrameParseError{Frame: string(data), Err: fmt.Errorf("unknown event type %q", ev.Type)}
	}

	return ev, nil
}
