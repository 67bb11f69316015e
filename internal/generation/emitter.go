package generation

import (
	"context"
	"fmt"
)

// EventSink receives emitted events one at a time, in order. A sink
// error means the consumer is gone and emission stops.
type EventSink func(Event) error

// Emitter turns a validated payload into the ordered event sequence of
// the wire protocol, paced to simulate incremental construction.
type Emitter struct {
	pacer Pacer
}

// NewEmitter creates an emitter with the given pacing strategy
func NewEmitter(pacer Pacer) *Emitter {
	if pacer == nil {
		pacer = NopPacer
	}
	return &Emitter{pacer: pacer}
}

// Emit produces, per file in payload order: thinking, file_start, file,
// file_complete; then exactly one terminal complete event. Every emitted
// frame is a complete, self-contained JSON envelope.
func (e *Emitter) Emit(ctx context.Context, payload *Payload, sink EventSink) error {
	for _, file := range payload.Files {
		events := []Event{
			{Type: EventThinking, Message: fmt.Sprintf("Creating %s...", file.Name)},
			{Type: EventFileStart, FileName: file.Name},
			{Type: EventFile, Data: &GeneratedFile{Name: file.Name, Content: file.Content}},
			{Type: EventFileComplete, FileName: file.Name},
		}
		for _, ev := range events {
			if err := sink(ev); err != nil {
				return err
			}
			e.pacer.Pause(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	message := payload.Message
	if message == "" {
		message = "Website generated successfully!"
	}
	return sink(Event{Type: EventComplete, Message: message})
}

// EmitFailure is the error path: a single terminal error event instead
// of the file sequence.
func (e *Emitter) EmitFailure(sink EventSink, message string) error {
	return sink(Event{Type: EventError, Message: message})
}
