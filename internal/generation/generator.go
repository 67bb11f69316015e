package generation

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Generator runs the full server-side pipeline for one prompt: complete,
// extract, emit. Every failure becomes a single structured error event
// on the sink, never a raw transport fault.
type Generator struct {
	client  Completer
	emitter *Emitter
	tracer  trace.Tracer
}

// NewGenerator wires a completion client to an emitter
func NewGenerator(client Completer, emitter *Emitter) *Generator {
	return &Generator{
		client:  client,
		emitter: emitter,
		tracer:  otel.Tracer("generator"),
	}
}

// Run drives one generation. The returned payload is non-nil only on
// success, for callers that persist the result afterwards.
func (g *Generator) Run(ctx context.Context, prompt string, sink EventSink) (*Payload, error) {
	ctx, span := g.tracer.Start(ctx, "generation.run")
	defer span.End()

	if err := sink(Event{Type: EventStatus, Message: "Analyzing your request..."}); err != nil {
		return nil, err
	}

	raw, err := g.client.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, g.fail(sink, err)
	}

	if err := sink(Event{Type: EventStatus, Message: "Generating React components..."}); err != nil {
		return nil, err
	}

	payload, err := ExtractPayload(raw)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"error","message":"Model output rejected","error":"%v"}`, err)
		return nil, g.fail(sink, err)
	}

	span.SetAttributes(attribute.Int("generation.files", len(payload.Files)))

	if err := g.emitter.Emit(ctx, payload, sink); err != nil {
		return nil, err
	}
	return payload, nil
}

// RunOnce is the non-streaming path: complete and extract, no events.
// Callers translate the error taxonomy to their own surface.
func (g *Generator) RunOnce(ctx context.Context, prompt string) (*Payload, error) {
	ctx, span := g.tracer.Start(ctx, "generation.run_once")
	defer span.End()

	raw, err := g.client.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	payload, err := ExtractPayload(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("generation.files", len(payload.Files)))
	return payload, nil
}

// fail maps a pipeline error to its user-facing message and emits the
// terminal error event. The original error is returned for logging and
// metrics attribution.
func (g *Generator) fail(sink EventSink, err error) error {
	message := "Unknown error occurred"

	var upstream *UpstreamError
	var format *FormatError
	switch {
	case errors.As(err, &upstream):
		message = upstream.UserMessage()
	case errors.As(err, &format):
		message = format.UserMessage()
	}

	if sinkErr := g.emitter.EmitFailure(sink, message); sinkErr != nil {
		return sinkErr
	}
	return err
}
