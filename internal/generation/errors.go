package generation

import "fmt"

// UpstreamCode classifies a non-success response from the AI gateway
type UpstreamCode string

const (
	// UpstreamRateLimited maps HTTP 429: retryable by the user, never automatically
	UpstreamRateLimited UpstreamCode = "rate_limited"
	// UpstreamQuotaExhausted maps HTTP 402: non-retryable until billing is resolved
	UpstreamQuotaExhausted UpstreamCode = "quota_exhausted"
	// UpstreamGateway covers every other non-success status
	UpstreamGateway UpstreamCode = "gateway_error"
)

// UpstreamError is a failed completion request against the AI gateway
type UpstreamError struct {
	Code   UpstreamCode
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ai gateway returned status %d (%s)", e.Status, e.Code)
}

// Retryable reports whether re-submitting the same request may succeed
func (e *UpstreamError) Retryable() bool {
	return e.Code != UpstreamQuotaExhausted
}

// UserMessage is the client-facing text for this failure
func (e *UpstreamError) UserMessage() string {
	switch e.Code {
	case UpstreamRateLimited:
		return "Rate limit exceeded. Please try again in a moment."
	case UpstreamQuotaExhausted:
		return "Credits exhausted. Please add more credits."
	default:
		return "AI Gateway error"
	}
}

// FormatError means the model output could not be turned into a valid
// payload. It always fails the request before any file event is emitted.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid model output: %s", e.Reason)
}

// UserMessage is the client-facing text for this failure
func (e *FormatError) UserMessage() string {
	switch e.Reason {
	case reasonNoJSON:
		return "AI did not return valid JSON. Please try again."
	case reasonForbiddenKind:
		return "Please try again - system generated wrong format"
	case reasonEmpty:
		return "No response from AI"
	default:
		return "Invalid response format. Please try again."
	}
}

// FrameParseError is a single malformed wire frame. The reader logs and
// skips these; they never abort the stream.
type FrameParseError struct {
	Frame string
	Err   error
}

func (e *FrameParseError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Frame, e.Err)
}

func (e *FrameParseError) Unwrap() error { return e.Err }
