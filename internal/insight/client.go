package insight

import (
	"context"
	"strings"
	"time"

	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
)

// Completer is the transport the client drives; satisfied by ai.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GenerationUnavailableError indicates the generation service could not
// be reached or did not answer in time. Callers degrade gracefully:
// digest and charts remain deliverable.
type GenerationUnavailableError struct {
	Err error
}

func (e *GenerationUnavailableError) Error() string {
	return "generation service unavailable"
}

func (e *GenerationUnavailableError) Unwrap() error { return e.Err }

// Client enforces the structured-output contract on the generation
// service for both insight and answer modes.
type Client struct {
	completer Completer
	timeout   time.Duration
}

// NewClient wraps a transport with a per-call timeout.
func NewClient(c Completer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{completer: c, timeout: timeout}
}

// GenerateInsights renders the digest prompt, invokes the service, and
// validates the response against the Result schema.
//
// Errors: *GenerationUnavailableError on transport/timeout failure,
// *MalformedInsightError when output cannot be parsed after repair.
func (c *Client) GenerateInsights(ctx context.Context, d *digest.Digest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.completer.Complete(ctx, SystemInstruction, BuildInsightPrompt(d))
	if err != nil {
		return nil, &GenerationUnavailableError{Err: err}
	}
	return ParseResult(raw)
}

// Answer returns the answer to a follow-up question grounded in the
// supplied context block. An "insufficient data" style answer is
// returned verbatim; it is not an error.
func (c *Client) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.completer.Complete(ctx, AnswerSystemInstruction, BuildAnswerPrompt(question, contextBlock))
	if err != nil {
		return "", &GenerationUnavailableError{Err: err}
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", &GenerationUnavailableError{Err: nil}
	}
	return answer, nil
}
