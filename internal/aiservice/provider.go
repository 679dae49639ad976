// Package aiservice talks to the LLM providers that write meal suggestions
// and read ingredients off fridge photos.
package aiservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// --- Provider Configuration ---
const (
	defaultMaxRetries  = 3
	initialBackoff     = 1 * time.Second
	requestTimeout     = 30 * time.Second
	structuredMimeType = "application/json"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("server is not configured for AI recommendations")

// Call is a single completion request.
type Call struct {
	System      string
	Prompt      string
	Image       []byte // JPEG; enables the vision path
	MaxTokens   int
	Temperature float32

	// Structured asks the provider to constrain output to a SuggestionSet.
	Structured bool
}

// Provider is an LLM backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, call Call) (string, error)
}

// retryStatus marks provider errors worth retrying.
type retryStatus interface {
	Retryable() bool
}

// withRetry runs fn with exponential backoff, at most maxRetries times.
func withRetry(ctx context.Context, log *zerolog.Logger, provider string, maxRetries int, fn func(ctx context.Context) (string, error)) (string, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		log.Debug().Str("provider", provider).Msgf("Attempt %d: calling provider", i+1)
		out, err := fn(reqCtx)
		cancel()
		if err == nil {
			return out, nil
		}

		lastErr = err
		log.Warn().Err(err).Str("provider", provider).Msgf("Attempt %d failed", i+1)

		var rs retryStatus
		if errors.As(err, &rs) && !rs.Retryable() {
			break
		}
		if i == maxRetries-1 {
			break
		}

		backoff := initialBackoff * time.Duration(math.Pow(2, float64(i)))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("failed to call %s after retries: %w", provider, lastErr)
}

// permanentError wraps an error that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() error   { return e.err }
func (e permanentError) Retryable() bool { return false }
