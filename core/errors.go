// Package core holds the shared error taxonomy and the retry policy applied
// around every external gateway call (embedding, vector store, generation).
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core taxonomy. Callers classify failures with
// errors.Is and wrap with fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks bad input (empty or oversized text, non-positive
	// top_k). Rejected before any gateway call.
	ErrValidation = errors.New("validation error")

	// ErrProvider marks an unreachable or timed-out external provider
	// (embedding or generation gateway) after local retries.
	ErrProvider = errors.New("provider error")

	// ErrRetrievalUnavailable is reported when the query embedding itself
	// cannot be produced, so no retrieval is possible at all.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrIngestionFailed is reported when every chunk of an ingestion call
	// failed to embed, so nothing could be persisted.
	ErrIngestionFailed = errors.New("ingestion failed")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
