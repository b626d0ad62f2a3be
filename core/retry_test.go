package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antigravity/decision-support/core"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	policy := core.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	policy := core.RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond}

	sentinel := errors.New("permanent")
	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected the last error back, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestRetry_CancelledContextWins(t *testing.T) {
	policy := core.RetryPolicy{Attempts: 5, BaseDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestValidationf_WrapsSentinel(t *testing.T) {
	err := core.Validationf("field %s is required", "case_study_id")
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected errors.Is match on ErrValidation, got %v", err)
	}
	if err.Error() != "validation error: field case_study_id is required" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}
