// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

package githubsource

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 5 {
		t.Errorf("expected MaxRetries 5, got %d", config.MaxRetries)
	}
	if config.BaseDelay != 200*time.Millisecond {
		t.Errorf("expected BaseDelay 200ms, got %v", config.BaseDelay)
	}
	if config.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay 5s, got %v", config.MaxDelay)
	}
	if config.JitterPct != 0.5 {
		t.Errorf("expected JitterPct 0.5, got %v", config.JitterPct)
	}
}

func TestWithRetry_SuccessFirstAttempt(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	err := WithRetry(context.Background(), config, nil, func(ctx context.Context, attempt int) (bool, error) {
		attempts++
		return false, nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_SuccessAfterRetry(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	err := WithRetry(context.Background(), config, nil, func(ctx context.Context, attempt int) (bool, error) {
		attempts++
		if attempts < 3 {
			return true, errors.New("rate limited")
		}
		return false, nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_MaxRetriesExceeded(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	err := WithRetry(context.Background(), config, nil, func(ctx context.Context, attempt int) (bool, error) {
		attempts++
		return true, errors.New("still failing")
	})

	if err == nil {
		t.Error("expected error after max retries")
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", attempts)
	}
}

func TestWithRetry_NoRetryOnNonRetryableError(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	err := WithRetry(context.Background(), config, nil, func(ctx context.Context, attempt int) (bool, error) {
		attempts++
		return false, errors.New("not found")
	})

	if err == nil {
		t.Error("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	config := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, config, nil, func(ctx context.Context, attempt int) (bool, error) {
		attempts++
		return true, errors.New("rate limited")
	})

	if err == nil {
		t.Error("expected error from context cancellation")
	}
	if attempts >= 10 {
		t.Errorf("expected fewer attempts due to cancellation, got %d", attempts)
	}
}

func TestCalculateBackoff_Basic(t *testing.T) {
	config := RetryConfig{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		JitterPct: 0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{6, 5 * time.Second},
		{7, 5 * time.Second},
	}

	for _, tt := range tests {
		result := config.CalculateBackoff(tt.attempt)
		if result != tt.expected {
			t.Errorf("CalculateBackoff(attempt=%d) = %v, want %v", tt.attempt, result, tt.expected)
		}
	}
}

func TestCalculateBackoff_WithJitter(t *testing.T) {
	config := RetryConfig{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		JitterPct: 0.5,
	}

	baseExpected := 100 * time.Millisecond
	minExpected := time.Duration(float64(baseExpected) * 0.5)
	maxExpected := time.Duration(float64(baseExpected) * 1.5)

	for i := 0; i < 100; i++ {
		result := config.CalculateBackoff(0)
		if result < minExpected || result > maxExpected {
			t.Errorf("CalculateBackoff with jitter = %v, expected between %v and %v", result, minExpected, maxExpected)
		}
	}
}
