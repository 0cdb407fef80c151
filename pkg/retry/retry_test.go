package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Fatalf("Delay %v outside jitter bounds", delay)
		}
		delays[delay] = true
	}

	if len(delays) < 2 {
		t.Error("Expected multiple different delays with jitter, but got consistent delays")
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset", 0)
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
	}

	if err := Do(context.Background(), cfg, op); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	cause := errs.New(errs.ErrorTypeServerError, "bad gateway", 502)
	op := func(ctx context.Context) error {
		attempts++
		return cause
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 5 * time.Millisecond},
	}

	err := Do(context.Background(), cfg, op)
	if err == nil {
		t.Fatal("Expected error when max attempts exceeded")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if !errs.IsNetworkClass(err) {
		t.Errorf("Expected network class error after exhaustion, got %v", err)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	authError := errs.New(errs.ErrorTypeAuth, "invalid_grant", 401)

	op := func(ctx context.Context) error {
		attempts++
		return authError
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}

	err := Do(context.Background(), cfg, op)
	if err != authError {
		t.Errorf("Expected auth error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry for auth error), got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 50 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	err := Do(ctx, cfg, op)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context cancellation, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.New(errs.ErrorTypeNetwork, "x", 0), true},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, "x", 429), true},
		{"server", errs.New(errs.ErrorTypeServerError, "x", 503), true},
		{"auth", errs.New(errs.ErrorTypeAuth, "x", 401), false},
		{"not found", errs.New(errs.ErrorTypeNotFound, "x", 404), false},
		{"parsing", errs.New(errs.ErrorTypeParsing, "x", 0), false},
		{"cancelled", context.Canceled, false},
		{"untyped", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorTypeBackoff(t *testing.T) {
	etb := NewErrorTypeBackoff()

	rateLimit, ok := etb.GetBackoffForError(errs.ErrorTypeRateLimit).(*ExponentialBackoff)
	if !ok {
		t.Fatal("Expected ExponentialBackoff for rate limit errors")
	}
	if rateLimit.BaseDelay != 10*time.Second {
		t.Errorf("Expected rate limit base delay of 10s, got %v", rateLimit.BaseDelay)
	}

	if etb.GetBackoffForError(errs.ErrorTypeParsing) != etb.DefaultBackoff {
		t.Error("Expected default backoff for other error types")
	}
}

func TestOnRetryUsesTypedBackoff(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		ByType: &ErrorTypeBackoff{
			NetworkErrorBackoff: &ConstantBackoff{Delay: time.Millisecond},
			RateLimitBackoff:    &ConstantBackoff{Delay: 2 * time.Millisecond},
			ServerErrorBackoff:  &ConstantBackoff{Delay: 3 * time.Millisecond},
			DefaultBackoff:      &ConstantBackoff{Delay: time.Hour},
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
		Logger: logger.NewNopLogger(),
	}

	calls := 0
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errs.New(errs.ErrorTypeRateLimit, "slow down", 429)
		}
		return errs.New(errs.ErrorTypeServerError, "oops", 500)
	})

	if len(delays) != 2 || delays[0] != 2*time.Millisecond || delays[1] != 3*time.Millisecond {
		t.Errorf("Unexpected delays %v", delays)
	}
}

func TestFromConfig(t *testing.T) {
	rc := config.RetryConfig{
		Enabled:        true,
		MaxAttempts:    4,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     3,
	}

	cfg := FromConfig(rc, logger.NewNopLogger())
	if cfg.MaxAttempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	if !ok || eb.BaseDelay != 2*time.Second || eb.MaxDelay != 8*time.Second || eb.Multiplier != 3 {
		t.Errorf("Unexpected backoff %+v", cfg.Backoff)
	}

	rc.Enabled = false
	if got := FromConfig(rc, nil).MaxAttempts; got != 1 {
		t.Errorf("Expected disabled retry to make one attempt, got %d", got)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
	}

	result, err := DoWithResult(context.Background(), cfg, op)
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}
