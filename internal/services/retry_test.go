package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &httpStatusError{429}, true},
		{"http 503", &httpStatusError{503}, true},
		{"http 404", &httpStatusError{404}, false},
		{"googleapi 500", &googleapi.Error{Code: 500}, true},
		{"googleapi 400", &googleapi.Error{Code: 400}, false},
		{"quota exhausted", classifyAPIError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}), false},
		{"regular error", errors.New("something"), false},
		{"timeout", &net.DNSError{IsTimeout: true}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, ErrQuotaExhausted},
		{"daily limit", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}}, ErrQuotaExhausted},
		{"bad key", &googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "keyInvalid"}}}, ErrUnauthorized},
		{"forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, ErrForbidden},
		{"401", &googleapi.Error{Code: 401}, ErrUnauthorized},
		{"comments off", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "commentsDisabled"}}}, ErrCommentsDisabled},
		{"404", &googleapi.Error{Code: 404}, ErrVideoNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyAPIError() = %v, want %v", got, tt.want)
			}
		})
	}

	plain := errors.New("boom")
	if got := classifyAPIError(plain); got != plain {
		t.Errorf("unrecognised error should pass through, got %v", got)
	}
}

func TestIsFatal(t *testing.T) {
	quota := classifyAPIError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}})
	if !IsFatal(quota) {
		t.Error("quota error should be fatal")
	}
	if !IsFatal(fmt.Errorf("comments: %w", ErrMissingCredential)) {
		t.Error("missing credential should be fatal")
	}
	if IsFatal(ErrVideoNotFound) {
		t.Error("not found should not be fatal")
	}
	forbidden := classifyAPIError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}})
	if IsFatal(forbidden) {
		t.Error("per-video forbidden should not be fatal")
	}
	var gerr *googleapi.Error
	if !errors.As(quota, &gerr) {
		t.Error("classified error should still unwrap to googleapi.Error")
	}
}

func TestRetryDoSuccess(t *testing.T) {
	rc := RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}
	calls := 0
	got, err := RetryDo(context.Background(), rc, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoRetryThenSuccess(t *testing.T) {
	rc := RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}
	calls := 0
	got, err := RetryDo(context.Background(), rc, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &googleapi.Error{Code: 503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoFatalNotRetried(t *testing.T) {
	rc := RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}
	calls := 0
	_, err := RetryDo(context.Background(), rc, func() (int, error) {
		calls++
		return 0, fmtQuota()
	})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoExhausted(t *testing.T) {
	rc := RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Multiplier: 2}
	calls := 0
	_, err := RetryDo(context.Background(), rc, func() (string, error) {
		calls++
		return "", &httpStatusError{502}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoContextCancelled(t *testing.T) {
	rc := RetryConfig{MaxRetries: 5, InitialWait: time.Second, MaxWait: time.Second, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryDo(ctx, rc, func() (string, error) {
		calls++
		cancel()
		return "", &httpStatusError{503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func fmtQuota() error {
	return classifyAPIError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}})
}

func fmtForbidden() error {
	return classifyAPIError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}})
}
