package llm

import (
	"errors"
	"testing"
	"time"
)

func TestErrorFromHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		status    int
		message   string
		wantType  any
		retryable bool
	}{
		{400, "bad request", &InvalidRequestError{}, false},
		{422, "unprocessable", &InvalidRequestError{}, false},
		{400, "context length exceeded", &ContextLengthError{}, false},
		{400, "too many tokens in prompt", &ContextLengthError{}, false},
		{400, "monthly quota reached", &QuotaExceededError{}, false},
		{400, "billing hard limit", &QuotaExceededError{}, false},
		{400, "model does not exist", &NotFoundError{}, false},
		{400, "invalid key provided", &AuthenticationError{}, false},
		{401, "", &AuthenticationError{}, false},
		{403, "", &AccessDeniedError{}, false},
		{404, "", &NotFoundError{}, false},
		{408, "", &RequestTimeoutError{}, true},
		{413, "", &ContextLengthError{}, false},
		{429, "", &RateLimitError{}, true},
		{500, "", &ServerError{}, true},
		{502, "", &ServerError{}, true},
		{503, "", &ServerError{}, true},
		{504, "", &ServerError{}, true},
		{418, "", &UnknownHTTPError{}, true},
	}
	for _, tc := range cases {
		err := ErrorFromHTTPStatus("openai", tc.status, tc.message, nil)
		var le Error
		if !errors.As(err, &le) {
			t.Fatalf("status %d: %T does not implement Error", tc.status, err)
		}
		if le.StatusCode() != tc.status {
			t.Fatalf("status %d: StatusCode %d", tc.status, le.StatusCode())
		}
		if le.Retryable() != tc.retryable {
			t.Fatalf("status %d %q: retryable %v want %v", tc.status, tc.message, le.Retryable(), tc.retryable)
		}
		ok := false
		switch tc.wantType.(type) {
		case *InvalidRequestError:
			var e *InvalidRequestError
			ok = errors.As(err, &e)
		case *AuthenticationError:
			var e *AuthenticationError
			ok = errors.As(err, &e)
		case *AccessDeniedError:
			var e *AccessDeniedError
			ok = errors.As(err, &e)
		case *NotFoundError:
			var e *NotFoundError
			ok = errors.As(err, &e)
		case *RequestTimeoutError:
			var e *RequestTimeoutError
			ok = errors.As(err, &e)
		case *ContextLengthError:
			var e *ContextLengthError
			ok = errors.As(err, &e)
		case *QuotaExceededError:
			var e *QuotaExceededError
			ok = errors.As(err, &e)
		case *RateLimitError:
			var e *RateLimitError
			ok = errors.As(err, &e)
		case *ServerError:
			var e *ServerError
			ok = errors.As(err, &e)
		case *UnknownHTTPError:
			var e *UnknownHTTPError
			ok = errors.As(err, &e)
		}
		if !ok {
			t.Fatalf("status %d %q: got %T want %T", tc.status, tc.message, err, tc.wantType)
		}
	}
}

func TestErrorFromHTTPStatus_CarriesRetryAfter(t *testing.T) {
	ra := 7 * time.Second
	err := ErrorFromHTTPStatus("openai", 429, "slow down", &ra)
	var le Error
	if !errors.As(err, &le) {
		t.Fatalf("%T does not implement Error", err)
	}
	if got := le.RetryAfter(); got == nil || *got != ra {
		t.Fatalf("RetryAfter: %v", got)
	}
	if le.Provider() != "openai" {
		t.Fatalf("Provider: %q", le.Provider())
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if d := ParseRetryAfter("30", now); d == nil || *d != 30*time.Second {
		t.Fatalf("seconds form: %v", d)
	}
	if d := ParseRetryAfter("Sun, 01 Mar 2026 12:00:10 GMT", now); d == nil || *d != 10*time.Second {
		t.Fatalf("http-date form: %v", d)
	}
	if d := ParseRetryAfter("Sun, 01 Mar 2026 11:00:00 GMT", now); d == nil || *d != 0 {
		t.Fatalf("past date clamps to zero: %v", d)
	}
	for _, v := range []string{"", "garbage", "-5"} {
		if d := ParseRetryAfter(v, now); d != nil {
			t.Fatalf("%q: got %v want nil", v, d)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrorFromHTTPStatus("p", 503, "", nil)) {
		t.Fatalf("503 should be retryable")
	}
	if IsRetryable(ErrorFromHTTPStatus("p", 401, "", nil)) {
		t.Fatalf("401 should not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Fatalf("untyped error should not be retryable")
	}
}

func TestNewRequestTimeoutError_NotRetryable(t *testing.T) {
	err := NewRequestTimeoutError("openai", "context deadline exceeded")
	var te *RequestTimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("got %T", err)
	}
	if te.Retryable() {
		t.Fatalf("deadline timeout must not be retryable")
	}
}
