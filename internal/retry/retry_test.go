package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), 5, func(s string) bool { return s == "ok" },
		func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		wantCalls int
	}{
		{"zero_budget", 0, 1},
		{"two_retries", 2, 3},
		{"five_retries", 5, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			result, err := Do(context.Background(), tt.retries, func(s string) bool { return false },
				func(context.Context) (string, error) {
					calls++
					return "nope", nil
				})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			// Terminal result is returned, not swallowed.
			if result != "nope" {
				t.Errorf("result = %q, want nope", result)
			}
		})
	}
}

func TestDo_SuccessMidway(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), 5, func(n int) bool { return n == 3 },
		func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 3 || calls != 3 {
		t.Errorf("result = %d calls = %d, want 3 and 3", result, calls)
	}
}

func TestDo_ErrorIsTerminal(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), 5, func(int) bool { return false },
		func(context.Context) (int, error) {
			calls++
			return 0, sentinel
		})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1: errors must not be retried", calls)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, 10, func(int) bool { return false },
		func(context.Context) (int, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return 0, nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls > 3 {
		t.Errorf("calls = %d, loop did not honor cancellation", calls)
	}
}

func TestUntil_AttemptCountOnPersistentFailure(t *testing.T) {
	calls := 0
	ok := Until(context.Background(), 5, time.Millisecond, func(context.Context) bool {
		calls++
		return false
	})
	if ok {
		t.Fatal("expected failure")
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6 (1 initial + 5 retries)", calls)
	}
}

func TestUntil_EventualSuccess(t *testing.T) {
	calls := 0
	ok := Until(context.Background(), 5, time.Millisecond, func(context.Context) bool {
		calls++
		return calls == 2
	})
	if !ok {
		t.Fatal("expected success")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
