package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"translate-relay/internal/observability/metrics"
)

// promauto registers on the default registry, so share one Metrics instance
// across this file's tests rather than constructing one per test.
var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func newTestMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics()
	})
	return testMetrics
}

func TestWithMetrics_RecordsReasonFromError(t *testing.T) {
	m := newTestMetrics()
	boom := errors.New("boom")
	var reasonErr error

	h := WithMetrics(m, func(err error) string {
		reasonErr = err
		return "boom_reason"
	}, func(context.Context, string, []byte) error {
		return boom
	})

	if err := h(context.Background(), "some/topic", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped handler's error to pass through, got %v", err)
	}
	if !errors.Is(reasonErr, boom) {
		t.Fatalf("expected reasonFor to be called with the handler's error, got %v", reasonErr)
	}
}

func TestWithMetrics_NoRecordOnSuccess(t *testing.T) {
	m := newTestMetrics()
	called := false

	h := WithMetrics(m, func(error) string {
		called = true
		return "unused"
	}, func(context.Context, string, []byte) error {
		return nil
	})

	if err := h(context.Background(), "some/topic", nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if called {
		t.Fatal("reasonFor should not be called when the handler succeeds")
	}
}

func TestWithMetrics_NilMetricsDoesNotPanic(t *testing.T) {
	h := WithMetrics(nil, func(error) string { return "reason" }, func(context.Context, string, []byte) error {
		return errors.New("fail")
	})

	if err := h(context.Background(), "t", nil); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestWithLogging_PolicyNotConsultedOnSuccess(t *testing.T) {
	consulted := false
	policy := func(error) (zerolog.Level, bool) {
		consulted = true
		return zerolog.ErrorLevel, true
	}

	h := WithLogging(policy, func(context.Context, string, []byte) error { return nil })

	if err := h(context.Background(), "t", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consulted {
		t.Fatal("policy should not be consulted when the handler succeeds")
	}
}

func TestWithLogging_ErrorPropagatesRegardlessOfPolicy(t *testing.T) {
	boom := errors.New("boom")

	for _, ok := range []bool{true, false} {
		h := WithLogging(func(error) (zerolog.Level, bool) { return zerolog.DebugLevel, ok },
			func(context.Context, string, []byte) error { return boom })

		if err := h(context.Background(), "t", nil); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped error to propagate regardless of policy ok=%v, got %v", ok, err)
		}
	}
}

func TestChain_OrdersOutermostFirst(t *testing.T) {
	var order []string

	track := func(name string) func(Handler) Handler {
		return func(next Handler) Handler {
			return func(ctx context.Context, topic string, payload []byte) error {
				order = append(order, name+":before")
				err := next(ctx, topic, payload)
				order = append(order, name+":after")
				return err
			}
		}
	}

	base := func(context.Context, string, []byte) error { return nil }
	chained := Chain(track("outer"), track("inner"))(base)

	if err := chained(context.Background(), "t", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
