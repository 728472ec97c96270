package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"RendaBot/internal/model"
)

func TestValue_ReturnsOnceReady(t *testing.T) {
	calls := 0
	v, err := Value(context.Background(), Target{What: "counter", Timeout: time.Second, Interval: time.Millisecond},
		func(context.Context) (int, bool, error) {
			calls++
			return calls, calls == 3, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
}

func TestValue_TimeoutCarriesDescriptor(t *testing.T) {
	_, err := Value(context.Background(), Target{What: "soma-table-row", Timeout: 5 * time.Millisecond, Interval: time.Millisecond},
		func(context.Context) (string, bool, error) { return "", false, nil })
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.What != "soma-table-row" {
		t.Errorf("expected descriptor soma-table-row, got %q", nf.What)
	}
	if !errors.Is(err, model.ErrElementNotFound) {
		t.Error("expected error to wrap ErrElementNotFound")
	}
}

func TestValue_AccessorErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Value(context.Background(), Target{What: "x", Timeout: time.Second, Interval: time.Millisecond},
		func(context.Context) (int, bool, error) {
			calls++
			return 0, false, boom
		})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestValue_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Value(ctx, Target{What: "x", Timeout: time.Second, Interval: 10 * time.Millisecond},
		func(context.Context) (int, bool, error) { return 0, false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUntil(t *testing.T) {
	n := 0
	err := Until(context.Background(), Target{What: "enabled", Timeout: time.Second, Interval: time.Millisecond},
		func(context.Context) (bool, error) {
			n++
			return n >= 2, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStable_ScrollStopsChanging(t *testing.T) {
	positions := []int{0, 500, 1000, 1200, 1200}
	i := 0
	got, err := Stable(context.Background(), Target{What: "scroll", Timeout: time.Second, Interval: time.Millisecond},
		func(context.Context) (int, error) {
			p := positions[i]
			if i < len(positions)-1 {
				i++
			}
			return p, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1200 {
		t.Errorf("expected 1200, got %d", got)
	}
}

func TestStable_NeverSettles(t *testing.T) {
	n := 0
	_, err := Stable(context.Background(), Target{What: "row count", Timeout: 5 * time.Millisecond, Interval: time.Millisecond},
		func(context.Context) (int, error) {
			n++
			return n, nil
		})
	if !errors.Is(err, model.ErrElementNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
