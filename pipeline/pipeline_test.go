package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestRunnerOrder(t *testing.T) {
	var order []string
	record := func(name string) Stage {
		return Func(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	r := NewRunner(zap.NewNop(), record("copy"), record("images"), record("validate"))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"copy", "images", "validate"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	r := NewRunner(zap.NewNop(),
		Func("fragments", func(ctx context.Context) error { return boom }),
		Func("carousel", func(ctx context.Context) error { ran = true; return nil }),
	)

	err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "fragments") {
		t.Errorf("err = %v, want the failing stage named", err)
	}
	if ran {
		t.Error("later stages must not run after a failure")
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := false

	r := NewRunner(zap.NewNop(),
		Func("copy", func(ctx context.Context) error { cancel(); return nil }),
		Func("images", func(ctx context.Context) error { ran = true; return nil }),
	)

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("stages must not run after cancellation")
	}
}
