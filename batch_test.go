package backtest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunParallel(t *testing.T) {
	var running, peak atomic.Int32
	tasks := make([]func(context.Context) (int, error), 10)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return i * i, nil
		}
	}
	got, err := RunParallel(context.Background(), 3, tasks)
	if err != nil {
		t.Fatalf("RunParallel() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got); diff != "" {
		t.Errorf("RunParallel() mismatch (-want +got):\n%s", diff)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("%d tasks ran at once, want at most 3", p)
	}
}

func TestRunParallelError(t *testing.T) {
	boom := errors.New("boom")
	tasks := []func(context.Context) (string, error){
		func(context.Context) (string, error) { return "ok", nil },
		func(context.Context) (string, error) { return "", boom },
	}
	if _, err := RunParallel(context.Background(), 0, tasks); !errors.Is(err, boom) {
		t.Errorf("RunParallel() error = %v, want %v", err, boom)
	}
}
