package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunParallel runs tasks with at most limit of them at once (no limit when
// limit <= 0). Results keep the order of tasks.
//
// The first error cancels ctx for the tasks not started yet and is returned.
func RunParallel[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	results := make([]T, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := task(ctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
