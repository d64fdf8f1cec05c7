package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batch runs independent writes in parallel and waits for all of them. A failing
// write does not cancel or roll back the others; the first error is returned.
func batch(ctx context.Context, writes ...func(context.Context) error) error {
	var g errgroup.Group
	for _, write := range writes {
		write := write
		g.Go(func() error {
			return write(ctx)
		})
	}
	return g.Wait()
}
