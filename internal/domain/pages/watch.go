package pages

import "context"

// ChangeSource hands out change subscriptions for observed queries.
type ChangeSource interface {
	Subscribe() (<-chan struct{}, func())
}

type queryFunc func(ctx context.Context) ([]PageIdentifier, error)

// watch emits the query result immediately and again after every change signal until ctx ends.
// The returned channel is closed once the stream stops.
func watch(ctx context.Context, changes ChangeSource, query queryFunc) <-chan Snapshot {
	out := make(chan Snapshot)

	var (
		signals <-chan struct{}
		cancel  = func() {}
	)
	if changes != nil {
		signals, cancel = changes.Subscribe()
	}

	go func() {
		defer close(out)
		defer cancel()

		for {
			pages, err := query(ctx)
			if ctx.Err() != nil {
				return
			}

			select {
			case out <- Snapshot{Pages: pages, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-signals:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
