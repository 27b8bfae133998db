package store

import (
	"context"
	"iter"
	"sync"
)

// Subscription is a cancellable handle over change notifications for one
// session. Notifications carry no payload; each one triggers a fresh read, so
// a slow consumer only ever skips intermediate versions, never the latest.
type Subscription struct {
	ctx     context.Context
	cancel  context.CancelFunc
	load    func(ctx context.Context) (View, error)
	signals <-chan struct{}

	once    sync.Once
	closeFn func() error
	err     error
}

// NewSubscription wires a loader and a signal channel into a Subscription.
// closeFn releases the underlying listener and is called exactly once.
func NewSubscription(
	ctx context.Context,
	load func(ctx context.Context) (View, error),
	signals <-chan struct{},
	closeFn func() error,
) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{ctx: ctx, cancel: cancel, load: load, signals: signals, closeFn: closeFn}
	context.AfterFunc(ctx, func() { _ = s.Close() })
	return s
}

// Snapshots yields the current view immediately and then one view per
// committed change. The sequence is lazy and restartable: every range over it
// starts with a fresh read. It ends when the subscription is closed, the
// context is done, or a read fails (the failing error is yielded last).
// Ranging over it from several goroutines at once splits notifications
// between them.
func (s *Subscription) Snapshots() iter.Seq2[View, error] {
	return func(yield func(View, error) bool) {
		if s.ctx.Err() != nil {
			return
		}
		v, err := s.load(s.ctx)
		if s.ctx.Err() != nil {
			return
		}
		if !yield(v, err) || err != nil {
			return
		}

		for {
			select {
			case <-s.ctx.Done():
				return
			case _, ok := <-s.signals:
				if !ok {
					return
				}
				s.drain()

				v, err := s.load(s.ctx)
				if s.ctx.Err() != nil {
					return
				}
				if !yield(v, err) || err != nil {
					return
				}
			}
		}
	}
}

// drain coalesces queued notifications into one read.
func (s *Subscription) drain() {
	for {
		select {
		case _, ok := <-s.signals:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		if s.closeFn != nil {
			s.err = s.closeFn()
		}
	})
	return s.err
}
