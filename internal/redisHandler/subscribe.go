package redishandler

import (
	"context"

	"github.com/saxenaaman628/trip-poll/internal/store"
)

// Subscribe listens on the session's events channel. Every message published
// by a committed Update becomes a payload-free signal; the subscription
// re-reads the session and poll on each one.
func (s *Store) Subscribe(ctx context.Context, sessionID string) (*store.Subscription, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	pubsub := s.rdb.Subscribe(ctx, eventsChannel(sessionID))
	// Wait for the subscribe confirmation so no commit after this call is
	// missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, storeError("failed to subscribe", err)
	}

	signals := make(chan struct{}, 1)
	msgs := pubsub.Channel()
	go func() {
		defer close(signals)
		for range msgs {
			select {
			case signals <- struct{}{}:
			default:
			}
		}
	}()

	load := func(ctx context.Context) (store.View, error) {
		sess, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return store.View{}, err
		}
		poll, err := readPoll(ctx, s.rdb, sessionID)
		if err != nil {
			return store.View{}, err
		}
		return store.View{Session: sess, Poll: poll}, nil
	}

	s.logger.Debug("subscribed to session events", "session", sessionID)
	return store.NewSubscription(ctx, load, signals, pubsub.Close), nil
}
