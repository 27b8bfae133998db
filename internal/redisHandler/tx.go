package redishandler

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

const retryBaseDelay = 2 * time.Millisecond

// Update watches the session, participant and poll keys, lets fn mutate a
// snapshot read under the watch, and commits the result in one MULTI/EXEC.
// A concurrent writer aborts EXEC; the whole read-modify-write is retried up
// to maxRetries times.
func (s *Store) Update(ctx context.Context, sessionID string, fn store.UpdateFunc) error {
	keys := []string{sessionKey(sessionID), participantsKey(sessionID), pollKey(sessionID)}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return storeError("update aborted", err)
		}

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			snap, err := readSnapshot(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}
			return writeSnapshot(ctx, tx, sessionID, snap)
		}, keys...)

		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return storeError("failed to update session", err)
		}

		s.metrics.TxRetry("update")
		s.logger.Debug("transaction conflict, retrying", "session", sessionID, "attempt", attempt)
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			return storeError("update aborted", err)
		}
	}

	s.logger.Warn("transaction retries exhausted", "session", sessionID, "retries", s.maxRetries)
	return apperr.External("too many concurrent updates, try again", store.ErrConflict)
}

func readSnapshot(ctx context.Context, tx *redis.Tx, sessionID string) (*store.Snapshot, error) {
	data, err := tx.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, storeError("failed to fetch session", err)
	}
	if len(data) == 0 {
		return nil, store.SessionNotFound()
	}
	sess, err := decodeSession(data)
	if err != nil {
		return nil, err
	}

	poll, err := readPoll(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := tx.HLen(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return nil, storeError("failed to count participants", err)
	}

	return &store.Snapshot{Session: sess, Poll: poll, Participants: int(count)}, nil
}

func writeSnapshot(ctx context.Context, tx *redis.Tx, sessionID string, snap *store.Snapshot) error {
	snap.Session.ID = sessionID

	var pollBlob []byte
	if snap.Poll != nil {
		blob, err := encodePoll(snap.Poll)
		if err != nil {
			return apperr.Internal("failed to encode poll", err)
		}
		pollBlob = blob
	}

	joined := make(map[string]interface{}, len(snap.Joined()))
	for _, p := range snap.Joined() {
		blob, err := json.Marshal(p)
		if err != nil {
			return apperr.Internal("failed to encode participant", err)
		}
		joined[p.ID] = string(blob)
	}

	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(sessionID), encodeSession(snap.Session))
		if pollBlob != nil {
			pipe.Set(ctx, pollKey(sessionID), pollBlob, 0)
		}
		if len(joined) > 0 {
			pipe.HSet(ctx, participantsKey(sessionID), joined)
		}
		pipe.Publish(ctx, eventsChannel(sessionID), string(snap.Session.PollState))
		return nil
	})
	return err
}

// backoff grows linearly with jitter so colliding writers spread out.
func backoff(attempt int) time.Duration {
	d := retryBaseDelay * time.Duration(attempt)
	return d/2 + rand.N(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
