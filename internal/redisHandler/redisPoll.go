package redishandler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

func (s *Store) GetPoll(ctx context.Context, sessionID string) (models.Poll, error) {
	poll, err := readPoll(ctx, s.rdb, sessionID)
	if err != nil {
		return models.Poll{}, err
	}
	if poll == nil {
		return models.Poll{}, store.PollNotFound()
	}
	return *poll, nil
}

// readPoll returns nil without error when the session has no poll yet.
func readPoll(ctx context.Context, r redis.Cmdable, sessionID string) (*models.Poll, error) {
	blob, err := r.Get(ctx, pollKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("failed to fetch poll", err)
	}

	var poll models.Poll
	if err := json.Unmarshal(blob, &poll); err != nil {
		return nil, apperr.Internal("corrupt poll record", err)
	}
	if poll.Voters == nil {
		poll.Voters = []string{}
	}
	return &poll, nil
}

func encodePoll(p *models.Poll) ([]byte, error) {
	if p.Voters == nil {
		p.Voters = []string{}
	}
	return json.Marshal(p)
}
