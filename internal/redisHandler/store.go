// Package redishandler implements store.Store on Redis. Each session is a
// hash, its participants a sibling hash of JSON records and its poll a JSON
// string; read-modify-write goes through WATCH/MULTI/EXEC with bounded retry.
package redishandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

type Store struct {
	rdb        *redis.Client
	maxRetries int
	metrics    metrics.Recorder
	logger     *slog.Logger
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Store) { s.metrics = metrics.OrNop(m) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{
		rdb:        rdb,
		maxRetries: store.DefaultMaxRetries,
		metrics:    metrics.NewNop(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id string) string      { return "session:" + id }
func participantsKey(id string) string { return "session:" + id + ":participants" }
func pollKey(id string) string         { return "poll:" + id }
func eventsChannel(id string) string   { return "session:" + id + ":events" }

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	key := sessionKey(sess.ID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeSession(sess))
		pipe.Publish(ctx, eventsChannel(sess.ID), "created")
		return nil
	})
	if err != nil {
		return storeError("failed to create session", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return models.Session{}, storeError("failed to fetch session", err)
	}
	if len(data) == 0 {
		return models.Session{}, store.SessionNotFound()
	}
	return decodeSession(data)
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]models.Participant, error) {
	exists, err := s.rdb.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, storeError("failed to fetch session", err)
	}
	if exists == 0 {
		return nil, store.SessionNotFound()
	}

	raw, err := s.rdb.HGetAll(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return nil, storeError("failed to fetch participants", err)
	}

	participants := make([]models.Participant, 0, len(raw))
	for id, blob := range raw {
		var p models.Participant
		if err := json.Unmarshal([]byte(blob), &p); err != nil {
			return nil, apperr.Internal("corrupt participant record", fmt.Errorf("%s: %w", id, err))
		}
		participants = append(participants, p)
	}
	// Hash iteration order is random; join order is the natural one.
	sort.SliceStable(participants, func(i, j int) bool {
		if !participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		}
		return participants[i].ID < participants[j].ID
	})
	return participants, nil
}

// storeError classifies a Redis failure. Application errors raised inside a
// transaction pass through untouched.
func storeError(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if isContextErr(err) {
		return apperr.External(msg+": timed out", err)
	}
	return apperr.External(msg, err)
}
