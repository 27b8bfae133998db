// Package store defines the transactional document store the core relies on
// and ships an in-memory implementation. The Redis implementation lives in
// internal/redisHandler.
package store

import (
	"context"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

// ErrConflict marks a transaction aborted because another writer committed
// first. Stores retry it internally; callers only see it wrapped in an
// external_service error once the retry bound is exhausted.
var ErrConflict = apperr.New(apperr.KindConflict, "concurrent update conflict")

// DefaultMaxRetries bounds optimistic retries per Update call.
const DefaultMaxRetries = 16

// Snapshot is the working copy of one session handed to an UpdateFunc. Every
// field reflects the same committed version; whatever the function leaves in
// Session and Poll is written back atomically.
type Snapshot struct {
	Session      models.Session
	Poll         *models.Poll
	Participants int

	joined []models.Participant
}

// AddParticipant stages a participant record to be committed with the
// snapshot.
func (s *Snapshot) AddParticipant(p models.Participant) {
	s.joined = append(s.joined, p)
	s.Participants++
}

func (s *Snapshot) Joined() []models.Participant { return s.joined }

// UpdateFunc mutates a snapshot in place. Returning an error aborts the
// transaction without writing anything. It may run more than once when the
// store retries, so it must not have side effects outside the snapshot.
type UpdateFunc func(*Snapshot) error

// View is what subscribers observe.
type View struct {
	Session models.Session `json:"session"`
	Poll    *models.Poll   `json:"poll,omitempty"`
}

type Store interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	ListParticipants(ctx context.Context, sessionID string) ([]models.Participant, error)
	GetPoll(ctx context.Context, sessionID string) (models.Poll, error)

	// Update runs fn against a consistent snapshot and commits its result with
	// serializable semantics. Unknown sessions yield a not_found error.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) error

	// Subscribe returns a handle that observes every committed write to the
	// session until it is closed or ctx ends.
	Subscribe(ctx context.Context, sessionID string) (*Subscription, error)
}

func SessionNotFound() error { return apperr.NotFound("session not found") }
func PollNotFound() error    { return apperr.NotFound("poll not found") }
