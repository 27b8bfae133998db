package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

func newSession(id string) models.Session {
	return models.Session{
		ID:        id,
		HostID:    "host",
		CreatedAt: time.Now().UTC(),
		Category:  models.CategoryFood,
		PollState: models.StateGatheringParticipants,
	}
}

func TestMemory_NotFound(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetSession(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = m.GetPoll(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = m.Update(ctx, "missing", func(*Snapshot) error { return nil })
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = m.Subscribe(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemory_UpdateCommitsAllOrNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, newSession("s1")))

	boom := errors.New("boom")
	err := m.Update(ctx, "s1", func(s *Snapshot) error {
		s.Session.PollState = models.StateVoting
		s.Poll = &models.Poll{ID: "s1"}
		s.AddParticipant(models.Participant{ID: "p1"})
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateGatheringParticipants, got.PollState)
	_, err = m.GetPoll(ctx, "s1")
	assert.Error(t, err)
	ps, err := m.ListParticipants(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, ps)

	err = m.Update(ctx, "s1", func(s *Snapshot) error {
		s.AddParticipant(models.Participant{ID: "p1", Name: "Ana"})
		assert.Equal(t, 1, s.Participants)
		return nil
	})
	require.NoError(t, err)

	ps, err = m.ListParticipants(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "Ana", ps[0].Name)
}

func TestMemory_PollIsCopied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, newSession("s1")))

	poll := &models.Poll{ID: "s1", Options: []models.TripOption{{PlaceID: "a"}}}
	require.NoError(t, m.Update(ctx, "s1", func(s *Snapshot) error {
		s.Poll = poll
		return nil
	}))
	poll.Options[0].Votes = 99

	got, err := m.GetPoll(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Options[0].Votes)
}

func TestMemory_Subscription(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.CreateSession(ctx, newSession("s1")))

	sub, err := m.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer sub.Close()

	var states []models.PollState
	for v, err := range sub.Snapshots() {
		require.NoError(t, err)
		states = append(states, v.Session.PollState)
		if len(states) == 1 {
			require.NoError(t, m.Update(ctx, "s1", func(s *Snapshot) error {
				s.Session.PollState = models.StateCancelled
				return nil
			}))
			continue
		}
		break
	}
	assert.Equal(t, []models.PollState{models.StateGatheringParticipants, models.StateCancelled}, states)

	// Restarting the sequence begins with a fresh read of the latest state.
	for v, err := range sub.Snapshots() {
		require.NoError(t, err)
		assert.Equal(t, models.StateCancelled, v.Session.PollState)
		break
	}

	require.NoError(t, sub.Close())
	count := 0
	for range sub.Snapshots() {
		count++
	}
	assert.Zero(t, count)
}
