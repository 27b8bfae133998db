// Package voting applies votes and closes polls through the store's atomic
// read-modify-write, so each participant's vote is counted exactly once no
// matter how many writers race.
package voting

import (
	"context"
	"log/slog"
	"time"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/statemachine"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

type Coordinator struct {
	store   store.Store
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Coordinator)

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Coordinator) { c.metrics = metrics.OrNop(m) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(s store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   s,
		metrics: metrics.NewNop(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CastVote records voterID's vote for optionID in the poll of session pollID
// and returns the poll as committed. Poll and session share their id.
func (c *Coordinator) CastVote(ctx context.Context, pollID, voterID, optionID string) (models.Poll, error) {
	if voterID == "" {
		return models.Poll{}, apperr.Auth("authentication required to vote")
	}
	if optionID == "" {
		return models.Poll{}, apperr.Validation("optionId is required")
	}

	var committed models.Poll
	err := c.store.Update(ctx, pollID, func(snap *store.Snapshot) error {
		if snap.Poll == nil {
			return store.PollNotFound()
		}
		if _, err := statemachine.Next(snap.Session.PollState, statemachine.EventVoteCast, statemachine.Facts{PollExists: true}); err != nil {
			return err
		}
		idx := snap.Poll.OptionIndex(optionID)
		if idx < 0 {
			return apperr.NotFound("option not found")
		}
		if _, err := statemachine.Next(snap.Session.PollState, statemachine.EventVoteCast, statemachine.Facts{
			PollExists:   true,
			AlreadyVoted: snap.Poll.HasVoted(voterID),
		}); err != nil {
			return err
		}

		snap.Poll.Options[idx].Votes++
		snap.Poll.Voters = append(snap.Poll.Voters, voterID)
		committed = *snap.Poll.Clone()
		return nil
	})
	if err != nil {
		c.metrics.VoteCast(outcomeOf(err))
		c.logger.Info("vote rejected", "session", pollID, "voter", voterID, "kind", apperr.KindOf(err), "error", err)
		return models.Poll{}, err
	}

	c.metrics.VoteCast(metrics.OutcomeSuccess)
	c.logger.Info("vote recorded", "session", pollID, "voter", voterID, "option", optionID)
	return committed, nil
}

// Close ends voting on hostID's request and fixes the winner.
func (c *Coordinator) Close(ctx context.Context, sessionID, hostID string) (models.Result, error) {
	var result models.Result
	var winnerID string
	err := c.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		if err := requireHost(snap.Session, hostID); err != nil {
			return err
		}
		next, err := statemachine.Next(snap.Session.PollState, statemachine.EventCloseRequested, statemachine.Facts{})
		if err != nil {
			return err
		}
		if snap.Poll == nil {
			return store.PollNotFound()
		}

		snap.Session.PollState = next
		snap.Session.ClosedAt = c.now().UTC()
		winner, ok := snap.Poll.Winner()
		if ok {
			snap.Session.WinnerID = winner.PlaceID
		}
		winnerID = snap.Session.WinnerID
		result = ResultOf(snap.Session, snap.Poll)
		return nil
	})
	if err != nil {
		return models.Result{}, err
	}

	c.logger.Info("voting closed", "session", sessionID, "winner", winnerID, "votes", result.TotalVotes)
	return result, nil
}

// Cancel moves a non-terminal session to Cancelled on hostID's request.
func (c *Coordinator) Cancel(ctx context.Context, sessionID, hostID string) error {
	err := c.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		if err := requireHost(snap.Session, hostID); err != nil {
			return err
		}
		next, err := statemachine.Next(snap.Session.PollState, statemachine.EventCancel, statemachine.Facts{})
		if err != nil {
			return err
		}
		snap.Session.PollState = next
		snap.Session.GenerationLease = ""
		snap.Session.LeaseExpiresAt = time.Time{}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("session cancelled", "session", sessionID)
	return nil
}

// ResultOf builds the decision view of a poll. Winner is nil until the
// session has completed.
func ResultOf(s models.Session, p *models.Poll) models.Result {
	res := models.Result{SessionID: s.ID}
	if p == nil {
		return res
	}
	res.TotalVotes = p.TotalVotes()
	res.Options = p.Clone().Options
	if s.PollState == models.StateCompleted {
		if w, ok := p.Winner(); ok {
			res.Winner = &w
		}
	}
	return res
}

func requireHost(s models.Session, callerID string) error {
	if callerID == "" {
		return apperr.Auth("authentication required")
	}
	if callerID != s.HostID {
		return apperr.Precondition("only the host can do this")
	}
	return nil
}

func outcomeOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindPrecondition, apperr.KindNotFound, apperr.KindValidation, apperr.KindAuth:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}
