package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/statemachine"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

// GenerateOptions builds the session's poll. The session is first locked in
// GeneratingOptions under a lease; the poll and the move to Voting are then
// committed together. A collaborator failure releases the lease and writes
// nothing else, so the request can be repeated. A search that yields no
// options cancels the session.
func (o *Orchestrator) GenerateOptions(ctx context.Context, sessionID string) (models.ActionResponse, error) {
	start := o.now()
	resp, err := o.generate(ctx, sessionID)
	o.metrics.Generation(generationOutcome(err), o.now().Sub(start))
	return resp, err
}

func (o *Orchestrator) generate(ctx context.Context, sessionID string) (models.ActionResponse, error) {
	lease := o.newID()
	sess, err := o.acquire(ctx, sessionID, lease)
	if err != nil {
		return models.ActionResponse{}, err
	}
	log := o.logger.With("session", sessionID, "lease", lease)

	options, err := o.buildOptions(ctx, sess)
	if err != nil {
		log.Warn("option generation failed", "kind", apperr.KindOf(err), "error", err)
		o.release(ctx, sessionID, lease)
		return models.ActionResponse{}, err
	}

	if len(options) == 0 {
		if err := o.commit(ctx, sessionID, lease, nil); err != nil {
			return models.ActionResponse{}, err
		}
		log.Info("no options found, session cancelled")
		return models.ActionResponse{}, apperr.Precondition("no venues found near the group; session cancelled")
	}

	if err := o.commit(ctx, sessionID, lease, options); err != nil {
		o.release(ctx, sessionID, lease)
		return models.ActionResponse{}, err
	}
	log.Info("poll created", "options", len(options))
	return models.ActionResponse{Success: true, Message: "Options generated"}, nil
}

// acquire moves the session into GeneratingOptions and takes the lease.
func (o *Orchestrator) acquire(ctx context.Context, sessionID, lease string) (models.Session, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	var locked models.Session
	err := o.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		now := o.now()
		next, err := statemachine.Next(snap.Session.PollState, statemachine.EventGenerateRequested, statemachine.Facts{
			Participants: snap.Participants,
			LeaseHeld:    snap.Session.LeaseHeld(now),
		})
		if err != nil {
			return err
		}
		snap.Session.PollState = next
		snap.Session.GenerationLease = lease
		snap.Session.LeaseExpiresAt = now.Add(o.leaseTTL)
		locked = snap.Session
		return nil
	})
	return locked, err
}

// buildOptions runs the collaborators and the ranking. It never writes.
func (o *Orchestrator) buildOptions(ctx context.Context, sess models.Session) ([]models.TripOption, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	participants, err := o.store.ListParticipants(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	origins := Origins(participants)
	center, ok := Centroid(origins)
	if !ok {
		return nil, apperr.Precondition("no participant has shared a location")
	}

	candidates, err := o.candidates.Nearby(ctx, center, sess.Category.VenueType(), o.radiusM)
	if err != nil {
		return nil, asExternal("candidate search failed", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	matrix, err := o.travel.TravelTimes(ctx, origins, candidates, TravelModeOf(participants))
	if err != nil {
		return nil, asExternal("travel time lookup failed", err)
	}
	return o.ranker.Rank(candidates, matrix), nil
}

// commit writes the poll and enters Voting, or cancels the session when
// options is empty. It fails if the lease was lost in the meantime.
func (o *Orchestrator) commit(ctx context.Context, sessionID, lease string, options []models.TripOption) error {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	return o.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		if snap.Session.GenerationLease != lease {
			return apperr.Precondition("option generation was taken over by another request")
		}

		ev := statemachine.EventOptionsReady
		if len(options) == 0 {
			ev = statemachine.EventRankingFailed
		}
		next, err := statemachine.Next(snap.Session.PollState, ev, statemachine.Facts{
			Options:    len(options),
			PollExists: snap.Poll != nil,
		})
		if err != nil {
			return err
		}

		snap.Session.PollState = next
		snap.Session.GenerationLease = ""
		snap.Session.LeaseExpiresAt = time.Time{}
		if len(options) > 0 {
			snap.Poll = &models.Poll{
				ID:        sessionID,
				Options:   options,
				Voters:    []string{},
				CreatedAt: o.now().UTC(),
			}
		}
		return nil
	})
}

// release drops the lease so the host can retry. It runs even when ctx has
// already expired.
func (o *Orchestrator) release(ctx context.Context, sessionID, lease string) {
	ctx, cancel := o.bounded(context.WithoutCancel(ctx))
	defer cancel()

	err := o.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		if snap.Session.GenerationLease != lease {
			return nil
		}
		snap.Session.GenerationLease = ""
		snap.Session.LeaseExpiresAt = time.Time{}
		return nil
	})
	if err != nil {
		// The lease still expires on its own.
		o.logger.Error("failed to release generation lease", "session", sessionID, "error", err)
	}
}

// asExternal classifies a collaborator error that is not already an
// application error.
func asExternal(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.External(msg+": timed out", err)
	}
	return apperr.External(msg, err)
}

func generationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperr.IsKind(err, apperr.KindExternal), apperr.IsKind(err, apperr.KindInternal):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}
