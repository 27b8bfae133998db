// Package statemachine holds the session lifecycle transition table. It never
// touches storage: callers evaluate a transition against a snapshot read inside
// their transaction and only persist the returned state.
package statemachine

import (
	"fmt"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

type Event string

const (
	EventJoin              Event = "join"
	EventGenerateRequested Event = "generateRequested"
	EventOptionsReady      Event = "optionsReady"
	EventRankingFailed     Event = "rankingFailed"
	EventVoteCast          Event = "voteCast"
	EventCloseRequested    Event = "closeRequested"
	EventCancel            Event = "cancel"
)

// Facts are the guard inputs observed in the same snapshot as the state.
type Facts struct {
	Participants int
	Options      int
	PollExists   bool
	AlreadyVoted bool
	// LeaseHeld is true while another generation owns a session in
	// GeneratingOptions.
	LeaseHeld bool
}

// Next returns the state reached by firing ev in from, or a precondition
// error when the transition is illegal. On error the caller must not write.
func Next(from models.PollState, ev Event, f Facts) (models.PollState, error) {
	if ev == EventCancel {
		if from.Terminal() {
			return from, illegal(from, ev)
		}
		return models.StateCancelled, nil
	}

	switch from {
	case models.StateGatheringParticipants:
		switch ev {
		case EventJoin:
			return from, nil
		case EventGenerateRequested:
			if f.Participants < 1 {
				return from, apperr.Precondition("cannot generate options without participants")
			}
			return models.StateGeneratingOptions, nil
		}

	case models.StateGeneratingOptions:
		switch ev {
		case EventGenerateRequested:
			if f.LeaseHeld {
				return from, apperr.Precondition("options are already being generated for this session")
			}
			return from, nil
		case EventOptionsReady:
			if f.Options < 1 {
				return from, apperr.Precondition("ranking produced no options")
			}
			if f.PollExists {
				return from, apperr.Precondition("poll already exists for this session")
			}
			return models.StateVoting, nil
		case EventRankingFailed:
			return models.StateCancelled, nil
		}

	case models.StateVoting:
		switch ev {
		case EventVoteCast:
			if !f.PollExists {
				return from, apperr.NotFound("poll not found")
			}
			if f.AlreadyVoted {
				return from, apperr.Precondition("you have already voted")
			}
			return from, nil
		case EventCloseRequested:
			return models.StateCompleted, nil
		}
	}

	return from, illegal(from, ev)
}

// Can reports whether ev is legal in from, ignoring guards that need facts.
func Can(from models.PollState, ev Event) bool {
	_, err := Next(from, ev, Facts{Participants: 1, Options: 1, PollExists: ev == EventVoteCast})
	return err == nil
}

func illegal(from models.PollState, ev Event) error {
	return apperr.Precondition(fmt.Sprintf("%s is not allowed while session is %s", ev, from))
}
