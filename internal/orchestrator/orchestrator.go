// Package orchestrator ties the session lifecycle together: it guards every
// request with the state machine, drives option generation through the
// external collaborators and the ranking engine, and delegates votes to the
// voting coordinator.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/ranking"
	"github.com/saxenaaman628/trip-poll/internal/statemachine"
	"github.com/saxenaaman628/trip-poll/internal/store"
	"github.com/saxenaaman628/trip-poll/internal/voting"
)

const (
	DefaultSearchRadiusM = 5000
	DefaultTimeout       = 10 * time.Second
	DefaultLeaseTTL      = 2 * time.Minute
)

// CandidateSource finds venues of a type around a point.
type CandidateSource interface {
	Nearby(ctx context.Context, center models.LatLng, venueType string, radiusM uint) ([]models.Candidate, error)
}

// TravelTimeProvider returns durations indexed [origin][destination].
type TravelTimeProvider interface {
	TravelTimes(ctx context.Context, origins []models.LatLng, destinations []models.Candidate, mode models.TravelMode) (ranking.Matrix, error)
}

type Orchestrator struct {
	store      store.Store
	candidates CandidateSource
	travel     TravelTimeProvider
	ranker     ranking.Engine
	votes      *voting.Coordinator

	radiusM  uint
	timeout  time.Duration
	leaseTTL time.Duration

	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Orchestrator)

func WithRanker(e ranking.Engine) Option {
	return func(o *Orchestrator) { o.ranker = e }
}

func WithSearchRadius(m uint) Option {
	return func(o *Orchestrator) {
		if m > 0 {
			o.radiusM = m
		}
	}
}

// WithTimeout bounds each store and collaborator call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLeaseTTL sets how long a generation may hold a session before another
// request can take over.
func WithLeaseTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.leaseTTL = d
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = metrics.OrNop(m) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

func New(st store.Store, cs CandidateSource, tt TravelTimeProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      st,
		candidates: cs,
		travel:     tt,
		ranker:     ranking.NewEngine(),
		radiusM:    DefaultSearchRadiusM,
		timeout:    DefaultTimeout,
		leaseTTL:   DefaultLeaseTTL,
		metrics:    metrics.NewNop(),
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.votes = voting.NewCoordinator(st,
		voting.WithMetrics(o.metrics),
		voting.WithLogger(o.logger),
		voting.WithClock(o.now),
	)
	return o
}

func (o *Orchestrator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}

func (o *Orchestrator) CreateSession(ctx context.Context, callerID, category string) (models.CreateSessionResponse, error) {
	if callerID == "" {
		return models.CreateSessionResponse{}, apperr.Auth("authentication required to create a session")
	}
	cat, ok := models.ParseCategory(category)
	if !ok {
		return models.CreateSessionResponse{}, apperr.Validation("invalid category: " + category)
	}

	ctx, cancel := o.bounded(ctx)
	defer cancel()

	sess := models.Session{
		ID:        o.newID(),
		HostID:    callerID,
		CreatedAt: o.now().UTC(),
		Category:  cat,
		PollState: models.StateGatheringParticipants,
	}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return models.CreateSessionResponse{}, err
	}

	o.logger.Info("session created", "session", sess.ID, "host", callerID, "category", cat)
	return models.CreateSessionResponse{SessionID: sess.ID}, nil
}

// JoinSession adds a participant. callerID may be empty for guests.
func (o *Orchestrator) JoinSession(ctx context.Context, sessionID string, req models.JoinSessionRequest, callerID string) (models.JoinSessionResponse, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case sessionID == "":
		return models.JoinSessionResponse{}, apperr.Validation("sessionId is required")
	case name == "":
		return models.JoinSessionResponse{}, apperr.Validation("name is required")
	case req.Location == nil:
		return models.JoinSessionResponse{}, apperr.Validation("location is required")
	case !validLocation(*req.Location):
		return models.JoinSessionResponse{}, apperr.Validation("location is out of range")
	}

	ctx, cancel := o.bounded(ctx)
	defer cancel()

	loc := *req.Location
	p := models.Participant{
		ID:          o.newID(),
		Name:        name,
		Avatar:      models.DefaultAvatar,
		UserID:      callerID,
		Location:    &loc,
		Preferences: req.Preferences,
		JoinedAt:    o.now().UTC(),
	}
	err := o.store.Update(ctx, sessionID, func(snap *store.Snapshot) error {
		if _, err := statemachine.Next(snap.Session.PollState, statemachine.EventJoin, statemachine.Facts{}); err != nil {
			return err
		}
		snap.AddParticipant(p)
		return nil
	})
	if err != nil {
		return models.JoinSessionResponse{}, err
	}

	o.logger.Info("participant joined", "session", sessionID, "participant", p.ID)
	return models.JoinSessionResponse{ParticipantID: p.ID}, nil
}

func (o *Orchestrator) Vote(ctx context.Context, sessionID, callerID, optionID string) (models.ActionResponse, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	if _, err := o.votes.CastVote(ctx, sessionID, callerID, optionID); err != nil {
		return models.ActionResponse{}, err
	}
	return models.ActionResponse{Success: true, Message: "Vote recorded successfully"}, nil
}

func (o *Orchestrator) Close(ctx context.Context, sessionID, callerID string) (models.Result, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return o.votes.Close(ctx, sessionID, callerID)
}

func (o *Orchestrator) Cancel(ctx context.Context, sessionID, callerID string) (models.ActionResponse, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	if err := o.votes.Cancel(ctx, sessionID, callerID); err != nil {
		return models.ActionResponse{}, err
	}
	return models.ActionResponse{Success: true, Message: "Session cancelled"}, nil
}

// GetSession reads the session and its participants concurrently.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (models.SessionDetails, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	var details models.SessionDetails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := o.store.GetSession(gctx, sessionID)
		details.Session = s
		return err
	})
	g.Go(func() error {
		ps, err := o.store.ListParticipants(gctx, sessionID)
		details.Participants = ps
		return err
	})
	if err := g.Wait(); err != nil {
		return models.SessionDetails{}, err
	}
	return details, nil
}

func (o *Orchestrator) GetPoll(ctx context.Context, sessionID string) (models.Poll, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return o.store.GetPoll(ctx, sessionID)
}

// GetResult reports the decision of a completed session.
func (o *Orchestrator) GetResult(ctx context.Context, sessionID string) (models.Result, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Result{}, err
	}
	if sess.PollState != models.StateCompleted {
		return models.Result{}, apperr.Precondition("voting has not been closed for this session")
	}
	poll, err := o.store.GetPoll(ctx, sessionID)
	if err != nil {
		return models.Result{}, err
	}
	return voting.ResultOf(sess, &poll), nil
}

// Watch subscribes to committed changes of a session. The caller must close
// the returned subscription.
func (o *Orchestrator) Watch(ctx context.Context, sessionID string) (*store.Subscription, error) {
	return o.store.Subscribe(ctx, sessionID)
}

func validLocation(l models.LatLng) bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
