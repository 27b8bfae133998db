package store

import (
	"context"
	"sync"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

// Memory is a process-local Store. A single mutex serializes every update,
// which trivially gives serializable transactions. Used by tests and by the
// server when STORE_BACKEND=memory.
type Memory struct {
	mu sync.Mutex

	sessions     map[string]models.Session
	participants map[string][]models.Participant
	polls        map[string]*models.Poll
	subs         map[string]map[chan struct{}]struct{}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[string]models.Session),
		participants: make(map[string][]models.Participant),
		polls:        make(map[string]*models.Poll),
		subs:         make(map[string]map[chan struct{}]struct{}),
	}
}

func (m *Memory) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.notifyLocked(s.ID)
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, SessionNotFound()
	}
	return s, nil
}

func (m *Memory) ListParticipants(_ context.Context, sessionID string) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, SessionNotFound()
	}
	out := make([]models.Participant, len(m.participants[sessionID]))
	copy(out, m.participants[sessionID])
	return out, nil
}

func (m *Memory) GetPoll(_ context.Context, sessionID string) (models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[sessionID]
	if !ok {
		return models.Poll{}, PollNotFound()
	}
	return *p.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, sessionID string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return apperr.External("update aborted", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return SessionNotFound()
	}
	snap := &Snapshot{
		Session:      s,
		Poll:         m.polls[sessionID].Clone(),
		Participants: len(m.participants[sessionID]),
	}
	if err := fn(snap); err != nil {
		return err
	}

	snap.Session.ID = sessionID
	m.sessions[sessionID] = snap.Session
	if snap.Poll != nil {
		m.polls[sessionID] = snap.Poll.Clone()
	}
	m.participants[sessionID] = append(m.participants[sessionID], snap.joined...)
	m.notifyLocked(sessionID)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, sessionID string) (*Subscription, error) {
	if _, err := m.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	m.mu.Lock()
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[chan struct{}]struct{})
	}
	m.subs[sessionID][ch] = struct{}{}
	m.mu.Unlock()

	load := func(context.Context) (View, error) {
		return m.view(sessionID)
	}
	unsubscribe := func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[sessionID], ch)
		return nil
	}
	return NewSubscription(ctx, load, ch, unsubscribe), nil
}

func (m *Memory) view(sessionID string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return View{}, SessionNotFound()
	}
	return View{Session: s, Poll: m.polls[sessionID].Clone()}, nil
}

// notifyLocked never blocks: a full buffer already guarantees the subscriber
// will re-read.
func (m *Memory) notifyLocked(sessionID string) {
	for ch := range m.subs[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
