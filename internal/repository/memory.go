package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// MemoryEventStore keeps events in process memory. Every method runs under one
// mutex, so AddAttendee's membership and capacity checks are atomic with its append.
// Callers always receive copies.
type MemoryEventStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	now    func() time.Time
}

// NewMemoryEventStore constructs an empty MemoryEventStore.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		events: make(map[string]*model.Event),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of e, assigning its ID, empty attendee set and timestamps.
func (s *MemoryEventStore) Create(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e.ID = uuid.New().String()
	e.Attendees = []string{}
	e.CreatedAt = now
	e.UpdatedAt = now
	s.events[e.ID] = e.Clone()
	return nil
}

// List returns all events ordered by date, then creation time.
func (s *MemoryEventStore) List(_ context.Context) ([]model.Event, error) {
	return s.filter(func(*model.Event) bool { return true }), nil
}

// ListByAttendee returns the events principalID is registered for, ordered by date.
func (s *MemoryEventStore) ListByAttendee(_ context.Context, principalID string) ([]model.Event, error) {
	return s.filter(func(e *model.Event) bool { return e.HasAttendee(principalID) }), nil
}

func (s *MemoryEventStore) filter(keep func(*model.Event) bool) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, *e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Event) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// GetByID returns a copy of the event or model.ErrNotFound.
func (s *MemoryEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return e.Clone(), nil
}

// Update applies upd, refusing a capacity below the current attendee count.
func (s *MemoryEventStore) Update(_ context.Context, id string, upd model.EventUpdate) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if upd.MaxAttendees != nil && len(e.Attendees) > *upd.MaxAttendees {
		return nil, model.ErrCapacityBelowAttendees
	}
	upd.Apply(e)
	e.UpdatedAt = s.now()
	return e.Clone(), nil
}

// Delete removes an event regardless of its registrations.
func (s *MemoryEventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// AddAttendee appends principalID iff it is absent and the event is under capacity.
// Membership is checked first, so a duplicate on a full event is ErrAlreadyRegistered.
func (s *MemoryEventStore) AddAttendee(_ context.Context, eventID, principalID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	switch {
	case !ok:
		return nil, model.ErrNotFound
	case e.HasAttendee(principalID):
		return nil, model.ErrAlreadyRegistered
	case e.IsFull():
		return nil, model.ErrEventFull
	}
	e.Attendees = append(e.Attendees, principalID)
	e.UpdatedAt = s.now()
	return e.Clone(), nil
}

// RemoveAttendee drops principalID; removing a non-member leaves the event unchanged.
func (s *MemoryEventStore) RemoveAttendee(_ context.Context, eventID, principalID string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if i := slices.Index(e.Attendees, principalID); i >= 0 {
		e.Attendees = slices.Delete(e.Attendees, i, i+1)
		e.UpdatedAt = s.now()
	}
	return e.Clone(), nil
}

// IsAttendee reports whether principalID is in the event's attendee set.
func (s *MemoryEventStore) IsAttendee(_ context.Context, eventID, principalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return false, model.ErrNotFound
	}
	return e.HasAttendee(principalID), nil
}

// MemoryUserStore keeps user accounts in process memory.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

// NewMemoryUserStore constructs an empty MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

// Create stores a copy of u with a new ID; a duplicate email yields model.ErrEmailTaken.
func (s *MemoryUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return model.ErrEmailTaken
	}
	u.ID = uuid.New().String()
	u.Email = email
	u.CreatedAt = time.Now().UTC()

	stored := *u
	s.byID[u.ID] = &stored
	s.byEmail[email] = u.ID
	return nil
}

// GetByID returns a copy of the user or model.ErrNotFound.
func (s *MemoryUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetByEmail looks a user up by case-insensitive email.
func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// ListByIDs returns the users among ids that exist.
func (s *MemoryUserStore) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.User
	for _, id := range ids {
		if u, ok := s.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}
