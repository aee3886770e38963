package outbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore 是进程内的 Store，用于 storage.driver=memory 与测试
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]*Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[int64]*Event)}
}

func (s *MemoryStore) InsertEvent(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	event.ID = s.nextID
	if event.Status == "" {
		event.Status = StatusPending
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (s *MemoryStore) GetPendingEvents(_ context.Context, limit int) ([]*Event, error) {
	now := time.Now()
	return s.filter(limit, false, func(e *Event) bool {
		return e.Status == StatusPending && (e.NextRetryAt == nil || !e.NextRetryAt.After(now))
	}), nil
}

func (s *MemoryStore) GetFailedEvents(_ context.Context, limit int) ([]*Event, error) {
	return s.filter(limit, true, func(e *Event) bool {
		return e.Status == StatusFailed
	}), nil
}

func (s *MemoryStore) filter(limit int, newestFirst bool, keep func(*Event) bool) []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Event
	for _, e := range s.events {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) MarkAsSent(_ context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	e.Status = StatusSent
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkAsFailed(_ context.Context, eventID int64, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	e.RetryCount++
	e.Status, e.NextRetryAt = nextAttempt(e.RetryCount, maxRetries, time.Now())
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) GetEventByID(_ context.Context, eventID int64) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}
