// Package episode tracks when pending transactions were first broadcast, so
// that callers can ask for a bid without keeping time themselves.
package episode

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("episode not found")

type Store interface {
	New(ep *Episode) error
	Get(id string) (*Episode, error)
	List() ([]*Episode, error)
	Remove(id string) error
}

// Episode is the bidding window of one pending transaction.
type Episode struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

// Elapsed is how long the transaction has been pending as of now. It is
// never negative.
func (e *Episode) Elapsed(now time.Time) time.Duration {
	d := now.Sub(e.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

type memStore struct {
	sync.Mutex
	episodes map[string]*Episode
}

// New registers an episode. Registering an ID twice keeps the original start
// time, since rebroadcasting does not restart the bid.
func (s *memStore) New(ep *Episode) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.episodes[ep.ID]; !ok {
		cp := *ep
		s.episodes[ep.ID] = &cp
	}
	return nil
}

func (s *memStore) Get(id string) (*Episode, error) {
	s.Lock()
	defer s.Unlock()
	ep, ok := s.episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ep
	return &cp, nil
}

// List returns the episodes oldest first.
func (s *memStore) List() ([]*Episode, error) {
	s.Lock()
	out := make([]*Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		cp := *ep
		out = append(out, &cp)
	}
	s.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (s *memStore) Remove(id string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.episodes[id]; !ok {
		return ErrNotFound
	}
	delete(s.episodes, id)
	return nil
}

func NewMemStore() Store {
	return &memStore{episodes: make(map[string]*Episode)}
}
