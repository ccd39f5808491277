package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reels in process. It backs local development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	reels map[string]Reel
	now   func() time.Time
}

func NewMemoryStore(seed ...Reel) (*MemoryStore, error) {
	s := &MemoryStore{reels: make(map[string]Reel), now: time.Now}
	for _, r := range seed {
		if _, err := s.SaveReel(context.Background(), r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) Reel(_ context.Context, id string) (Reel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reels[id]
	if !ok {
		return Reel{}, ErrNotFound
	}
	return cloneReel(r), nil
}

func (s *MemoryStore) SaveReel(_ context.Context, reel Reel) (Reel, error) {
	reel, err := Normalize(reel)
	if err != nil {
		return Reel{}, err
	}
	reel.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	s.reels[reel.ID] = cloneReel(reel)
	s.mu.Unlock()
	return reel, nil
}

func (s *MemoryStore) DeleteReel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reels[id]; !ok {
		return ErrNotFound
	}
	delete(s.reels, id)
	return nil
}
