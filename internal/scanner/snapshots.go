package scanner

import (
	"sync"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// snapshotStore keeps fetched chains between the fetch and generate steps.
// Entries expire after ttl and are swept on every put.
type snapshotStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	items map[string]storedSnapshot
}

type storedSnapshot struct {
	snap    domain.ChainSnapshot
	expires time.Time
}

func newSnapshotStore(ttl time.Duration, now func() time.Time) *snapshotStore {
	return &snapshotStore{ttl: ttl, now: now, items: make(map[string]storedSnapshot)}
}

func (s *snapshotStore) put(ref string, snap domain.ChainSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[ref] = storedSnapshot{snap: snap, expires: now.Add(s.ttl)}
}

func (s *snapshotStore) get(ref string) (domain.ChainSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[ref]
	if !ok || s.now().After(it.expires) {
		delete(s.items, ref)
		return domain.ChainSnapshot{}, false
	}
	return it.snap, true
}

func (s *snapshotStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
