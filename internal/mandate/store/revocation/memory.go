package revocation

import (
	"context"
	"sync"
	"time"

	id "procura/pkg/domain"
)

// MemoryList is an in-process revocation list for tests and single-instance
// deployments without Redis.
type MemoryList struct {
	mu      sync.RWMutex
	revoked map[id.MandateID]time.Time
}

func NewMemoryList() *MemoryList {
	return &MemoryList{revoked: make(map[id.MandateID]time.Time)}
}

func (l *MemoryList) Revoke(_ context.Context, mandateID id.MandateID, ttl time.Duration) error {
	if mandateID.IsNil() {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[mandateID] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, mandateID id.MandateID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, ok := l.revoked[mandateID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}
