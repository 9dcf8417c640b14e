// Package lock provides short-lived exclusive leases keyed by string. The
// Redis implementation coordinates several server processes; Memory covers
// single-process deployments and tests.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotOwner is returned by Unlock when the lease expired or was taken by
// someone else.
var ErrNotOwner = errors.New("lock not owned by caller")

type Locker interface {
	// TryLock attempts to take key for ttl. ok is false when another holder
	// owns it. The returned token must be passed to Unlock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type lease struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker.
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{leases: make(map[string]lease), now: time.Now}
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.leases[key] = lease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (m *Memory) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[key]
	if !ok || l.token != token || !m.now().Before(l.expires) {
		return ErrNotOwner
	}
	delete(m.leases, key)
	return nil
}
