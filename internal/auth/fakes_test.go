package auth

import (
	"context"
	"sync"
	"time"
)

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*Account
	err      error
	lookups  int
}

func newMemAccounts(accounts ...*Account) *memAccounts {
	m := &memAccounts{accounts: map[string]*Account{}}
	for _, a := range accounts {
		m.accounts[a.Code] = a
	}
	return m
}

func (m *memAccounts) FindAccountByCode(_ context.Context, code string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

type recordingSink struct {
	mu    sync.Mutex
	codes []string
}

func (s *recordingSink) LogRejectedAttempt(_ context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *memCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
}

func mustHash(t interface{ Fatalf(string, ...any) }, plain string) string {
	h, err := HashPassword([]byte(plain))
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return h
}
