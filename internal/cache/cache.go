// Package cache remembers which articles a chat has already been served so
// that follow-up feeds exclude them.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const DefaultMaxSessions = 10000

type session struct {
	date   string
	served []string
}

type Cache struct {
	mu        sync.Mutex
	sessions  *expirable.LRU[int64, session]
	retention time.Duration
}

// New returns a cache holding at most size sessions, each expiring after
// retention without activity.
func New(size int, retention time.Duration) *Cache {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	return &Cache{
		sessions:  expirable.NewLRU[int64, session](size, nil, retention),
		retention: retention,
	}
}

// Served returns the ids already shown to chatID for date. A session started
// on another date counts as empty.
func (c *Cache) Served(chatID int64, date string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions.Get(chatID)
	if !ok || s.date != date {
		return nil
	}
	return append([]string(nil), s.served...)
}

func (c *Cache) MarkServed(chatID int64, date string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions.Get(chatID)
	if !ok || s.date != date {
		s = session{date: date}
	}
	seen := make(map[string]struct{}, len(s.served))
	for _, id := range s.served {
		seen[id] = struct{}{}
	}
	served := append([]string(nil), s.served...)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		served = append(served, id)
	}
	c.sessions.Add(chatID, session{date: date, served: served})
}

func (c *Cache) Reset(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions.Remove(chatID)
}

func (c *Cache) Close() {
	c.sessions.Purge()
}

func (c *Cache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"sessions":  c.sessions.Len(),
		"retention": c.retention.String(),
	}
}
