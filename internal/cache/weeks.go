package cache

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"finanzas/internal/budget"
)

// WeekCache memoizes week summaries per user, month and store revision.
// Any write bumps the revision, so stale entries are never hit; they age out
// through the LRU and the TTL.
type WeekCache struct {
	lru *LRUCache[[]budget.WeekSummary]
}

func NewWeekCache(maxSize int, ttl time.Duration) *WeekCache {
	return &WeekCache{lru: NewLRUCache[[]budget.WeekSummary](maxSize, ttl)}
}

// userPrefix escapes user so that no user key can contain the separator.
func userPrefix(user string) string {
	return url.QueryEscape(user) + "|"
}

func weekKey(user string, year, month int, revision uint64) string {
	return fmt.Sprintf("%s%04d-%02d|%d", userPrefix(user), year, month, revision)
}

// Get returns a copy of the cached summaries.
func (c *WeekCache) Get(user string, year, month int, revision uint64) ([]budget.WeekSummary, bool) {
	weeks, ok := c.lru.Get(weekKey(user, year, month, revision))
	if !ok {
		return nil, false
	}
	return append([]budget.WeekSummary(nil), weeks...), true
}

func (c *WeekCache) Set(user string, year, month int, revision uint64, weeks []budget.WeekSummary) {
	c.lru.Set(weekKey(user, year, month, revision), append([]budget.WeekSummary(nil), weeks...))
}

// Forget drops every entry of user.
func (c *WeekCache) Forget(user string) int {
	prefix := userPrefix(user)
	return c.lru.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

func (c *WeekCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *WeekCache) Stats() Stats { return c.lru.Stats() }
