// ABOUTME: In-memory caching for classifier model lists to reduce endpoint round trips.
// ABOUTME: Uses TTL-based expiration keyed by endpoint URL, since settings can repoint the endpoint.

package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type modelEntry struct {
	Models    []string
	ExpiresAt time.Time
}

type ModelCache struct {
	cache  map[string]*modelEntry
	mutex  sync.RWMutex
	ttl    time.Duration
	logger *logrus.Logger
}

func NewModelCache(logger *logrus.Logger) *ModelCache {
	cache := &ModelCache{
		cache:  make(map[string]*modelEntry),
		ttl:    10 * time.Minute,
		logger: logger,
	}

	// Start cleanup goroutine
	go cache.startCleanup()

	return cache
}

func (c *ModelCache) Get(endpoint string) []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[endpoint]
	if !exists {
		return nil
	}

	// Check if entry has expired
	if time.Now().After(entry.ExpiresAt) {
		// Don't delete here to avoid write lock in read operation
		// Cleanup will handle expired entries
		return nil
	}

	c.logger.WithField("endpoint", endpoint).Debug("Model list cache hit")

	models := make([]string, len(entry.Models))
	copy(models, entry.Models)
	return models
}

func (c *ModelCache) Set(endpoint string, models []string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := make([]string, len(models))
	copy(stored, models)

	c.cache[endpoint] = &modelEntry{
		Models:    stored,
		ExpiresAt: time.Now().Add(c.ttl),
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"model_count": len(models),
	}).Debug("Cached model list")
}

func (c *ModelCache) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *ModelCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expiredCount := 0

	for endpoint, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			delete(c.cache, endpoint)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.WithFields(logrus.Fields{
			"expired_entries":   expiredCount,
			"remaining_entries": len(c.cache),
		}).Debug("Model cache cleanup completed")
	}
}

func (c *ModelCache) Stats() (total int, expired int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	total = len(c.cache)

	for _, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return total, expired
}
