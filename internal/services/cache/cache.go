package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/roles"
)

// Service defines inference cache operations
type Service interface {
	Get(ctx context.Context, needs, stack string) (*roles.Inference, bool)
	Set(ctx context.Context, needs, stack string, inf *roles.Inference) error
	Clear(ctx context.Context) error
}

type entry struct {
	inference *roles.Inference
	createdAt time.Time
}

// Cache implements the inference cache
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a new inference cache
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2),
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
}

// Get retrieves a cached inference result
func (c *Cache) Get(ctx context.Context, needs, stack string) (*roles.Inference, bool) {
	if !c.enabled {
		return nil, false
	}

	key := c.generateKey(needs, stack)
	if val, found := c.cache.Get(key); found {
		e := val.(*entry)
		c.logger.WithFields(logrus.Fields{
			"role": e.inference.Role,
			"age":  time.Since(e.createdAt),
		}).Debug("Inference cache hit")
		return e.inference, true
	}

	return nil, false
}

// Set stores an inference result in cache
func (c *Cache) Set(ctx context.Context, needs, stack string, inf *roles.Inference) error {
	if !c.enabled {
		return nil
	}

	// Check cache size
	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
	}

	key := c.generateKey(needs, stack)
	c.cache.SetDefault(key, &entry{inference: inf, createdAt: time.Now()})
	c.logger.WithField("role", inf.Role).Debug("Inference cached")

	return nil
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Inference cache cleared")
	return nil
}

// generateKey creates a unique cache key
func (c *Cache) generateKey(needs, stack string) string {
	data := fmt.Sprintf("%s\x00%s", needs, stack)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
