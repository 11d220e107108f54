package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/models"
)

// Storage interface defines session persistence operations
type Storage interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	SaveSession(ctx context.Context, sess *models.ChatSession) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*models.ChatSession, error)

	// Cleanup operations
	CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error
}

// Manager manages different storage backends
type Manager struct {
	storage     Storage
	logger      *logrus.Logger
	redisClient *redis.Client // Store redis client reference
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	manager := &Manager{
		logger: logger,
	}

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
		// Store redis client reference
		manager.redisClient = redisStorage.client
	case "memory":
		storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	manager.storage = storage

	// Start cleanup goroutine
	go manager.startCleanup(cfg.Storage.Memory.CleanupInterval, cfg.Storage.Memory.DefaultExpiration)

	return manager, nil
}

func (m *Manager) startCleanup(interval, expiration time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.storage.CleanupExpiredSessions(ctx, expiration); err != nil {
			m.logger.WithError(err).Error("Failed to cleanup expired sessions")
		}
		cancel()
	}
}

// Delegate methods to underlying storage
func (m *Manager) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	return m.storage.GetSession(ctx, id)
}

func (m *Manager) SaveSession(ctx context.Context, sess *models.ChatSession) error {
	return m.storage.SaveSession(ctx, sess)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	return m.storage.DeleteSession(ctx, id)
}

func (m *Manager) ListSessions(ctx context.Context) ([]*models.ChatSession, error) {
	return m.storage.ListSessions(ctx)
}

// GetRedisClient returns the Redis client if available
func (m *Manager) GetRedisClient() *redis.Client {
	return m.redisClient
}

// RedisStorage implements storage using Redis
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisStorage) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	key := fmt.Sprintf("session:%s", id)
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess models.ChatSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}

	return &sess, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, sess *models.ChatSession) error {
	key := fmt.Sprintf("session:%s", sess.ID)
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, 24*time.Hour).Err()
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id string) error {
	key := fmt.Sprintf("session:%s", id)
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStorage) ListSessions(ctx context.Context) ([]*models.ChatSession, error) {
	var sessions []*models.ChatSession

	iter := r.client.Scan(ctx, 0, "session:*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var sess models.ChatSession
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			r.logger.WithError(err).WithField("key", iter.Val()).Warn("Skipping malformed session record")
			continue
		}
		sessions = append(sessions, &sess)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *RedisStorage) CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error {
	// Redis handles expiration automatically
	return nil
}

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	sessions *cache.Cache
	logger   *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		sessions: cache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		logger:   logger,
	}
}

func (m *MemoryStorage) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	key := fmt.Sprintf("session:%s", id)
	if val, found := m.sessions.Get(key); found {
		return val.(*models.ChatSession), nil
	}
	return nil, nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, sess *models.ChatSession) error {
	key := fmt.Sprintf("session:%s", sess.ID)
	m.sessions.SetDefault(key, sess)
	return nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, id string) error {
	key := fmt.Sprintf("session:%s", id)
	m.sessions.Delete(key)
	return nil
}

func (m *MemoryStorage) ListSessions(ctx context.Context) ([]*models.ChatSession, error) {
	items := m.sessions.Items()
	sessions := make([]*models.ChatSession, 0, len(items))
	for _, item := range items {
		if sess, ok := item.Object.(*models.ChatSession); ok {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

func (m *MemoryStorage) CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error {
	// go-cache handles cleanup automatically
	return nil
}
