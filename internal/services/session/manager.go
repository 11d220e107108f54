package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/pkg/logger"
)

// ErrNotFound is returned when no session exists for the requested ID.
var ErrNotFound = errors.New("session not found")

// Manager owns the live controllers and revives stored sessions on demand.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	opener      StreamOpener
	store       Store
	localizer   *i18n.Localizer
	logger      *logrus.Logger
	maxMessages int
}

// NewManager creates a session manager.
func NewManager(opener StreamOpener, store Store, localizer *i18n.Localizer, logger *logrus.Logger, maxMessages int) *Manager {
	return &Manager{
		controllers: make(map[string]*Controller),
		opener:      opener,
		store:       store,
		localizer:   localizer,
		logger:      logger,
		maxMessages: maxMessages,
	}
}

// Create starts a new session with the given settings and persists it.
func (m *Manager) Create(ctx context.Context, settings models.SessionSettings) (*Controller, error) {
	sess := &models.ChatSession{
		ID:           uuid.NewString(),
		Settings:     settings,
		LastActivity: time.Now(),
	}
	ctrl := NewController(sess, m.opener, m.store, m.localizer, m.logger, m.maxMessages)

	m.mu.Lock()
	m.controllers[sess.ID] = ctrl
	m.mu.Unlock()

	snapshot, _ := ctrl.Snapshot()
	if err := m.store.SaveSession(ctx, snapshot); err != nil {
		logger.WithSession(m.logger, sess.ID).WithError(err).Warn("Failed to persist new session")
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"provider":   settings.Provider,
		"model":      settings.Model,
	}).Info("Session created")

	return ctrl, nil
}

// Get returns the controller for the session, reviving it from storage if
// it is not live yet.
func (m *Manager) Get(ctx context.Context, id string) (*Controller, error) {
	m.mu.Lock()
	if ctrl, ok := m.controllers[id]; ok {
		m.mu.Unlock()
		return ctrl, nil
	}
	m.mu.Unlock()

	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}

	ctrl := NewController(sess, m.opener, m.store, m.localizer, m.logger, m.maxMessages)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have revived it first.
	if existing, ok := m.controllers[id]; ok {
		return existing, nil
	}
	m.controllers[id] = ctrl
	logger.WithSession(m.logger, id).Debug("Session revived from storage")
	return ctrl, nil
}

// Delete stops any in-flight stream and removes the session from the
// registry and storage.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	ctrl, ok := m.controllers[id]
	delete(m.controllers, id)
	m.mu.Unlock()

	if ok {
		// Detach rather than stop: a stopped turn would still persist its
		// snapshot and resurrect the record we are about to delete.
		ctrl.Detach()
	} else {
		// Not live; confirm it exists in storage at all.
		sess, err := m.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return ErrNotFound
		}
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}

	logger.WithSession(m.logger, id).Info("Session deleted")
	return nil
}

// List returns snapshots of all sessions, live ones taking precedence over
// stored records, sorted by last activity descending.
func (m *Manager) List(ctx context.Context) ([]*models.ChatSession, error) {
	stored, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.ChatSession, len(stored))
	for _, sess := range stored {
		byID[sess.ID] = sess
	}

	m.mu.Lock()
	for id, ctrl := range m.controllers {
		snapshot, _ := ctrl.Snapshot()
		byID[id] = snapshot
	}
	m.mu.Unlock()

	sessions := make([]*models.ChatSession, 0, len(byID))
	for _, sess := range byID {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})
	return sessions, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
