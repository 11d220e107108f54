package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/internal/stream"
)

// Rejection errors for controller operations. The session state is untouched
// when any of them is returned.
var (
	ErrBusy          = errors.New("session is busy")
	ErrEmptyMessage  = errors.New("message text is empty")
	ErrNoUserMessage = errors.New("no user message to regenerate")
)

// Update describes one observable change to the streaming assistant message.
type Update struct {
	SessionID string `json:"session_id"`
	Fragment  string `json:"fragment,omitempty"`
	Content   string `json:"content"`
	Done      bool   `json:"done"`
	Err       error  `json:"-"`
}

// Observer receives updates as the assistant message grows. The final update
// has Done set; Err carries a stream failure if one occurred.
type Observer func(Update)

// StreamOpener opens the raw token stream for one assistant turn.
type StreamOpener interface {
	OpenStream(ctx context.Context, req models.StreamRequest) (stream.ChunkSource, error)
}

// Store persists session snapshots.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	SaveSession(ctx context.Context, sess *models.ChatSession) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*models.ChatSession, error)
}

// Controller drives one chat session: it owns the message history, the busy
// flag and the cancellation of the in-flight stream. At most one assistant
// message streams at a time.
type Controller struct {
	mu          sync.Mutex
	sess        *models.ChatSession
	opener      StreamOpener
	store       Store
	localizer   *i18n.Localizer
	logger      *logrus.Logger
	maxMessages int

	busy   bool
	cancel context.CancelFunc
	// gen stamps each streaming turn; clear bumps it so a stale turn's
	// appends and finalization no longer touch the session.
	gen uint64
}

// turn carries the state of one streaming assistant turn.
type turn struct {
	ctx     context.Context
	request models.StreamRequest
	target  *models.Message
	gen     uint64
}

// NewController creates a controller over an existing session record. An
// empty history is seeded with the localized greeting.
func NewController(sess *models.ChatSession, opener StreamOpener, store Store, localizer *i18n.Localizer, logger *logrus.Logger, maxMessages int) *Controller {
	c := &Controller{
		sess:        sess,
		opener:      opener,
		store:       store,
		localizer:   localizer,
		logger:      logger,
		maxMessages: maxMessages,
	}
	if len(sess.Messages) == 0 {
		sess.Messages = []models.Message{c.greeting()}
	}
	return c
}

// ID returns the session ID.
func (c *Controller) ID() string {
	return c.sess.ID
}

// Snapshot returns a copy of the session plus the busy flag.
func (c *Controller) Snapshot() (*models.ChatSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone(), c.busy
}

// Send appends the user message and an empty assistant placeholder, then
// streams the response into the placeholder. It rejects blank text and
// concurrent sends. A transport failure becomes a visible error entry on the
// assistant message; cancellation keeps the partial content and is not an
// error.
func (c *Controller) Send(ctx context.Context, text string, observer Observer) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	t, err := c.beginTurnLocked(ctx, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.runTurn(t, observer)
}

// Regenerate truncates the history to everything before the most recent
// user message and re-sends that message's original text.
func (c *Controller) Regenerate(ctx context.Context, observer Observer) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}

	idx := -1
	for i := len(c.sess.Messages) - 1; i >= 0; i-- {
		if c.sess.Messages[i].Role == models.RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return ErrNoUserMessage
	}

	text := c.sess.Messages[idx].Content
	c.sess.Messages = c.sess.Messages[:idx]

	t, err := c.beginTurnLocked(ctx, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.runTurn(t, observer)
}

// Stop raises the cancellation signal of the in-flight stream. It reports
// whether anything was stopped.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy || c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Detach cancels any in-flight stream and marks it stale, so the dying turn
// neither mutates the session nor persists it. Used when the session is
// being removed.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.busy = false
	c.cancel = nil
}

// Clear cancels any in-flight stream and resets the history to a single
// fresh greeting message. Appends from a stream that was still running land
// on the orphaned history and are ignored.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.busy = false
	c.cancel = nil
	c.sess.Messages = []models.Message{c.greeting()}
	c.sess.LastActivity = time.Now()
	snapshot := c.sess.Clone()
	c.mu.Unlock()

	if err := c.store.SaveSession(ctx, snapshot); err != nil {
		c.logger.WithError(err).WithField("session_id", snapshot.ID).Warn("Failed to persist cleared session")
	}
}

// beginTurnLocked appends the user message and placeholder, marks the
// session busy and prepares the stream request. Callers hold the mutex.
func (c *Controller) beginTurnLocked(ctx context.Context, text string) (*turn, error) {
	if c.busy {
		return nil, ErrBusy
	}

	c.sess.Messages = append(c.sess.Messages,
		models.Message{Role: models.RoleUser, Content: text},
		models.Message{Role: models.RoleAssistant},
	)
	c.trimHistoryLocked()
	c.sess.LastActivity = time.Now()

	target := &c.sess.Messages[len(c.sess.Messages)-1]

	// Prior history excludes the placeholder just appended.
	prior := c.sess.Messages[:len(c.sess.Messages)-1]
	request := models.StreamRequest{
		Messages: append([]models.Message(nil), prior...),
		System:   c.sess.Settings.SystemPrompt,
		Provider: c.sess.Settings.Provider,
		Model:    c.sess.Settings.Model,
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	c.gen++

	return &turn{
		ctx:     runCtx,
		request: request,
		target:  target,
		gen:     c.gen,
	}, nil
}

// runTurn opens the stream and aggregates it into the turn's target.
func (c *Controller) runTurn(t *turn, observer Observer) error {
	log := c.logger.WithFields(logrus.Fields{
		"session_id": c.sess.ID,
		"model":      t.request.Model,
	})
	log.Info("Streaming assistant turn")

	src, err := c.opener.OpenStream(t.ctx, t.request)
	if err != nil {
		return c.finishTurn(t, err, observer)
	}

	// The aggregator writes into a private buffer; fragments mirror into
	// the session under the lock so snapshots never race the stream.
	buffer := &models.Message{Role: models.RoleAssistant}
	agg := stream.NewAggregator(src, buffer, func(msg *models.Message, fragment string) {
		c.applyFragment(t, msg.Content)
		if observer != nil {
			observer(Update{
				SessionID: c.sess.ID,
				Fragment:  fragment,
				Content:   msg.Content,
			})
		}
	})

	return c.finishTurn(t, agg.Run(t.ctx), observer)
}

// applyFragment mirrors the accumulated content into the session message
// unless the turn went stale.
func (c *Controller) applyFragment(t *turn, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.gen != c.gen {
		return
	}
	t.target.Content = content
	c.sess.LastActivity = time.Now()
}

// finishTurn resets the busy state, applies the error entry if the stream
// failed, persists the snapshot and emits the final update.
func (c *Controller) finishTurn(t *turn, runErr error, observer Observer) error {
	if errors.Is(runErr, context.Canceled) {
		// stop() and clear() are not failures; partial content stays.
		runErr = nil
	}

	c.mu.Lock()
	current := t.gen == c.gen
	if current {
		c.busy = false
		c.cancel = nil

		if runErr != nil {
			errText := c.localizer.Get(c.sess.Settings.Language, i18n.MsgStreamError, map[string]interface{}{
				"Error": runErr.Error(),
			})
			if t.target.Content == "" {
				t.target.Content = errText
			} else {
				t.target.Content += "\n\n" + errText
			}
		}
		c.sess.LastActivity = time.Now()
	}
	content := t.target.Content
	var snapshot *models.ChatSession
	if current {
		snapshot = c.sess.Clone()
	}
	c.mu.Unlock()

	if !current {
		// The turn was cleared away. Nothing to persist, but its observer
		// still gets the terminal update.
		if observer != nil {
			observer(Update{SessionID: c.sess.ID, Content: content, Done: true, Err: runErr})
		}
		return runErr
	}

	if runErr != nil {
		c.logger.WithError(runErr).WithField("session_id", snapshot.ID).Error("Stream failed")
	}

	saveCtx, cancelSave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSave()
	if err := c.store.SaveSession(saveCtx, snapshot); err != nil {
		c.logger.WithError(err).WithField("session_id", snapshot.ID).Warn("Failed to persist session")
	}

	if observer != nil {
		observer(Update{
			SessionID: snapshot.ID,
			Content:   content,
			Done:      true,
			Err:       runErr,
		})
	}

	return runErr
}

// trimHistoryLocked caps the history length, dropping the oldest messages.
func (c *Controller) trimHistoryLocked() {
	if c.maxMessages < 2 {
		return
	}
	if over := len(c.sess.Messages) - c.maxMessages; over > 0 {
		c.sess.Messages = append([]models.Message(nil), c.sess.Messages[over:]...)
	}
}

func (c *Controller) greeting() models.Message {
	return models.Message{
		Role:    models.RoleAssistant,
		Content: c.localizer.Get(c.sess.Settings.Language, i18n.MsgGreeting, nil),
	}
}
