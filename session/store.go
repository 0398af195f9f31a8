package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/twipi/twigomoku/game"
)

// ErrNotFound is returned when no game is kept under a key.
var ErrNotFound = errors.New("game not found")

// Config configures a Store.
type Config struct {
	// Expiry is how long a game is kept after it started.
	Expiry time.Duration
	// SweepInterval is how often expired games are removed by Run.
	SweepInterval time.Duration
	// MinSize and MaxSize bound the board size of new games.
	MinSize, MaxSize int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Expiry:        24 * time.Hour,
		SweepInterval: 4 * time.Hour,
		MinSize:       game.WinLength,
		MaxSize:       20,
	}
}

// Validate checks the options against the configured board sizes.
func (c Config) Validate(opts Options) error {
	if opts.Size < c.MinSize || opts.Size > c.MaxSize {
		return fmt.Errorf("%w: board size must be between %d and %d",
			ErrInvalidOptions, c.MinSize, c.MaxSize)
	}
	if opts.First != game.Human && opts.First != game.Computer {
		return fmt.Errorf("%w: first player must be the human or the computer", ErrInvalidOptions)
	}
	return nil
}

// Store keeps the running games, keyed by an arbitrary string such as a
// phone number or a game ID.
type Store struct {
	sessions *xsync.MapOf[string, *Session]
	config   Config
	metrics  *Metrics
	logger   *slog.Logger
}

// NewStore creates a new empty store. If metrics is nil, unregistered
// metrics are used.
func NewStore(config Config, metrics *Metrics, logger *slog.Logger) *Store {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Store{
		sessions: xsync.NewMapOf[string, *Session](),
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Config returns the configuration of the store.
func (s *Store) Config() Config {
	return s.config
}

// Start starts a new game under key, replacing any game already kept there.
// If key is empty, the ID of the new game is used. If the computer moves
// first, it makes its opening move before Start returns.
func (s *Store) Start(key string, opts Options) (sess *Session, overridden bool, err error) {
	if err := s.config.Validate(opts); err != nil {
		return nil, false, err
	}

	g, err := game.NewGame(opts.Size, opts.First)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	now := time.Now()
	sess = &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		game:      g,
		ai:        game.NewAI(game.Computer, nil),
		last:      Turn{Human: game.NoMove, Computer: game.NoMove},
		updatedAt: now,
		metrics:   s.metrics,
	}
	if key == "" {
		key = sess.ID
	}
	sess.Key = key

	if opts.First == game.Computer {
		pos, err := sess.playComputer()
		if err != nil {
			return nil, false, fmt.Errorf("computer failed to open: %w", err)
		}
		sess.last.Computer = pos
	}

	_, overridden = s.sessions.LoadAndStore(key, sess)
	s.metrics.started.Inc()
	s.updateRunning()

	s.logger.Debug(
		"started new game",
		"key", key,
		"game_id", sess.ID,
		"size", opts.Size,
		"first", playerLabel(opts.First),
		"overridden", overridden)

	return sess, overridden, nil
}

// Load returns the game kept under key.
func (s *Store) Load(key string) (*Session, error) {
	sess, ok := s.sessions.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes the game kept under key. It reports whether a game was
// removed.
func (s *Store) Delete(key string) bool {
	_, ok := s.sessions.LoadAndDelete(key)
	s.updateRunning()
	return ok
}

// DeleteSession removes sess from the store, unless its key has been given
// to another game since. It reports whether sess was removed.
func (s *Store) DeleteSession(sess *Session) bool {
	var removed bool
	s.sessions.Compute(sess.Key, func(old *Session, loaded bool) (*Session, bool) {
		removed = loaded && old == sess
		// A missing key must be deleted too, or Compute stores the nil
		// session.
		return old, !loaded || removed
	})
	s.updateRunning()
	return removed
}

// Resign ends the game kept under key as a loss for the human and removes
// it from the store. The final snapshot is returned.
func (s *Store) Resign(key string) (Snapshot, error) {
	sess, err := s.Load(key)
	if err != nil {
		return Snapshot{}, err
	}
	if err := sess.resign(); err != nil {
		return Snapshot{}, err
	}
	s.DeleteSession(sess)
	return sess.Snapshot(), nil
}

// Len returns the number of games kept.
func (s *Store) Len() int {
	return s.sessions.Size()
}

func (s *Store) updateRunning() {
	s.metrics.running.Set(float64(s.sessions.Size()))
}

// Sweep removes every game that started more than the configured expiry
// before now. It returns the number of games removed.
func (s *Store) Sweep(now time.Time) int {
	var n int
	s.sessions.Range(func(key string, sess *Session) bool {
		if sess.StartedAt.Add(s.config.Expiry).Before(now) && s.DeleteSession(sess) {
			s.logger.Debug(
				"game expired, deleting",
				"key", key,
				"game_id", sess.ID,
				"started_at", sess.StartedAt)
			n++
		}
		return true
	})
	return n
}

// Run removes expired games periodically until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.logger.Info(
					"removed expired games",
					"count", n)
			}
		}
	}
}
