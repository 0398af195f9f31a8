// Package session keeps track of running games and plays the computer's
// replies.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twipi/twigomoku/game"
)

// ErrInvalidOptions is returned when starting a game with bad options.
var ErrInvalidOptions = errors.New("invalid game options")

// Options configures a new game.
type Options struct {
	// Size is the length of a side of the board.
	Size int
	// First is the player who moves first.
	First game.Player
}

// Turn describes a round of play: the human's move and the computer's reply.
type Turn struct {
	Human    game.BoardPosition
	Computer game.BoardPosition
	Outcome  game.Outcome
}

// Snapshot is a copy of the state of a game.
type Snapshot struct {
	ID       string
	Board    *game.Board
	Turn     game.Player
	Turns    int
	Outcome  game.Outcome
	Resigned bool
	Last     Turn
}

// Session is a running game between a human and the computer.
// A session serializes all moves on its game, so that at most one search
// runs on its board at a time.
type Session struct {
	ID        string
	Key       string
	StartedAt time.Time

	mu        sync.Mutex
	game      *game.Game
	ai        *game.AI
	last      Turn
	resigned  bool
	updatedAt time.Time
	metrics   *Metrics
}

// Snapshot returns a copy of the current state of the game.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID,
		Board:    s.game.Board.Clone(),
		Turn:     s.game.Turn(),
		Turns:    s.game.Turns,
		Outcome:  s.outcome(),
		Resigned: s.resigned,
		Last:     s.last,
	}
}

func (s *Session) outcome() game.Outcome {
	if s.resigned {
		return game.ComputerWin
	}
	return s.game.Result()
}

// UpdatedAt returns the time of the last move.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Place places the human's piece at pos, then lets the computer reply
// unless the game has ended.
func (s *Session) Place(pos game.BoardPosition) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome().Ended() {
		return Turn{}, game.ErrGameOver
	}
	if err := s.game.Play(game.Human, pos); err != nil {
		return Turn{}, err
	}
	s.metrics.observeMove(game.Human)
	s.updatedAt = time.Now()

	turn := Turn{Human: pos, Computer: game.NoMove}
	if !s.game.Ended() {
		reply, err := s.playComputer()
		if err != nil {
			return Turn{}, fmt.Errorf("computer failed to reply: %w", err)
		}
		turn.Computer = reply
	}

	turn.Outcome = s.game.Result()
	if turn.Outcome.Ended() {
		s.metrics.observeFinished(turn.Outcome)
	}

	s.last = turn
	return turn, nil
}

func (s *Session) playComputer() (game.BoardPosition, error) {
	start := time.Now()
	pos, err := s.game.PlayAI(s.ai)
	if err != nil {
		return game.NoMove, err
	}
	s.metrics.observeSearch(time.Since(start))
	s.metrics.observeMove(game.Computer)
	s.updatedAt = time.Now()
	return pos, nil
}

// resign ends the game in favor of the computer.
func (s *Session) resign() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome().Ended() {
		return game.ErrGameOver
	}
	s.resigned = true
	s.updatedAt = time.Now()
	s.metrics.observeFinished(game.ComputerWin)
	return nil
}
