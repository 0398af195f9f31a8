package game

import (
	"errors"
	"fmt"
)

// ErrNotYourTurn is returned when a player moves out of turn.
var ErrNotYourTurn = errors.New("not your turn")

// Game represents a game of five-in-a-row.
type Game struct {
	*Board
	// First is the player who made the first move.
	First Player
	Turns int
}

// NewGame creates a new game on a size×size board.
func NewGame(size int, first Player) (*Game, error) {
	if first != Human && first != Computer {
		return nil, fmt.Errorf("%w %d to move first", ErrInvalidPlayer, first)
	}
	b, err := NewBoard(size)
	if err != nil {
		return nil, err
	}
	return &Game{Board: b, First: first}, nil
}

func (g *Game) String() string {
	return fmt.Sprintf("turn %d:\n%s", g.Turns, g.Board)
}

// Turn returns the current player.
func (g *Game) Turn() Player {
	if g.Turns%2 == 0 {
		return g.First
	}
	return g.First.Opponent()
}

// Result returns the outcome of the game so far.
func (g *Game) Result() Outcome {
	return Result(g.Board)
}

// Ended returns true if the game is over.
func (g *Game) Ended() bool {
	return g.Result().Ended()
}

// MakeMove makes a move for the current player at the given position.
func (g *Game) MakeMove(pos BoardPosition) error {
	if g.Ended() {
		return ErrGameOver
	}
	if err := g.Board.SetMove(pos, g.Turn()); err != nil {
		return err
	}
	g.Turns++
	return nil
}

// Play makes a move for p, which must be the current player.
func (g *Game) Play(p Player, pos BoardPosition) error {
	if g.Turn() != p {
		return fmt.Errorf("%w: %v to move", ErrNotYourTurn, g.Turn())
	}
	return g.MakeMove(pos)
}

// PlayAI lets the AI make its move if it is its turn.
func (g *Game) PlayAI(a *AI) (BoardPosition, error) {
	if g.Ended() {
		return NoMove, ErrGameOver
	}
	if g.Turn() != a.Player() {
		return NoMove, fmt.Errorf("%w: %v to move", ErrNotYourTurn, g.Turn())
	}
	pos, err := a.ChooseMove(g.Board)
	if err != nil {
		return NoMove, err
	}
	if err := g.Play(a.Player(), pos); err != nil {
		return NoMove, err
	}
	return pos, nil
}
