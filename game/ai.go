package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrGameOver is returned when a move is requested on a finished game.
	ErrGameOver = errors.New("game is over")
	// ErrInvalidPlayer is returned when a move is requested for a player
	// that is neither the human nor the computer.
	ErrInvalidPlayer = errors.New("invalid player")
)

// SearchResult is the best move found by Minimax and its score.
type SearchResult struct {
	Move  BoardPosition
	Score int
}

// Minimax returns the best move for p assuming both players play optimally
// for depth more plies or until the game ends. The computer maximizes the
// score and the human minimizes it; ties keep the first move found in
// row-major order.
//
// The board is used as scratch space: every tentative piece is removed
// before Minimax returns, so only one search may run on a board at a time.
// NoPlayer has no moves to search.
func Minimax(b *Board, depth int, p Player) SearchResult {
	empty := b.EmptyCells()
	if depth == 0 || len(empty) == 0 || p.sign() == 0 || IsGameOver(b) {
		return SearchResult{Move: NoMove, Score: Evaluate(b)}
	}

	best := SearchResult{Move: NoMove, Score: math.MaxInt}
	if p.sign() > 0 {
		best.Score = math.MinInt
	}

	for _, pos := range empty {
		score := tryMove(b, pos, p, func() int {
			return Minimax(b, depth-1, p.Opponent()).Score
		})
		if p.sign() > 0 && score > best.Score || p.sign() < 0 && score < best.Score {
			best = SearchResult{Move: pos, Score: score}
		}
	}

	return best
}

// tryMove places p at pos for the duration of fn.
func tryMove(b *Board, pos BoardPosition, p Player, fn func() int) int {
	undo := b.place(pos, p)
	defer undo()
	return fn()
}

// AI represents an AI player.
// The AI is implemented using the minimax algorithm.
type AI struct {
	player Player
	rng    *rand.Rand
}

// NewAI creates a new AI player. If rng is nil, the global random source is
// used for the opening move.
func NewAI(p Player, rng *rand.Rand) *AI {
	return &AI{player: p, rng: rng}
}

// Player returns the player the AI moves for.
func (a *AI) Player() Player {
	return a.player
}

// ChooseMove returns the move the AI should make on the board. The board is
// searched to the end of the game, except on an empty board where a random
// cell is picked.
func (a *AI) ChooseMove(b *Board) (BoardPosition, error) {
	if a.player != Human && a.player != Computer {
		return NoMove, fmt.Errorf("%w %d", ErrInvalidPlayer, a.player)
	}

	empty := b.EmptyCells()
	if len(empty) == 0 || IsGameOver(b) {
		return NoMove, ErrGameOver
	}

	if len(empty) == b.size*b.size {
		return empty[a.intN(len(empty))], nil
	}

	return Minimax(b, len(empty), a.player).Move, nil
}

func (a *AI) intN(n int) int {
	if a.rng == nil {
		return rand.IntN(n)
	}
	return a.rng.IntN(n)
}

// ChooseComputerMove returns the computer's move on the board.
func ChooseComputerMove(b *Board) (BoardPosition, error) {
	return NewAI(Computer, nil).ChooseMove(b)
}
