// Package game implements a game of five-in-a-row on an N×N board played
// between a human and a computer.
package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Player represents a player. NoPlayer marks an empty cell.
type Player uint8

const (
	NoPlayer Player = iota
	Human
	Computer
)

// String returns the string representation of the player.
func (p Player) String() string {
	switch p {
	case Human:
		return "X"
	case Computer:
		return "O"
	default:
		return " "
	}
}

// Opponent returns the opponent of the player.
func (p Player) Opponent() Player {
	switch p {
	case Human:
		return Computer
	case Computer:
		return Human
	default:
		return NoPlayer
	}
}

// sign returns -1 for the human and +1 for the computer. Scores share the
// same convention: positive favors the computer.
func (p Player) sign() int {
	switch p {
	case Human:
		return -1
	case Computer:
		return +1
	default:
		return 0
	}
}

var (
	// ErrInvalidSize is returned when creating a board with a non-positive
	// size.
	ErrInvalidSize = errors.New("invalid board size")
	// ErrOutOfRange is returned for coordinates outside the board.
	ErrOutOfRange = errors.New("position out of range")
	// ErrInvalidMove is returned when placing a piece on an occupied cell.
	ErrInvalidMove = errors.New("invalid move")
)

// BoardPosition represents a position on the board.
type BoardPosition struct {
	Row, Col int
}

// NoMove is the position returned when there is no move to make.
var NoMove = BoardPosition{Row: -1, Col: -1}

func (p BoardPosition) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

// Board represents a square board. Cells are stored row-major.
type Board struct {
	size  int
	cells []Player
}

// NewBoard creates an empty size×size board.
// Boards smaller than WinLength are allowed but can never be won.
func NewBoard(size int) (*Board, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Board{
		size:  size,
		cells: make([]Player, size*size),
	}, nil
}

// ParseBoard parses a board from its rows, one per line. X is the human, O
// is the computer and '.' or '_' is an empty cell. Whitespace within a row is
// ignored.
func ParseBoard(s string) (*Board, error) {
	var rows [][]Player
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		row := make([]Player, 0, len(line))
		for _, r := range line {
			switch r {
			case 'X', 'x':
				row = append(row, Human)
			case 'O', 'o':
				row = append(row, Computer)
			case '.', '_':
				row = append(row, NoPlayer)
			default:
				return nil, fmt.Errorf("unknown cell %q", r)
			}
		}
		rows = append(rows, row)
	}

	b, err := NewBoard(len(rows))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != b.size {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), b.size)
		}
		copy(b.cells[i*b.size:], row)
	}
	return b, nil
}

// Size returns the length of a side of the board.
func (b *Board) Size() int {
	return b.size
}

// InBounds returns true if the position is on the board.
func (b *Board) InBounds(pos BoardPosition) bool {
	return pos.Row >= 0 && pos.Row < b.size && pos.Col >= 0 && pos.Col < b.size
}

func (b *Board) index(pos BoardPosition) int {
	return pos.Row*b.size + pos.Col
}

// At returns the player at the given position.
// Positions outside the board hold NoPlayer.
func (b *Board) At(pos BoardPosition) Player {
	if !b.InBounds(pos) {
		return NoPlayer
	}
	return b.cells[b.index(pos)]
}

func (b *Board) checkBounds(pos BoardPosition) error {
	if !b.InBounds(pos) {
		return fmt.Errorf("%w: %v on a %dx%d board", ErrOutOfRange, pos, b.size, b.size)
	}
	return nil
}

// IsValidMove returns true if the cell at the given position is empty.
func (b *Board) IsValidMove(pos BoardPosition) (bool, error) {
	if err := b.checkBounds(pos); err != nil {
		return false, err
	}
	return b.cells[b.index(pos)] == NoPlayer, nil
}

// SetMove places a piece for the player at the given position. The board is
// left unchanged if the move is not valid.
func (b *Board) SetMove(pos BoardPosition, p Player) error {
	ok, err := b.IsValidMove(pos)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %v is taken by %v", ErrInvalidMove, pos, b.At(pos))
	}
	if p != Human && p != Computer {
		return fmt.Errorf("%w: no player given", ErrInvalidMove)
	}
	b.cells[b.index(pos)] = p
	return nil
}

// place sets a cell and returns a function restoring it to empty.
func (b *Board) place(pos BoardPosition, p Player) (undo func()) {
	i := b.index(pos)
	b.cells[i] = p
	return func() { b.cells[i] = NoPlayer }
}

// EmptyCells returns all empty positions in row-major order.
func (b *Board) EmptyCells() []BoardPosition {
	var cells []BoardPosition
	for i, c := range b.cells {
		if c == NoPlayer {
			cells = append(cells, BoardPosition{Row: i / b.size, Col: i % b.size})
		}
	}
	return cells
}

// Full returns true if no empty cell is left.
func (b *Board) Full() bool {
	return !slices.Contains(b.cells, NoPlayer)
}

// Clone creates a deep copy of the board.
func (b *Board) Clone() *Board {
	return &Board{
		size:  b.size,
		cells: slices.Clone(b.cells),
	}
}

// Equal returns true if both boards have the same size and cells.
func (b *Board) Equal(other *Board) bool {
	return b.size == other.size && slices.Equal(b.cells, other.cells)
}

// Rows returns a copy of the board as rows of players.
func (b *Board) Rows() [][]Player {
	rows := make([][]Player, b.size)
	for r := range b.size {
		rows[r] = slices.Clone(b.cells[r*b.size : (r+1)*b.size])
	}
	return rows
}

func (b *Board) String() string {
	var s strings.Builder
	s.WriteByte('[')
	for r := range b.size {
		if r > 0 {
			s.WriteByte(' ')
		}

		s.WriteByte('[')
		for c := range b.size {
			if c > 0 {
				s.WriteByte(' ')
			}
			s.WriteString(b.cells[r*b.size+c].String())
		}
		s.WriteString("]")

		if r < b.size-1 {
			s.WriteString("\n")
		} else {
			s.WriteByte(']')
		}
	}
	return s.String()
}
