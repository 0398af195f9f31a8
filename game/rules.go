package game

// WinLength is the number of pieces in a line needed to win.
const WinLength = 5

// Outcome is the state of a game from the point of view of the rules.
type Outcome uint8

const (
	InProgress Outcome = iota
	HumanWin
	ComputerWin
	Draw
)

func (o Outcome) String() string {
	switch o {
	case HumanWin:
		return "human wins"
	case ComputerWin:
		return "computer wins"
	case Draw:
		return "draw"
	default:
		return "in progress"
	}
}

// Ended returns true if the outcome is final.
func (o Outcome) Ended() bool {
	return o != InProgress
}

// directions are the four axes a line can run along. The reversed
// directions are covered by starting from the other end of the line.
var directions = [4]BoardPosition{
	{0, 1},  // right
	{1, 0},  // down
	{1, 1},  // down-right
	{1, -1}, // down-left
}

// Wins returns true if the player has WinLength pieces in a row, column or
// diagonal.
func Wins(b *Board, p Player) bool {
	if p == NoPlayer {
		return false
	}

	// No line can start before the first piece of the player in row-major
	// order, since every cell of a line holds that player.
	first := -1
	for i, c := range b.cells {
		if c == p {
			first = i
			break
		}
	}
	if first == -1 {
		return false
	}

	for i := first; i < len(b.cells); i++ {
		if b.cells[i] != p {
			continue
		}
		start := BoardPosition{Row: i / b.size, Col: i % b.size}
		for _, d := range directions {
			if lineOf(b, start, d, p) {
				return true
			}
		}
	}
	return false
}

func lineOf(b *Board, start, d BoardPosition, p Player) bool {
	for k := 1; k < WinLength; k++ {
		pos := BoardPosition{Row: start.Row + k*d.Row, Col: start.Col + k*d.Col}
		if !b.InBounds(pos) || b.cells[b.index(pos)] != p {
			return false
		}
	}
	return true
}

// Evaluate scores the board: +1 if the computer has a winning line, -1 if
// the human has one and 0 otherwise.
func Evaluate(b *Board) int {
	switch {
	case Wins(b, Computer):
		return Computer.sign()
	case Wins(b, Human):
		return Human.sign()
	default:
		return 0
	}
}

// IsGameOver returns true if either player has a winning line.
func IsGameOver(b *Board) bool {
	return Wins(b, Human) || Wins(b, Computer)
}

// Result returns the outcome of the board.
func Result(b *Board) Outcome {
	switch {
	case Wins(b, Human):
		return HumanWin
	case Wins(b, Computer):
		return ComputerWin
	case b.Full():
		return Draw
	default:
		return InProgress
	}
}
