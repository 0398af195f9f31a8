// Command gomoku plays five-in-a-row against the computer in the terminal.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/twipi/twigomoku/game"
)

var (
	boardSize = 5
	mark      = "X"
	aiFirst   = false
	seed      = uint64(0)
	noClear   = false
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

func init() {
	pflag.IntVarP(&boardSize, "size", "s", boardSize, "board size, between 5 and 20")
	pflag.StringVarP(&mark, "mark", "m", mark, "your mark, X or O")
	pflag.BoolVar(&aiFirst, "ai-first", aiFirst, "let the computer move first")
	pflag.Uint64Var(&seed, "seed", seed, "random seed for the computer's opening, 0 for a random one")
	pflag.BoolVar(&noClear, "no-clear", noClear, "do not clear the screen between turns")
}

func main() {
	pflag.Parse()
	logger := slog.Default()

	if boardSize < game.WinLength || boardSize > 20 {
		logger.Error(
			"invalid board size",
			"size", boardSize)
		os.Exit(2)
	}

	marks, err := newMarks(mark)
	if err != nil {
		logger.Error(
			"invalid mark",
			"err", err)
		os.Exit(2)
	}

	first := game.Human
	if aiFirst {
		first = game.Computer
	}

	g, err := game.NewGame(boardSize, first)
	if err != nil {
		logger.Error(
			"failed to create game",
			"err", err)
		os.Exit(1)
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	p := player{
		game:  g,
		ai:    game.NewAI(game.Computer, rng),
		marks: marks,
		in:    bufio.NewScanner(os.Stdin),
		out:   os.Stdout,
		clear: !noClear,
	}
	if err := p.play(); err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Println("Bye")
			return
		}
		logger.Error(
			"game failed",
			"err", err)
		os.Exit(1)
	}
}

type marks map[game.Player]string

func newMarks(human string) (marks, error) {
	switch strings.ToUpper(human) {
	case "X":
		return marks{game.Human: "X", game.Computer: "O", game.NoPlayer: " "}, nil
	case "O":
		return marks{game.Human: "O", game.Computer: "X", game.NoPlayer: " "}, nil
	default:
		return nil, fmt.Errorf("mark must be X or O, got %q", human)
	}
}

type player struct {
	game  *game.Game
	ai    *game.AI
	marks marks
	in    *bufio.Scanner
	out   io.Writer
	clear bool
	// status is shown under the board on the next redraw.
	status string
}

func (p *player) play() error {
	for !p.game.Ended() {
		turn := p.game.Turn()
		p.redraw(fmt.Sprintf("%s turn [%s]", turnName(turn), p.marks[turn]))

		switch turn {
		case game.Computer:
			pos, err := p.game.PlayAI(p.ai)
			if err != nil {
				return fmt.Errorf("computer failed to move: %w", err)
			}
			p.status = fmt.Sprintf("Computer placed at %d %d", pos.Row+1, pos.Col+1)
		case game.Human:
			if err := p.humanTurn(); err != nil {
				return err
			}
		}
	}

	p.redraw("Game over")
	switch p.game.Result() {
	case game.HumanWin:
		fmt.Fprintln(p.out, "YOU WIN!")
	case game.ComputerWin:
		fmt.Fprintln(p.out, "YOU LOSE!")
	default:
		fmt.Fprintln(p.out, "DRAW!")
	}
	return nil
}

func (p *player) humanTurn() error {
	for {
		fmt.Fprintf(p.out, "Your move as \"row column\" (1-%d): ", p.game.Size())
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return err
			}
			return io.EOF
		}

		pos, err := parseMove(p.in.Text())
		if err != nil {
			fmt.Fprintln(p.out, "Bad choice")
			continue
		}

		switch err := p.game.Play(game.Human, pos); {
		case err == nil:
			return nil
		case errors.Is(err, game.ErrOutOfRange):
			fmt.Fprintln(p.out, "Bad choice")
		case errors.Is(err, game.ErrInvalidMove):
			fmt.Fprintln(p.out, "Bad move")
		default:
			return err
		}
	}
}

// parseMove parses a 1-based "row column" pair.
func parseMove(s string) (game.BoardPosition, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fields) != 2 {
		return game.NoMove, fmt.Errorf("expected 2 numbers, got %d", len(fields))
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return game.NoMove, err
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return game.NoMove, err
	}
	return game.BoardPosition{Row: row - 1, Col: col - 1}, nil
}

func (p *player) redraw(header string) {
	if p.clear {
		io.WriteString(p.out, clearScreen)
	}
	fmt.Fprintf(p.out, "\n%s\n", header)
	p.render()
	if p.status != "" {
		fmt.Fprintln(p.out, p.status)
		p.status = ""
	}
}

func (p *player) render() {
	line := strings.Repeat("-", 5*p.game.Size())
	fmt.Fprintln(p.out, line)
	for _, row := range p.game.Rows() {
		for _, cell := range row {
			fmt.Fprintf(p.out, "| %s |", p.marks[cell])
		}
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, line)
	}
}

func turnName(p game.Player) string {
	if p == game.Computer {
		return "Computer"
	}
	return "Human"
}
