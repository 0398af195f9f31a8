package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/twipi/twigomoku/game"
	"github.com/twipi/twigomoku/session"
	"github.com/twipi/twipi/proto/out/twicmdproto"
	"github.com/twipi/twipi/proto/out/twismsproto"
	"github.com/twipi/twipi/twicmd"
	"github.com/twipi/twipi/twicmd/slashparser"
)

const (
	testUser = "+15550001"
	testBot  = "+15559999"
)

func newTestService(t *testing.T) (*Service, <-chan *twismsproto.Message) {
	t.Helper()

	config := session.DefaultConfig()
	config.MinSize = 3
	store := session.NewStore(config, nil, slog.Default())
	svc := NewService(store, session.Options{Size: 3, First: game.Human}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	replies := make(chan *twismsproto.Message, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-svc.sendCh:
				replies <- msg
			}
		}
	}()

	return svc, replies
}

func nextReply(t *testing.T, replies <-chan *twismsproto.Message) string {
	t.Helper()

	select {
	case msg := <-replies:
		if msg.To != testUser {
			t.Errorf("reply sent to %q, expected %q", msg.To, testUser)
		}
		return msg.Body.Text.Text
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a reply")
		return ""
	}
}

func noReply(t *testing.T, replies <-chan *twismsproto.Message) {
	t.Helper()

	select {
	case msg := <-replies:
		t.Errorf("unexpected reply: %q", msg.Body.Text.Text)
	default:
	}
}

func execute(t *testing.T, svc *Service, command string, args ...string) *twicmdproto.ExecuteResponse {
	t.Helper()

	req := &twicmdproto.ExecuteRequest{
		Command: &twicmdproto.Command{
			Service: "gomoku",
			Command: command,
		},
		Message: &twismsproto.Message{From: testUser, To: testBot},
	}
	for i := 0; i+1 < len(args); i += 2 {
		req.Command.Arguments = append(req.Command.Arguments, &twicmdproto.CommandArgument{
			Name:  args[i],
			Value: args[i+1],
		})
	}

	resp, err := svc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", command, err)
	}
	return resp
}

func assertStatus(t *testing.T, resp *twicmdproto.ExecuteResponse, want string) {
	t.Helper()

	status, ok := resp.GetResponse().(*twicmdproto.ExecuteResponse_Status)
	if !ok {
		t.Fatalf("expected a status response, got %v", resp)
	}
	if status.Status != want {
		t.Errorf("expected status %q, got %q", want, status.Status)
	}
}

func assertText(t *testing.T, resp *twicmdproto.ExecuteResponse, want string) {
	t.Helper()

	text, ok := resp.GetResponse().(*twicmdproto.ExecuteResponse_Text)
	if !ok {
		t.Fatalf("expected a text response, got %v", resp)
	}
	if text.Text != want {
		t.Errorf("expected text %q, got %q", want, text.Text)
	}
}

func TestServiceCommands(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	lookup := twicmd.NewServiceLookup()
	lookup.Register(svc)

	for _, name := range []string{"start", "place", "board", "resign"} {
		if _, err := lookup.LookupCommand(ctx, "gomoku", name); err != nil {
			t.Errorf("command %q: %v", name, err)
		}
	}

	tests := []struct {
		text    string
		command string
		args    map[string]string
		err     bool
	}{
		{"/gomoku place 3 4", "place", map[string]string{"row": "3", "column": "4"}, false},
		{"/gomoku start", "start", map[string]string{}, false},
		{"/gomoku start size=7 first=ai", "start", map[string]string{"size": "7", "first": "ai"}, false},
		{"/gomoku board", "board", map[string]string{}, false},
		{"/gomoku resign", "resign", map[string]string{}, false},
		{"/gomoku place 3", "", nil, true},
		{"/gomoku place a b", "", nil, true},
		{"/gomoku start size=big", "", nil, true},
		{"/gomoku undo", "", nil, true},
	}

	parser := slashparser.NewParser()
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			cmd, err := parser.Parse(ctx, lookup, &twismsproto.MessageBody{
				Text: &twismsproto.TextBody{Text: test.text},
			})
			if test.err {
				if err == nil {
					t.Errorf("expected an error, got %v", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cmd.Service != "gomoku" || cmd.Command != test.command {
				t.Errorf("expected gomoku %s, got %s %s", test.command, cmd.Service, cmd.Command)
			}

			args := twicmd.MapArguments(cmd.Arguments)
			if len(args) != len(test.args) {
				t.Errorf("expected arguments %v, got %v", test.args, args)
			}
			for k, v := range test.args {
				if args[k] != v {
					t.Errorf("argument %q: expected %q, got %q", k, v, args[k])
				}
			}
		})
	}
}

func TestServiceExecute(t *testing.T) {
	svc, replies := newTestService(t)

	resp := execute(t, svc, "place", "row", "1", "column", "1")
	assertStatus(t, resp, "No game found. Please start a new game.")
	noReply(t, replies)

	if resp := execute(t, svc, "start", "size", "3"); resp != nil {
		t.Errorf("unexpected start response: %v", resp)
	}
	if msg := nextReply(t, replies); msg != "A new game has started. It is now your turn." {
		t.Errorf("unexpected start message: %q", msg)
	}
	if board := nextReply(t, replies); board != drawBoard("", mustParseBoard(t, "...\n...\n...")) {
		t.Errorf("unexpected start board:\n%s", board)
	}

	if resp := execute(t, svc, "place", "row", "2", "column", "2"); resp != nil {
		t.Errorf("unexpected place response: %v", resp)
	}
	placed := nextReply(t, replies)
	if !strings.HasPrefix(placed, "You placed at 2,2. In return, the AI placed at ") {
		t.Errorf("unexpected place message:\n%s", placed)
	}
	t.Log("after placing:\n" + placed)

	resp = execute(t, svc, "place", "row", "2", "column", "2")
	assertStatus(t, resp, "Invalid move. That cell is already taken.")

	resp = execute(t, svc, "place", "row", "4", "column", "1")
	assertStatus(t, resp, "Invalid position. That cell is outside of the board.")

	resp = execute(t, svc, "place", "row", "two", "column", "1")
	assertStatus(t, resp, "Invalid position. Please provide a row and a column number.")
	noReply(t, replies)

	if resp := execute(t, svc, "board"); resp != nil {
		t.Errorf("unexpected board response: %v", resp)
	}
	board := nextReply(t, replies)
	// One piece each, plus the legend.
	if n := strings.Count(board, playerUnicode[game.Human]); n != 2 {
		t.Errorf("expected 1 human piece on the board, got %d:\n%s", n-1, board)
	}
	if n := strings.Count(board, playerUnicode[game.Computer]); n != 2 {
		t.Errorf("expected 1 AI piece on the board, got %d:\n%s", n-1, board)
	}

	if resp := execute(t, svc, "start", "size", "3", "first", "ai"); resp != nil {
		t.Errorf("unexpected start response: %v", resp)
	}
	if msg := nextReply(t, replies); msg != "An existing game was overridden. A new game has started. The AI opened, it is now your turn." {
		t.Errorf("unexpected start message: %q", msg)
	}
	if board := nextReply(t, replies); strings.Count(board, playerUnicode[game.Computer]) != 2 {
		t.Errorf("expected the AI to have opened:\n%s", board)
	}

	resp = execute(t, svc, "resign")
	assertText(t, resp, "The game is over. ⚫ wins!")
	if svc.store.Len() != 0 {
		t.Errorf("expected the resigned game to be removed, got %d games", svc.store.Len())
	}

	resp = execute(t, svc, "resign")
	assertStatus(t, resp, "No game found. Please start a new game.")
	resp = execute(t, svc, "board")
	assertStatus(t, resp, "No game found. Please start a new game.")

	resp = execute(t, svc, "start", "size", "2")
	assertStatus(t, resp, "Invalid game options: board size must be between 3 and 20")
	resp = execute(t, svc, "start", "first", "nobody")
	assertStatus(t, resp, `Invalid first player "nobody". Please answer "me" or "ai".`)
	noReply(t, replies)

	req := &twicmdproto.ExecuteRequest{
		Command: &twicmdproto.Command{Service: "gomoku", Command: "undo"},
		Message: &twismsproto.Message{From: testUser, To: testBot},
	}
	if _, err := svc.Execute(context.Background(), req); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func TestServicePlayToDraw(t *testing.T) {
	svc, replies := newTestService(t)

	execute(t, svc, "start")
	nextReply(t, replies)
	nextReply(t, replies)

	// Nobody can line up five on a 3×3 board, so the game ends in a draw
	// once the human fills the last cell.
	for i := 0; ; i++ {
		if i > 5 {
			t.Fatal("game did not end")
		}

		sess, err := svc.store.Load(testUser)
		if err != nil {
			t.Fatalf("game disappeared early: %v", err)
		}
		pos := sess.Snapshot().Board.EmptyCells()[0]

		resp := execute(t, svc, "place",
			"row", fmt.Sprint(pos.Row+1),
			"column", fmt.Sprint(pos.Col+1))
		t.Log(nextReply(t, replies))

		if resp != nil {
			assertText(t, resp, "The game is over. It's a draw!")
			break
		}
	}

	if _, err := svc.store.Load(testUser); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected the finished game to be removed, got %v", err)
	}
}

func mustParseBoard(t *testing.T, s string) *game.Board {
	t.Helper()

	b, err := game.ParseBoard(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestParseStartArgs(t *testing.T) {
	defaults := session.Options{Size: 5, First: game.Human}

	tests := []struct {
		args map[string]string
		want session.Options
		err  bool
	}{
		{map[string]string{}, defaults, false},
		{map[string]string{"size": "7"}, session.Options{Size: 7, First: game.Human}, false},
		{map[string]string{"first": "AI"}, session.Options{Size: 5, First: game.Computer}, false},
		{map[string]string{"size": "6", "first": "me"}, session.Options{Size: 6, First: game.Human}, false},
		{map[string]string{"size": "six"}, defaults, true},
		{map[string]string{"first": "nobody"}, defaults, true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprint(test.args), func(t *testing.T) {
			opts, err := parseStartArgs(test.args, defaults)
			if test.err {
				if err == nil {
					t.Errorf("expected an error, got %+v", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts != test.want {
				t.Errorf("expected %+v, got %+v", test.want, opts)
			}
		})
	}
}

func TestParsePlaceArgs(t *testing.T) {
	pos, err := parsePlaceArgs(map[string]string{"row": "1", "column": "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != (game.BoardPosition{Row: 0, Col: 4}) {
		t.Errorf("expected (0, 4), got %v", pos)
	}

	for _, args := range []map[string]string{
		{},
		{"row": "1"},
		{"row": "a", "column": "2"},
	} {
		if _, err := parsePlaceArgs(args); err == nil {
			t.Errorf("parsePlaceArgs(%v): expected an error", args)
		}
	}
}

func TestDrawBoard(t *testing.T) {
	b, err := game.ParseBoard("X..\n.O.\n...")
	if err != nil {
		t.Fatal(err)
	}

	const want = "You placed at 1,1.\n\n" +
		"❌⬜⬜\n" +
		"⬜⚫⬜\n" +
		"⬜⬜⬜\n" +
		"❌ is your piece.\n" +
		"⚫ is the AI's piece."

	got := drawBoard("You placed at 1,1.", b)
	if got != want {
		t.Errorf("unexpected board message:\n%s", got)
	}
}

func TestPlacedMessage(t *testing.T) {
	msg := placedMessage(session.Turn{
		Human:    game.BoardPosition{Row: 0, Col: 0},
		Computer: game.BoardPosition{Row: 1, Col: 2},
	})
	if want := "You placed at 1,1. In return, the AI placed at 2,3."; msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}

	msg = placedMessage(session.Turn{
		Human:    game.BoardPosition{Row: 4, Col: 4},
		Computer: game.NoMove,
	})
	if want := "You placed at 5,5."; msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: (9, 9)", game.ErrOutOfRange), "Invalid position. That cell is outside of the board."},
		{game.ErrInvalidMove, "Invalid move. That cell is already taken."},
		{game.ErrGameOver, "The game is already over. Please start a new game."},
		{session.ErrNotFound, "No game found. Please start a new game."},
		{fmt.Errorf("%w: board size must be between 5 and 20", session.ErrInvalidOptions), "Invalid game options: board size must be between 5 and 20"},
		{errors.New("boom"), "Something went wrong. Please try again."},
	}
	for _, test := range tests {
		if got := describeError(test.err); got != test.want {
			t.Errorf("describeError(%v): expected %q, got %q", test.err, test.want, got)
		}
	}
}
