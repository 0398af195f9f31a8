package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "embed"

	"github.com/twipi/pubsub"
	"github.com/twipi/twigomoku/game"
	"github.com/twipi/twigomoku/session"
	"github.com/twipi/twipi/proto/out/twicmdproto"
	"github.com/twipi/twipi/proto/out/twismsproto"
	"github.com/twipi/twipi/twicmd"
	"github.com/twipi/twipi/twisms"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/prototext"
)

//go:embed service.txtpb
var servicePrototext []byte

var service = (func() *twicmdproto.Service {
	service := new(twicmdproto.Service)
	if err := prototext.Unmarshal(servicePrototext, service); err != nil {
		panic(fmt.Sprintf("failed to unmarshal service proto: %v", err))
	}
	return service
})()

// Service is the main running Gomoku Twicmd service.
// Games are kept per phone number.
type Service struct {
	sendCh   chan *twismsproto.Message
	sendSub  pubsub.Subscriber[*twismsproto.Message]
	store    *session.Store
	defaults session.Options
	logger   *slog.Logger
}

var (
	_ twicmd.Service           = (*Service)(nil)
	_ twisms.MessageSubscriber = (*Service)(nil)
)

// NewService creates a new service keeping its games in store. New games
// use defaults unless the start command overrides them.
func NewService(store *session.Store, defaults session.Options, logger *slog.Logger) *Service {
	return &Service{
		sendCh:   make(chan *twismsproto.Message),
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// Name implements [twicmd.Service].
func (s *Service) Name() string {
	return service.Name
}

// Service implements [twicmd.Service].
func (s *Service) Service(ctx context.Context) (*twicmdproto.Service, error) {
	return service, nil
}

// Execute implements [twicmd.Service].
func (s *Service) Execute(ctx context.Context, req *twicmdproto.ExecuteRequest) (*twicmdproto.ExecuteResponse, error) {
	args := twicmd.MapArguments(req.Command.Arguments)
	from := req.Message.From

	switch req.Command.Command {
	case "start":
		opts, err := parseStartArgs(args, s.defaults)
		if err != nil {
			return twicmd.StatusResponse(err.Error()), nil
		}

		s.logger.Debug(
			"starting new game",
			"phone_number", from,
			"size", opts.Size)

		sess, overridden, err := s.store.Start(from, opts)
		if err != nil {
			return twicmd.StatusResponse(describeError(err)), nil
		}

		msg := "A new game has started."
		if overridden {
			msg = "An existing game was overridden. " + msg
		}
		if opts.First == game.Computer {
			msg += " The AI opened, it is now your turn."
		} else {
			msg += " It is now your turn."
		}
		s.reply(req.Message, msg)

		snap := sess.Snapshot()
		s.reply(req.Message, drawBoard("", snap.Board))
		return nil, nil

	case "place":
		s.logger.Debug(
			"placing piece",
			"phone_number", from,
			"row", args["row"],
			"column", args["column"])

		sess, err := s.store.Load(from)
		if err != nil {
			return twicmd.StatusResponse("No game found. Please start a new game."), nil
		}

		pos, err := parsePlaceArgs(args)
		if err != nil {
			return twicmd.StatusResponse(err.Error()), nil
		}

		turn, err := sess.Place(pos)
		if err != nil {
			return twicmd.StatusResponse(describeError(err)), nil
		}

		snap := sess.Snapshot()
		s.reply(req.Message, drawBoard(placedMessage(turn), snap.Board))

		if turn.Outcome.Ended() {
			s.store.DeleteSession(sess)
			return twicmd.TextResponse(outcomeMessage(turn.Outcome)), nil
		}
		return nil, nil

	case "board":
		sess, err := s.store.Load(from)
		if err != nil {
			return twicmd.StatusResponse("No game found. Please start a new game."), nil
		}
		snap := sess.Snapshot()
		s.reply(req.Message, drawBoard("", snap.Board))
		return nil, nil

	case "resign":
		if _, err := s.store.Resign(from); err != nil {
			return twicmd.StatusResponse(describeError(err)), nil
		}
		return twicmd.TextResponse(outcomeMessage(game.ComputerWin)), nil

	default:
		return nil, fmt.Errorf("unknown command: %q", req.Command.Command)
	}
}

func (s *Service) reply(to *twismsproto.Message, text string) {
	s.sendCh <- twisms.NewReplyingMessage(to, &twismsproto.MessageBody{
		Text: &twismsproto.TextBody{Text: text},
	})
}

func parseStartArgs(args map[string]string, defaults session.Options) (session.Options, error) {
	opts := defaults

	if v := args["size"]; v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("Invalid size %q. Please provide a number.", v)
		}
		opts.Size = size
	}

	switch strings.ToLower(args["first"]) {
	case "":
	case "me", "human", "you", "y", "yes":
		opts.First = game.Human
	case "ai", "computer", "cpu", "n", "no":
		opts.First = game.Computer
	default:
		return opts, fmt.Errorf("Invalid first player %q. Please answer \"me\" or \"ai\".", args["first"])
	}

	return opts, nil
}

// parsePlaceArgs parses the 1-based row and column of a move.
func parsePlaceArgs(args map[string]string) (game.BoardPosition, error) {
	row, err1 := strconv.Atoi(args["row"])
	col, err2 := strconv.Atoi(args["column"])
	if err1 != nil || err2 != nil {
		return game.NoMove, errors.New("Invalid position. Please provide a row and a column number.")
	}
	return game.BoardPosition{Row: row - 1, Col: col - 1}, nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, game.ErrOutOfRange):
		return "Invalid position. That cell is outside of the board."
	case errors.Is(err, game.ErrInvalidMove):
		return "Invalid move. That cell is already taken."
	case errors.Is(err, game.ErrGameOver):
		return "The game is already over. Please start a new game."
	case errors.Is(err, session.ErrNotFound):
		return "No game found. Please start a new game."
	case errors.Is(err, session.ErrInvalidOptions):
		return "Invalid game options: " + strings.TrimPrefix(err.Error(), session.ErrInvalidOptions.Error()+": ")
	default:
		return "Something went wrong. Please try again."
	}
}

func placedMessage(turn session.Turn) string {
	msg := fmt.Sprintf("You placed at %d,%d.", turn.Human.Row+1, turn.Human.Col+1)
	if turn.Computer != game.NoMove {
		msg += fmt.Sprintf(" In return, the AI placed at %d,%d.", turn.Computer.Row+1, turn.Computer.Col+1)
	}
	return msg
}

func outcomeMessage(o game.Outcome) string {
	switch o {
	case game.HumanWin:
		return fmt.Sprintf("The game is over. %s wins!", playerUnicode[game.Human])
	case game.ComputerWin:
		return fmt.Sprintf("The game is over. %s wins!", playerUnicode[game.Computer])
	default:
		return "The game is over. It's a draw!"
	}
}

var playerUnicode = map[game.Player]string{
	game.Human:    "❌",
	game.Computer: "⚫",
	game.NoPlayer: "⬜",
}

func drawBoard(prefix string, board *game.Board) string {
	var s strings.Builder
	if prefix != "" {
		s.WriteString(prefix)
		s.WriteString("\n\n")
	}
	for _, row := range board.Rows() {
		for _, p := range row {
			s.WriteString(playerUnicode[p])
		}
		s.WriteString("\n")
	}
	s.WriteString("❌ is your piece.\n")
	s.WriteString("⚫ is the AI's piece.")
	return s.String()
}

// Start runs the service until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		return s.sendSub.Listen(ctx, s.sendCh)
	})

	errg.Go(func() error {
		return s.store.Run(ctx)
	})

	return errg.Wait()
}

// SubscribeMessages implements [twisms.MessageSubscriber].
func (s *Service) SubscribeMessages(ch chan<- *twismsproto.Message, filters *twismsproto.MessageFilters) {
	s.sendSub.Subscribe(ch, func(msg *twismsproto.Message) bool {
		return twisms.FilterMessage(filters, msg)
	})
}

// UnsubscribeMessages implements [twisms.MessageSubscriber].
func (s *Service) UnsubscribeMessages(ch chan<- *twismsproto.Message) {
	s.sendSub.Unsubscribe(ch)
}
