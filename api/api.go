// Package api serves games over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/twipi/twigomoku/game"
	"github.com/twipi/twigomoku/session"
)

// Handler is the JSON API handler.
type Handler struct {
	chi.Router
	store    *session.Store
	defaults session.Options
	logger   *slog.Logger
}

// NewHandler creates a new API handler. Games are keyed by their ID in
// store.
func NewHandler(store *session.Store, defaults session.Options, logger *slog.Logger) *Handler {
	h := &Handler{
		Router:   chi.NewRouter(),
		store:    store,
		defaults: defaults,
		logger:   logger,
	}

	h.Post("/games", h.create)
	h.Route("/games/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.delete)
		r.Post("/moves", h.move)
	})

	return h
}

type createRequest struct {
	Size  int    `json:"size,omitempty"`
	First string `json:"first,omitempty"`
}

type moveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type lastMoves struct {
	Human    *position `json:"human,omitempty"`
	Computer *position `json:"computer,omitempty"`
}

// GameView is the JSON representation of a game.
type GameView struct {
	ID      string     `json:"id"`
	Size    int        `json:"size"`
	Board   [][]string `json:"board"`
	Turn    string     `json:"turn"`
	Turns   int        `json:"turns"`
	Outcome string     `json:"outcome"`
	Last    lastMoves  `json:"last_moves"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	// An empty body, sized or chunked, asks for the default options.
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := h.defaults
	if req.Size != 0 {
		opts.Size = req.Size
	}
	switch req.First {
	case "":
	case "human":
		opts.First = game.Human
	case "computer":
		opts.First = game.Computer
	default:
		writeError(w, http.StatusBadRequest, `first must be "human" or "computer"`)
		return
	}

	sess, _, err := h.store.Start("", opts)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newGameView(sess.Snapshot()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Load(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(sess.Snapshot()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(chi.URLParam(r, "id")) {
		h.writeErr(w, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Load(id)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := sess.Place(game.BoardPosition{Row: req.Row, Col: req.Col})
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.logger.Debug(
		"move played",
		"game_id", id,
		"human", turn.Human,
		"computer", turn.Computer,
		"outcome", turn.Outcome.String())

	writeJSON(w, http.StatusOK, newGameView(sess.Snapshot()))
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidOptions), errors.Is(err, game.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrInvalidMove), errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(
			"unexpected error",
			"err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func newGameView(snap session.Snapshot) GameView {
	rows := snap.Board.Rows()
	board := make([][]string, len(rows))
	for r, row := range rows {
		board[r] = make([]string, len(row))
		for c, p := range row {
			board[r][c] = cellName(p)
		}
	}

	v := GameView{
		ID:      snap.ID,
		Size:    snap.Board.Size(),
		Board:   board,
		Turn:    cellName(snap.Turn),
		Turns:   snap.Turns,
		Outcome: outcomeName(snap.Outcome),
	}
	if snap.Outcome.Ended() {
		v.Turn = ""
	}
	if snap.Last.Human != game.NoMove {
		v.Last.Human = &position{snap.Last.Human.Row, snap.Last.Human.Col}
	}
	if snap.Last.Computer != game.NoMove {
		v.Last.Computer = &position{snap.Last.Computer.Row, snap.Last.Computer.Col}
	}
	return v
}

func cellName(p game.Player) string {
	switch p {
	case game.Human:
		return "human"
	case game.Computer:
		return "computer"
	default:
		return ""
	}
}

func outcomeName(o game.Outcome) string {
	switch o {
	case game.HumanWin:
		return "human_win"
	case game.ComputerWin:
		return "computer_win"
	case game.Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
