// Package handlers exposes the HTTP and websocket surface of the room
// service.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dosip/dosip/internal/bus"
	"github.com/dosip/dosip/internal/middleware"
	"github.com/dosip/dosip/internal/models"
	"github.com/dosip/dosip/internal/room"
)

// Catalog supplies the playable games and their decks. The postgres
// implementation lives in internal/database; tests swap in a stub.
type Catalog interface {
	ListGames(ctx context.Context) ([]models.Game, error)
	GetGame(ctx context.Context, id int) (*models.Game, error)
	GetDeck(ctx context.Context, gameID int) ([]*models.Card, error)
}

// ResultRecorder persists final scores once a room finishes. The
// postgres implementation lives in internal/database; leaving it nil
// skips persistence.
type ResultRecorder interface {
	RecordRoomResults(ctx context.Context, snap room.Snapshot, lb room.Leaderboard) error
}

const resultWriteTimeout = 10 * time.Second

// Server holds the shared state every handler needs.
type Server struct {
	Store   *room.Store
	Engine  *room.Engine
	Catalog Catalog
	Bus     *bus.Bus
	Results ResultRecorder
	Logger  *logrus.Logger
}

func NewServer(store *room.Store, engine *room.Engine, catalog Catalog, b *bus.Bus, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{Store: store, Engine: engine, Catalog: catalog, Bus: b, Logger: logger}
}

// Routes wires every endpoint onto a mux wrapped with request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /games", s.ListGamesHandler)
	mux.HandleFunc("POST /rooms/create", s.CreateRoomHandler)
	mux.HandleFunc("POST /rooms/join", s.JoinRoomHandler)
	mux.HandleFunc("GET /rooms/{code}", s.GetRoomHandler)
	mux.HandleFunc("POST /rooms/{code}/start", s.StartGameHandler)
	mux.HandleFunc("GET /rooms/{code}/state", s.GetStateHandler)
	mux.HandleFunc("POST /rooms/{code}/choice", s.MakeChoiceHandler)
	mux.HandleFunc("POST /rooms/{code}/next", s.NextTurnHandler)
	mux.HandleFunc("GET /rooms/{code}/leaderboard", s.LeaderboardHandler)
	mux.HandleFunc("GET /ws/{code}", s.RoomWSHandler)
	mux.HandleFunc("GET /healthz", s.HealthHandler)

	return middleware.LogMiddleware(s.Logger)(mux)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
