// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dosip/dosip/internal/bus"
	"github.com/dosip/dosip/internal/cache"
	"github.com/dosip/dosip/internal/database"
	"github.com/dosip/dosip/internal/handlers"
	"github.com/dosip/dosip/internal/room"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := database.ConnectDB(); err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer database.Close()

	// Redis history is optional; the server runs fine without it.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, event history disabled: %v", err)
	}

	store := room.NewStore()
	engine := room.NewEngine(room.ConfigFromEnv())
	b := bus.New()
	store.OnRemove = b.CloseRoom

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx, 10*time.Minute, time.Hour)

	srv := handlers.NewServer(store, engine, database.PGCatalog{}, b, logger)
	srv.Results = database.PGResults{}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
