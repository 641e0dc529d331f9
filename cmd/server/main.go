// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/kmehta/teenpatti/internal/auth"
	"github.com/kmehta/teenpatti/internal/cache"
	"github.com/kmehta/teenpatti/internal/database"
	"github.com/kmehta/teenpatti/internal/engine"
	"github.com/kmehta/teenpatti/internal/handlers"
	"github.com/kmehta/teenpatti/internal/lobby"
	"github.com/kmehta/teenpatti/internal/middleware"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	auth.Init()

	pool := database.Connect()
	defer pool.Close()
	if err := database.Migrate(context.Background(), pool); err != nil {
		logger.Fatalf("migrate failed: %v", err)
	}

	events, err := cache.Connect()
	if err != nil {
		// The event queue is optional; the game runs without it.
		logger.Warnf("redis unavailable, game events disabled: %v", err)
		events = nil
	}

	store := database.NewStore(pool)
	eng := engine.New(store, logger)
	hub := lobby.NewHub()
	srv := handlers.NewServer(store, eng, hub, events, logger)
	eng.OnStateChanged = srv.BroadcastState

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.PingHandler)

	mux.HandleFunc("/auth/register", srv.RegisterHandler)
	mux.HandleFunc("/auth/login", srv.LoginHandler)

	mux.HandleFunc("/lobby/create", srv.CreateLobbyHandler)
	mux.HandleFunc("/lobby/join", srv.JoinLobbyHandler)
	mux.HandleFunc("/lobby/state", srv.LobbyStateHandler)
	mux.HandleFunc("/lobby/mine", srv.MyLobbiesHandler)
	mux.HandleFunc("/lobby/delete", srv.DeleteLobbyHandler)
	mux.Handle("/lobby/ws/", handlers.LobbyWSHandler(logger, srv))

	mux.HandleFunc("/game/start", srv.StartGameHandler)
	mux.HandleFunc("/game/action", srv.ActionHandler)
	mux.HandleFunc("/game/end", srv.EndGameHandler)

	addr := ":3000"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.LogMiddleware(logger)(mux),
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}
