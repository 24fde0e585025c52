package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scrimzay/battleships/internal/config"
	"github.com/Scrimzay/battleships/internal/scores"
	"github.com/Scrimzay/battleships/internal/server"
	"github.com/Scrimzay/battleships/internal/session"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("=== STARTING BATTLESHIPS ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error: ", err)
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Printf("Opening score store at %s...", cfg.DBPath)
	store, err := scores.Open(cfg.DBPath, cfg.HighScoreLimit)
	if err != nil {
		log.Fatal("Store error: ", err)
	}
	defer store.Close()

	if cfg.SeedSampleScores {
		seeded, err := store.SeedSamples(context.Background())
		if err != nil {
			log.Fatal("Seed error: ", err)
		}
		if seeded {
			log.Println("Seeded sample high scores")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := session.NewHub(session.Options{
		Difficulty:  cfg.Difficulty(),
		EnemyDelay:  cfg.EnemyDelay,
		IdleTimeout: cfg.SessionIdleTimeout,
		WriteWait:   cfg.WriteTimeout,
	})
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.SetupRouter(hub, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting at port %s (default difficulty %s)", cfg.Port, cfg.Difficulty())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Shutdown error:", err)
	}
}
