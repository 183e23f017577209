package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcade/internal/archive"
	"arcade/internal/config"
	"arcade/internal/game"
	"arcade/internal/game/catalog"
	"arcade/internal/identity"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/notify"
	"arcade/internal/progress"
	"arcade/internal/scheduler"
	"arcade/internal/server"
	"arcade/internal/storage"
)

type store interface {
	match.Store
	matchmaking.Store
	progress.Store
	archive.Source
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Printf("warning: JWT_SECRET not set, bearer tokens are rejected and only guests can play")
	}

	registry := catalog.NewRegistry()
	db, err := openStore(cfg, registry)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	hub := notify.NewHub()
	tracker := progress.NewTracker(db)
	engine := match.NewEngine(db, registry, match.Options{
		TurnTimeout: cfg.TurnTimeout,
		Publisher:   hub,
		Recorder:    tracker,
	})
	queue := matchmaking.NewQueue(db, engine, matchmaking.Options{
		RandomTypes: catalog.BaseTypes,
		Publisher:   hub,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	err = sched.Every("sweep-expired", cfg.SweepInterval, func(ctx context.Context) error {
		_, err := engine.SweepExpired(ctx)
		return err
	})
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if cfg.ArchiveEnabled() {
		uploader, err := archive.NewS3(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		archiver := &archive.Archiver{Source: db, Uploader: uploader, After: cfg.ArchiveAfter}
		err = sched.Every("archive", cfg.ArchiveInterval, func(ctx context.Context) error {
			_, err := archiver.Run(ctx)
			return err
		})
		if err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		log.Printf("archiving finished matches to bucket %s after %s", cfg.Archive.Bucket, cfg.ArchiveAfter)
	}
	sched.Start()

	deps := server.Deps{
		Engine:   engine,
		Queue:    queue,
		Tracker:  tracker,
		Hub:      hub,
		Verifier: identity.NewVerifier(cfg.JWTSecret),
	}
	if _, err := fs.Stat(os.DirFS("."), "web"); err == nil {
		deps.WebFS = os.DirFS("web")
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
}

func openStore(cfg config.Config, registry *game.Registry) (store, error) {
	if cfg.DatabaseURL != "" {
		log.Printf("using postgres store")
		return storage.NewPostgres(cfg.DatabaseURL, registry)
	}
	log.Printf("using sqlite store at %s", cfg.DBPath)
	return storage.NewSQLite(cfg.DBPath, registry)
}
