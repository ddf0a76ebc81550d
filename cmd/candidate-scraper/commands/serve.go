package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/api"
	"github.com/maltedev/candidate-contact-scraper/internal/database"
	"github.com/maltedev/candidate-contact-scraper/internal/jobs"
	"github.com/maltedev/candidate-contact-scraper/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveOutput string

func init() {
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "profiles.json", "JSON file to write profiles to when no database is configured.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the run API and executes queued runs in the background.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var background sync.WaitGroup

		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}

		var outbox api.OutboxCounter
		if db != nil {
			defer db.Close()
			repo := database.NewOutboxRepository(db)
			outbox = repo

			if cfg.Redis.Addr != "" {
				redisClient := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer redisClient.Close()

				if err := redisClient.Ping(ctx).Err(); err != nil {
					return err
				}

				relay := database.NewRelay(repo, redisClient, log, database.RelayConfig{
					PollInterval: 5 * time.Second,
					BatchSize:    100,
				})
				goBackground(&background, func() {
					if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("relay stopped with error", "error", err)
					}
				})
				defer stopAndWait(cancel, &background)
			} else {
				log.Warn("REDIS_ADDR not set, outbox events will accumulate")
			}
		}

		save, err := saver(db, cfg.Redis.Stream, serveOutput, log)
		if err != nil {
			return err
		}

		p, err := newPipeline(cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		q := queue.NewInMemoryQueue(cfg.Server.QueueSize)
		defer q.Close()

		manager := jobs.NewManager(jobs.Config{
			Queue:     q,
			Processor: p.orchestrator,
			Extract:   p.extractor.Extract,
			Save:      save,
			Page:      p.page,
		}, log)
		goBackground(&background, func() { manager.StartWorker(ctx) })
		// runs before the deferred closers above so no run is still driving
		// the page when the browser goes away
		defer stopAndWait(cancel, &background)

		handlers := api.NewHandlers(manager, p.orchestrator, outbox, log)
		server := &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:      api.NewRouter(handlers, api.RouterOptions{RequestTimeout: cfg.Server.WriteTimeout}),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigChan:
			case <-ctx.Done():
			}

			log.Info("shutting down server...")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown failed", "error", err)
			}
		}()

		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		log.Info("server stopped")
		return nil
	},
}

func goBackground(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// stopAndWait cancels the background work and blocks until it has returned.
func stopAndWait(cancel context.CancelFunc, wg *sync.WaitGroup) {
	cancel()
	wg.Wait()
}
