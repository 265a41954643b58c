package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/importer/internal/api/handlers"
	"github.com/ledgerline/importer/internal/api/middleware"
	"github.com/ledgerline/importer/internal/classify"
	"github.com/ledgerline/importer/internal/config"
	"github.com/ledgerline/importer/internal/filesource"
	"github.com/ledgerline/importer/internal/importer"
	"github.com/ledgerline/importer/internal/jobs"
	"github.com/ledgerline/importer/internal/jobs/inmemory"
	"github.com/ledgerline/importer/internal/logger"
	"github.com/ledgerline/importer/internal/store"
)

func main() {
	var configPath = flag.String("config", os.Getenv("LEDGERIMPORT_CONFIG"), "Path to config file (or set LEDGERIMPORT_CONFIG env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx := context.Background()

	txStore, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create transaction store")
	}
	defer cleanup()

	var classifier importer.Classifier
	if cfg.Classify.APIKey != "" {
		classifier = classify.New(classify.Config{
			Endpoint: cfg.Classify.Endpoint,
			Model:    cfg.Classify.Model,
			APIKey:   cfg.Classify.APIKey,
		}, log)
	} else {
		log.Warn().Msg("No classification API key configured - imports run without category enrichment")
	}

	fetcher := filesource.New(log)
	registry := importer.NewRegistry()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Queue.BufferSize, cfg.Queue.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := newImportHandler(cfg, txStore, classifier, fetcher, registry, jobStore, log)

	go func() {
		log.Info().Int("workers", cfg.Queue.Workers).Msg("Starting import workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	// Initialize handlers
	importsHandler := handlers.NewImportsHandler(jobQueue, jobStore, registry, log)
	platformsHandler := handlers.NewPlatformsHandler(log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/imports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			importsHandler.CreateImport(w, r)
		case http.MethodGet:
			importsHandler.ListImports(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/imports/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/imports/")
		if jobID, found := strings.CutSuffix(rest, "/cancel"); found {
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			importsHandler.CancelImport(w, r, jobID)
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Import ID is required")
			return
		}
		importsHandler.GetImport(w, r, rest)
	})

	mux.HandleFunc("/api/platforms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			platformsHandler.ListPlatforms(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(cfg.AuthToken)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting import server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Wait for in-flight imports before exiting
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newStore builds the configured transaction store backend.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(cfg.Store.BatchSize), func() {}, nil
	case "firestore":
		fs, err := store.NewFirestoreStore(ctx, cfg.Store.Project)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() { fs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newImportHandler builds the job handler that drives one import run end to
// end: fetch, parse, optional classification, commit.
func newImportHandler(
	cfg *config.Config,
	txStore store.Store,
	classifier importer.Classifier,
	fetcher *filesource.Fetcher,
	registry *importer.Registry,
	jobStore jobs.JobStore,
	log zerolog.Logger,
) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ImportJob) error {
		runLog := log.With().Str("job_id", job.JobID).Str("ledger_id", job.LedgerID).Logger()

		run, err := importer.NewRun(job.JobID, importer.RunConfig{
			LedgerID:   job.LedgerID,
			UserID:     job.UserID,
			Platform:   job.Platform,
			Policy:     importer.DirectionPolicy(cfg.Import.DirectionPolicy),
			Store:      txStore,
			Classifier: classifier,
			Logger:     runLog,
			OnProgress: func(f float64) {
				_ = jobStore.UpdateProgress(ctx, job.JobID, f)
			},
		})
		if err != nil {
			return err
		}

		registry.Add(run)
		defer registry.Remove(job.JobID)

		raw := job.Content
		if len(raw) == 0 {
			raw, err = fetcher.Fetch(ctx, job.SourceURI)
			if err != nil {
				return err
			}
		}

		if err := run.Parse(ctx, raw); err != nil {
			return err
		}

		if job.Classify && classifier != nil {
			if err := run.Classify(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					// Cancelled imports commit nothing.
					return err
				}
				runLog.Warn().Err(err).Msg("Continuing import without category enrichment")
			}
		}

		result, err := run.Commit(ctx)
		job.Result = &result
		return err
	}
}
