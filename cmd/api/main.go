package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/autoledger/internal/api/handlers"
	"github.com/dvloznov/autoledger/internal/api/middleware"
	"github.com/dvloznov/autoledger/internal/extract"
	"github.com/dvloznov/autoledger/internal/jobs"
	"github.com/dvloznov/autoledger/internal/jobs/inmemory"
	"github.com/dvloznov/autoledger/internal/logger"
	"github.com/dvloznov/autoledger/internal/store"
)

func main() {
	// Parse command-line flags
	var (
		port   = flag.String("port", "8080", "HTTP server port")
		dbPath = flag.String("db", defaultDBPath(), "path to the ledger SQLite database")
		model  = flag.String("model", extract.DefaultModelName, "Gemini model name")
	)
	flag.Parse()

	// Load .env if present; the Gemini API key comes from GEMINI_API_KEY.
	_ = godotenv.Load()

	// Initialize logger
	log := logger.New()

	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set - extraction requests will fail")
	}

	ctx := context.Background()

	// Open the transaction store
	ledger, err := store.Open(*dbPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	// Initialize the extraction pipeline
	normalizer := extract.NewNormalizer(extract.NewGeminiAnalyzer(*model), log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing extraction jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		extractJob, ok := job.(*jobs.ExtractJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Msg("Processing extraction job")

		draft, err := normalizer.Normalize(ctx, extractJob.Input())
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", extractJob.JobID).
				Msg("Extraction failed")
			return err
		}

		extractJob.Result = &draft

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("merchant", draft.Merchant).
			Msg("Extraction completed")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	extractHandler := handlers.NewExtractHandler(normalizer, jobQueue, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledger, log)
	reportsHandler := handlers.NewReportsHandler(ledger, log)
	backupHandler := handlers.NewBackupHandler(ledger, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Extraction endpoints
	mux.HandleFunc("POST /api/extract", extractHandler.Extract)
	mux.HandleFunc("POST /api/extract/jobs", extractHandler.EnqueueExtract)

	// Transactions endpoints
	mux.HandleFunc("GET /api/transactions", transactionsHandler.List)
	mux.HandleFunc("POST /api/transactions", transactionsHandler.Create)
	mux.HandleFunc("PUT /api/transactions/{id}", transactionsHandler.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.Delete)

	// Reports endpoints
	mux.HandleFunc("GET /api/summary", reportsHandler.Summary)
	mux.HandleFunc("GET /api/stats", reportsHandler.Stats)
	mux.HandleFunc("GET /api/categories", reportsHandler.Categories)

	// Backup endpoints
	mux.HandleFunc("GET /api/backup", backupHandler.Export)
	mux.HandleFunc("POST /api/backup", backupHandler.Import)

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("db", *dbPath).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// defaultDBPath honours AUTOLEDGER_DB, falling back to a file next to the
// binary's working directory.
func defaultDBPath() string {
	if p := os.Getenv("AUTOLEDGER_DB"); p != "" {
		return p
	}
	return "data/autoledger.db"
}
