package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/larpforge/storyai/internal/api/handlers"
	"github.com/larpforge/storyai/internal/config"
	"github.com/larpforge/storyai/internal/database"
	"github.com/larpforge/storyai/internal/jobs"
	"github.com/larpforge/storyai/internal/openai"
	"github.com/larpforge/storyai/internal/repository"
	"github.com/larpforge/storyai/internal/server"
	"github.com/larpforge/storyai/internal/service"
	"github.com/larpforge/storyai/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the StoryAI API server and the background reindex worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not start the background reindex worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("STORYAI_OPENAI_API_KEY is required")
	}

	larpRepo := repository.NewLARPRepository(pool)
	loreRepo := repository.NewLoreDocumentRepository(pool)
	chunkRepo := repository.NewLoreChunkRepository(pool)
	objectRepo := repository.NewObjectEmbeddingRepository(pool)
	jobRepo := repository.NewReindexJobRepository(pool)
	searchRepo := repository.NewVectorSearchRepository(pool)
	txRunner := repository.NewPgxTxRunner(pool)

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:       cfg.OpenAIAPIKey,
		EmbeddingRPS: cfg.EmbedRateLimit,
	})

	chunkCfg := service.ChunkConfig{
		MaxTokens:     cfg.ChunkMaxTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
	}
	ingestSvc := service.NewIngestService(aiClient, objectRepo, loreRepo, chunkRepo, txRunner, chunkCfg)

	queue := service.NewReindexEnqueuer(jobRepo)
	loreSvc := service.NewLoreService(loreRepo, queue)
	larpSvc := service.NewLARPService(larpRepo)

	retriever := service.NewRetrieverService(aiClient, searchRepo)
	synthesizer := service.NewSynthesisService(aiClient)
	chatSvc := service.NewChatService(retriever, synthesizer, service.ChatConfig{
		RetrievalBudget: cfg.RetrievalBudget,
		Assemble: service.AssembleConfig{
			ContextTokens: cfg.ContextTokens,
			HistoryTokens: cfg.HistoryTokens,
		},
		PinnedFallback: cfg.PinnedFallback,
	})

	var reindexWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		processor := jobs.NewReindexWorker(jobRepo, ingestSvc)
		reindexWorker = jobs.NewWorker(processor, cfg.WorkerPollInterval)
		go reindexWorker.Start(ctx)
		log.Println("reindex worker started")
	}

	routerCfg := server.RouterConfig{
		QueryHandler:  handlers.NewQueryHandler(chatSvc),
		LoreHandler:   handlers.NewLoreHandler(loreSvc),
		LARPHandler:   handlers.NewLARPHandler(larpSvc),
		ObjectHandler: handlers.NewObjectHandler(loreSvc, ingestSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if reindexWorker != nil {
		reindexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// RunMigrations applies pending migrations from the migrations directory.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
