package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"healthform-validator/internal/config"
	"healthform-validator/internal/core"
	"healthform-validator/internal/db"
	httpserver "healthform-validator/internal/http"
	"healthform-validator/internal/llm"
	"healthform-validator/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthform-validator",
		Short: "Medical intake form extraction and clinical analysis server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the analysis-history database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL must be set to run migrations")
			}

			dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer dbConn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := dbConn.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			if err := db.Migrate(ctx, dbConn); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Println("Schema applied successfully.")
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	llmClient, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct completion client")
	}
	analyzer := core.NewAnalyzer(llmClient, logger)

	fileStore, err := store.New(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize data directory")
	}

	// Postgres history is optional; without DATABASE_URL the server runs
	// file-only.
	var repo *db.Repository
	if cfg.DatabaseURL != "" {
		dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open history database")
		}
		defer dbConn.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := dbConn.PingContext(pingCtx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("failed to ping history database")
		}
		cancel()
		repo = db.NewRepository(dbConn)
		logger.Info().Msg("analysis history database connected")
	}

	srv, err := httpserver.NewServer(analyzer, fileStore, repo, logger, cfg.HistoryLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct server")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpserver.Recovery(logger))
	e.Use(httpserver.RequestID())
	e.Use(httpserver.Logger(logger))

	srv.RegisterRoutes(e)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
