package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/lease-contract-server/internal/api"
	"github.com/rongwang/lease-contract-server/internal/config"
	"github.com/rongwang/lease-contract-server/internal/notify"
	"github.com/rongwang/lease-contract-server/internal/repository"
	"github.com/rongwang/lease-contract-server/internal/service"
	"github.com/rongwang/lease-contract-server/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, _ := cmd.Flags().GetBool("memory")

			cfg := config.LoadConfig()
			log := utils.NewLogger(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, memory, log)
		},
	}

	cmd.Flags().Bool("memory", false, "keep all state in process memory instead of PostgreSQL")
	return cmd
}

// openRepository returns the configured store and a function releasing it
func openRepository(cfg *config.Config, memory bool, log zerolog.Logger) (repository.Repository, func(), error) {
	if memory {
		log.Warn().Msg("Using in-memory repository, state is lost on exit")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := config.SetupDatabase(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up database: %w", err)
	}
	return repository.NewPostgresRepository(db), func() { db.Close() }, nil
}

// openBridge connects the notification bridge. A broker that cannot be
// reached degrades to logging only.
func openBridge(cfg *config.Config, log zerolog.Logger) (notify.Bridge, func()) {
	if cfg.NATS.URL == "" {
		log.Info().Msg("notification: NATS_URL not set, events are only logged")
		return notify.NewLogBridge(log), func() {}
	}

	conn, err := notify.ConnectNATS(cfg.NATS.URL, log)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("notification: NATS unavailable, events are only logged")
		return notify.NewLogBridge(log), func() {}
	}

	bridge := notify.NewNATSBridge(conn, cfg.NATS.SubjectPrefix, log)
	log.Info().Str("url", cfg.NATS.URL).Str("prefix", cfg.NATS.SubjectPrefix).Msg("notification: publishing to NATS")
	return bridge, func() {
		if err := bridge.Close(); err != nil {
			log.Warn().Err(err).Msg("notification: failed to drain NATS connection")
		}
	}
}

func serve(ctx context.Context, cfg *config.Config, memory bool, log zerolog.Logger) error {
	repo, closeRepo, err := openRepository(cfg, memory, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	bridge, closeBridge := openBridge(cfg, log)
	defer closeBridge()

	svc := service.NewDefaultService(repo, bridge, cfg.Contract, log)
	handler := api.NewHandler(svc, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// requestLogger writes one structured line per request
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Str("user_id", c.GetString("userId")).
			Msg("request")
	}
}
