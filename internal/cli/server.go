package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"polls-service/internal/app"
	"polls-service/internal/config"
	"polls-service/internal/infra/memory"
	"polls-service/internal/infra/postgres"
	redisschema "polls-service/internal/infra/redis"
	"polls-service/internal/infra/sqldb"
	transport "polls-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the polls server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrateDB(ctx, db); err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store := sqldb.NewStore(db)

	var loader app.SchemaLoader = store
	if cfg.UsePostgres() {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewSchemaLoader(pool)
	}

	schemaTTL := config.TTLDuration(cfg.Schema.TTL, 10*time.Minute)
	var schemas app.SchemaRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		schemas = redisschema.NewSchemaRepository(client, loader, schemaTTL)
	} else {
		schemas = memory.NewSchemaRepository(loader, schemaTTL)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := transport.NewHandler(
		app.NewPollService(store, schemas),
		app.NewQuestionService(store, schemas),
		app.NewAnswerService(store, schemas),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting polls service", "port", finalPort, "postgres", cfg.UsePostgres(), "redis", cfg.Redis.Addr != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server...")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
