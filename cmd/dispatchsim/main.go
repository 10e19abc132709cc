// Command dispatchsim runs the HTTP simulation server (C10): it accepts run
// requests naming CSV input tables and a match policy, executes each run
// asynchronously, and serves back reports. Config/App wiring, graceful
// shutdown, and zerolog setup follow this codebase's ride-service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ubi-africa/dispatch-sim/internal/api"
	"github.com/ubi-africa/dispatch-sim/internal/store/pgstore"
)

// Config holds the service configuration.
type Config struct {
	Port            string
	Environment     string
	DatabaseURL     string
	RedisURL        string
	KafkaBrokers    string
	ShutdownTimeout time.Duration
}

// App holds all application dependencies.
type App struct {
	config      *Config
	db          *pgxpool.Pool
	redisClient *goredis.Client
	runStore    *pgstore.RunStore
	apiServer   *api.Server
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("NODE_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	_ = godotenv.Load()

	config := loadConfig()

	app, err := initializeApp(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.cleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/health", app.health)
	app.apiServer.Routes(r)

	server := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", config.Port).Msg("dispatch simulation server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited properly")
}

func initializeApp(config *Config) (*App, error) {
	app := &App{config: config}

	if config.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if err := pool.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		app.db = pool
		app.runStore = pgstore.NewRunStore(pool)
		if err := app.runStore.CreateRunsTable(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create runs table: %w", err)
		}
		log.Info().Msg("database connection established")
	}

	if config.RedisURL != "" {
		opts, err := goredis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		app.redisClient = client
		log.Info().Msg("redis connection established")
	}

	app.apiServer = api.NewServer(app.runStore)

	return app, nil
}

func (a *App) cleanup() {
	if a.db != nil {
		a.db.Close()
		log.Info().Msg("database connection closed")
	}
	if a.redisClient != nil {
		a.redisClient.Close()
		log.Info().Msg("redis connection closed")
	}
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func loadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8089"),
		Environment:     getEnv("NODE_ENV", "development"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		ShutdownTimeout: 30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
