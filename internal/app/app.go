package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/config"
	"github.com/RubachokBoss/edujury/internal/delivery/httpd"
	"github.com/RubachokBoss/edujury/internal/repository"
	"github.com/RubachokBoss/edujury/internal/service"
	"github.com/RubachokBoss/edujury/internal/service/integration"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	db        *sql.DB
	publisher integration.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	publisher := newPublisher(cfg.RabbitMQ, log)

	artifacts, err := newArtifacts(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	profileRepo := repository.NewProfileRepository(db, log)
	tokenRepo := repository.NewTokenRepository(db, log)
	rubricRepo := repository.NewRubricRepository(db, log)
	sessionRepo := repository.NewSessionRepository(db, log)
	evaluationRepo := repository.NewEvaluationRepository(db, log)

	authService := service.NewAuthService(profileRepo, tokenRepo, cfg.Auth, log)
	profileService := service.NewProfileService(profileRepo, log)
	rubricService := service.NewRubricService(rubricRepo, log)
	sessionService := service.NewSessionService(
		sessionRepo,
		rubricRepo,
		profileRepo,
		evaluationRepo,
		publisher,
		log,
	)
	evaluationService := service.NewEvaluationService(
		evaluationRepo,
		sessionRepo,
		rubricRepo,
		artifacts,
		publisher,
		service.EvaluationOptions{AllowReopen: cfg.Evaluation.AllowReopen},
		log,
	)

	handler := httpd.NewHandler(
		authService,
		profileService,
		rubricService,
		sessionService,
		evaluationService,
		cfg.Server.MaxUploadSize,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		publisher: publisher,
	}, nil
}

// newPublisher connects to RabbitMQ. The service keeps running without
// events when the broker is disabled or unreachable.
func newPublisher(cfg config.RabbitMQConfig, log zerolog.Logger) integration.EventPublisher {
	if !cfg.Enabled {
		return integration.NopPublisher{Logger: log}
	}

	publisher, err := integration.NewRabbitMQPublisher(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ; events will be dropped")
		return integration.NopPublisher{Logger: log}
	}
	return publisher
}

func newArtifacts(cfg config.StorageConfig, log zerolog.Logger) (repository.ArtifactRepository, error) {
	if !cfg.Enabled {
		log.Warn().Msg("Object storage disabled; audio feedback uploads are unavailable")
		return nil, nil
	}
	return repository.NewMinIOArtifactRepository(cfg, log)
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting EduJury on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

// Shutdown drains in-flight requests before closing the publisher and the
// database they may still be using.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down EduJury...")

	serverErr := a.server.Shutdown(ctx)

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return serverErr
}
