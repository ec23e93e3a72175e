// Package server is the composition root: it opens the store, the event
// publisher and the object store, wires services to handlers, mounts the
// routes and runs the HTTP server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/auth"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/config"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/events"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/events/kafka"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/handler"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/metrics"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/middleware"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/objectstore"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository/postgres"
	sqliteRepo "github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository/sqlite"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/service"
)

const shutdownTimeout = 30 * time.Second

// store is a document store the server owns and closes on shutdown.
type store interface {
	repository.UserRepository
	io.Closer
}

// Server owns every long-lived resource of the process.
type Server struct {
	cfg       config.Config
	logger    *slog.Logger
	router    *chi.Mux
	store     store
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// New opens the backends named in cfg and builds the router. On error,
// anything already opened is closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    chi.NewRouter(),
		store:     st,
		publisher: openPublisher(cfg, logger),
		metrics:   metrics.New(),
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.DBDriver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return st, nil
	default:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

func openPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no KAFKA_BROKERS configured, ledger events are not published")
		return events.Nop{}
	}
	logger.Info("publishing ledger events",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", cfg.KafkaTopic),
	)
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// openUploader picks Cloudinary when configured. The returned *Local is
// non-nil only for the disk store, whose files the router must serve.
func openUploader(cfg config.Config) (objectstore.Uploader, *objectstore.Local, error) {
	if cfg.CloudinaryURL != "" {
		c, err := objectstore.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	local, err := objectstore.NewLocal(cfg.UploadDir, cfg.PublicURL)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

// setupRoutes mounts
//
//	GET  /                                  banner
//	GET  /healthz                           health check
//	GET  /metrics                           Prometheus
//	GET  /uploads/*                         local profile pictures
//	POST /api/users/signup, /login          public
//	*    /api/users/...                     bearer token required
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.JWTTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(s.cfg.BcryptCost)

	uploader, local, err := openUploader(s.cfg)
	if err != nil {
		return err
	}

	ledgerSvc := service.NewLedgerService(s.store, s.publisher, s.metrics, s.logger, s.cfg.StoreRetries)
	accountSvc := service.NewAccountService(s.store, tokens, passwords, s.logger)
	imageSvc := service.NewProfileImageService(s.store, uploader, ledgerSvc, s.logger)

	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, s.logger)
	accountHandler := handler.NewAccountHandler(accountSvc, s.logger)
	imageHandler := handler.NewProfileImageHandler(imageSvc, s.cfg.MaxUploadBytes, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Get("/", handler.HandleIndex)
	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	if local != nil {
		s.router.Handle(objectstore.URLPrefix+"/*", local.Handler())
	}

	s.router.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", accountHandler.HandleSignup)
		r.Post("/login", accountHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/profile", ledgerHandler.HandleProfile)
			r.Get("/transaction-history", ledgerHandler.HandleHistory)

			r.Post("/add-debt", ledgerHandler.HandleAdd(model.KindDebt))
			r.Put("/update-debt/{id}", ledgerHandler.HandleUpdate(model.KindDebt))
			r.Delete("/delete-debt/{id}", ledgerHandler.HandleDelete(model.KindDebt))

			r.Post("/add-owed", ledgerHandler.HandleAdd(model.KindCredit))
			r.Put("/update-owed/{id}", ledgerHandler.HandleUpdate(model.KindCredit))
			r.Delete("/delete-owed/{id}", ledgerHandler.HandleDelete(model.KindCredit))

			r.Post("/upload-image", imageHandler.HandleUpload)
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the event publisher.
func (s *Server) Close() error {
	return errors.Join(s.publisher.Close(), s.store.Close())
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the backends.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", s.cfg.PublicURL),
			slog.String("database", s.cfg.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
