package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"comanda/internal/config"
	"comanda/internal/database"
	"comanda/internal/events"
	"comanda/internal/handler"
	"comanda/internal/mw"
	"comanda/internal/service"
	"comanda/internal/worker"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(context.Background(), db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Optional event publishing; the service runs fine without a broker.
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			slog.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub
	}

	// Services
	authSvc := service.NewAuthService(db)
	catalogSvc := service.NewCatalogService(db)
	sequenceSvc := service.NewSequenceService(db)
	idemSvc := service.NewIdempotencyService(db, cfg.IdempotencyRetention)
	pendingSvc := service.NewPendingOrderService(db, catalogSvc)
	admissionSvc := service.NewAdmissionService(db, catalogSvc, sequenceSvc, pendingSvc, publisher)
	statusSvc := service.NewStatusService(db, pendingSvc)

	// Worker
	sweeper := worker.NewSweeper(pendingSvc, idemSvc, sequenceSvc, cfg.SweepInterval, cfg.PendingTTL, cfg.SequenceKeep)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes: staff onboarding plus everything the customer's
	// phone hits after scanning a table QR code.
	r.Post("/api/staff/register", handler.RegisterStaffHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/staff/login", handler.LoginStaffHandler(authSvc, cfg.JWTSecret))
	r.Get("/api/products", handler.ListProductsHandler(catalogSvc))
	r.Post("/api/pending-orders", handler.SubmitPendingHandler(pendingSvc))
	r.Get("/api/orders/{id}/status", handler.OrderStatusHandler(statusSvc))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/api/products", handler.CreateProductHandler(catalogSvc))
		r.Get("/api/pending-orders", handler.ListPendingHandler(pendingSvc))
		r.Post("/api/pending-orders/{id}/accept", handler.AcceptPendingHandler(admissionSvc, idemSvc))
		r.Post("/api/pending-orders/{id}/reject", handler.RejectPendingHandler(pendingSvc))
		r.Post("/api/orders", handler.CreateOrderHandler(admissionSvc, idemSvc))
		r.Post("/api/orders/{id}/status", handler.TransitionOrderHandler(statusSvc))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
