package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/config"
	"techtrack-backend/internal/database"
	"techtrack-backend/internal/fanout"
	"techtrack-backend/internal/handlers"
	"techtrack-backend/internal/logger"
	"techtrack-backend/internal/middleware"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/services"
	"techtrack-backend/internal/snapshot"
	"techtrack-backend/internal/tracking"
	"techtrack-backend/internal/websocket"
)

const defaultFirebaseFile = "./firebase-service-account.json"

// backend is what the server needs from a storage driver
type backend interface {
	tracking.Store
	snapshot.Reader
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "dev")
		boot.Fatal().Err(err).Msg("❌ FATAL: invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	log.Info().Msg("═══════════════════════════════════════════════════════════════════")
	log.Info().Msg("🚀 TECHTRACK BACKEND STARTING")
	log.Info().Msg("═══════════════════════════════════════════════════════════════════")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("❌ FATAL: storage initialization failed")
	}
	defer closeStore()

	sinks, closeSinks := openSinks(ctx, cfg, log)

	hub := websocket.NewHub(log, sinks...)
	go hub.Run(ctx)
	log.Info().Msg("✅ WebSocket hub started")

	engine := tracking.NewEngine(store, log)
	snapshots := snapshot.NewService(store)
	dispatcher := websocket.NewDispatcher(engine, snapshots, hub, cfg.HistoryLimit, log)

	auth := middleware.NewAuthenticator(cfg.JWTSecret, log)
	if cfg.JWTSecret == "" {
		log.Warn().Msg("⚠️  APP_JWT_SECRET not set - authenticated API routes will reject every request")
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health(store, log))

	// Token is optional unless WS_REQUIRE_AUTH is set
	r.Get("/ws", websocket.HandleWebSocket(hub, dispatcher, websocket.HandlerOptions{
		Auth:        auth,
		RequireAuth: cfg.WSRequireAuth,
	}))

	r.Route("/api", func(r chi.Router) {
		// Called by the mobile background task, which has no session
		r.Post("/technician/{id}/background-location", handlers.UpdateBackgroundLocation(engine, hub, log))

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)

			r.Get("/technicians/locations", handlers.GetTechniciansWithLocation(snapshots, log))
			r.Get("/technicians", handlers.GetAllTechnicians(snapshots, log))
			r.Get("/technician/{id}/location-history", handlers.GetLocationHistory(snapshots, log))
			r.Get("/routes/active", handlers.GetActiveRoutes(snapshots, log))
			r.Get("/routes/job/{jobId}", handlers.GetJobRoute(snapshots, log))
		})

		// Technician endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Use(middleware.RequireRole(models.RoleTechnician))

			r.Put("/technician/{id}/toggle-tracking", handlers.ToggleTracking(engine, hub, log))
			r.Put("/jobs/{id}/accept", handlers.AcceptJob(engine, hub, log))
			r.Put("/jobs/{id}/start", handlers.StartJob(engine, hub, log))
			r.Put("/jobs/{id}/complete", handlers.CompleteJob(engine, hub, log))
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/admin/assign-job", handlers.AssignJob(engine, log))
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════════")
	log.Info().Msg("✅ ALL INITIALIZATION COMPLETE")
	log.Info().Str("port", cfg.Port).Msgf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Info().Msg("🔌 Ready to accept requests!")
	log.Info().Msg("═══════════════════════════════════════════════════════════════════")

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Str("port", cfg.Port).Msg("❌ FATAL ERROR: Server failed to start")
		}
	case <-ctx.Done():
		log.Info().Msg("🛑 Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ HTTP server shutdown failed")
	}

	stop()
	closeSinks()
	log.Info().Msg("👋 Server stopped")
}

// openStore connects the configured storage driver and applies schema/seed
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (backend, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("⚠️  Using in-memory storage - state is lost on restart")
		mem := database.NewMemoryStore()
		if cfg.SeedOnStart {
			if err := mem.Seed(ctx, log); err != nil {
				return nil, nil, err
			}
		}
		return mem, func() {}, nil

	default:
		db, err := database.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, log); err != nil {
			db.Close()
			return nil, nil, err
		}
		if cfg.SeedOnStart {
			if err := database.Seed(ctx, db, log); err != nil {
				log.Warn().Err(err).Msg("⚠️  Failed to seed data")
			}
		}
		return database.NewStore(db), func() { db.Close() }, nil
	}
}

// openSinks builds the optional fan-out targets for admin broadcasts.
// Either one failing to start only disables that sink.
func openSinks(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]fanout.Sink, func()) {
	var (
		sinks   []fanout.Sink
		closers []func()
	)

	log.Info().Msg("🔔 Initializing Firebase Cloud Messaging...")
	var (
		fcm    *services.FCMService
		fcmErr error
	)
	switch {
	case cfg.FirebaseBase64 != "":
		fcm, fcmErr = services.NewFCMServiceFromBase64(ctx, cfg.FirebaseBase64, cfg.FCMAdminTopic, log)
	case cfg.FirebaseFile != "":
		fcm, fcmErr = services.NewFCMService(ctx, cfg.FirebaseFile, cfg.FCMAdminTopic, log)
	default:
		if _, err := os.Stat(defaultFirebaseFile); err == nil {
			fcm, fcmErr = services.NewFCMService(ctx, defaultFirebaseFile, cfg.FCMAdminTopic, log)
		}
	}
	switch {
	case fcmErr != nil:
		log.Warn().Err(fcmErr).Msg("⚠️  Failed to initialize FCM - push notifications disabled")
	case fcm == nil:
		log.Info().Msg("ℹ️  No Firebase credentials configured - push notifications disabled")
	default:
		filtered := fanout.NewFilter(fcm, websocket.EventRouteStarted, websocket.EventRouteCompleted, websocket.EventTechGPSChanged)
		async := fanout.NewAsync(filtered, 256, log)
		sinks = append(sinks, async)
		closers = append(closers, async.Close)
		log.Info().Str("topic", cfg.FCMAdminTopic).Msg("✅ Firebase Cloud Messaging initialized")
	}

	if cfg.AMQPURL != "" {
		log.Info().Msg("🐇 Connecting to RabbitMQ...")
		sink, err := fanout.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, 5, log)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to connect to RabbitMQ - event mirror disabled")
		} else {
			async := fanout.NewAsync(sink, 1024, log)
			sinks = append(sinks, async)
			closers = append(closers, func() {
				async.Close()
				if err := sink.Close(); err != nil {
					log.Warn().Err(err).Msg("⚠️  RabbitMQ close failed")
				}
			})
			log.Info().Str("exchange", cfg.AMQPExchange).Msg("✅ RabbitMQ event mirror ready")
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
