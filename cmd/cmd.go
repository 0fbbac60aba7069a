package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duet-backend/internal/config"
	"duet-backend/internal/handlers"
	"duet-backend/internal/middleware"
	"duet-backend/internal/provider"
	"duet-backend/internal/repository"
	"duet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run wires the application together and serves it until interrupted.
func Run() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)

	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewPairRequestRepository(db)
	pairingRepo := repository.NewPairingRepository(db)
	postRepo := repository.NewDualPostRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	dualProfileRepo := repository.NewDualProfileRepository(db)

	// Services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	pairingService := services.NewPairingService(requestRepo, pairingRepo)
	postService := services.NewPostService(postRepo)
	profileService := services.NewProfileService(profileRepo, dualProfileRepo)

	uploadService, err := services.NewUploadService(
		context.Background(),
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload service")
	}

	generator := provider.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	promptService := services.NewPromptService(generator, services.GenerateOptions{
		Count:       cfg.OpenAI.BatchSize,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
	})

	wsHub := services.NewWSHub()

	var pushService *services.PushService
	if cfg.APNs.KeyFile != "" {
		pushService, err = services.NewPushService(
			cfg.APNs.KeyFile,
			cfg.APNs.KeyID,
			cfg.APNs.TeamID,
			cfg.APNs.BundleID,
			cfg.APNs.Production,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
	} else {
		log.Warn().Msg("APNs not configured, push notifications disabled")
	}
	notifier := services.NewNotifier(wsHub, pushService, userRepo)

	// Handlers
	userHandler := handlers.NewUserHandler(userService, pairingService, postService, profileService)
	pairingHandler := handlers.NewPairingHandler(pairingService, userService, postService, profileService, notifier)
	postHandler := handlers.NewPostHandler(postService, pairingService, uploadService, notifier)
	profileHandler := handlers.NewProfileHandler(profileService, pairingService, userService)
	promptHandler := handlers.NewPromptHandler(promptService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/session", userHandler.GetSession)
			r.Delete("/users", userHandler.DeleteUser)
			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.SetProfile)
			r.Get("/dual-profile", profileHandler.GetDualProfile)
			r.Put("/dual-profile/start-time", profileHandler.UpdateStartTime)
			r.Post("/dual-profile/scrapbook", profileHandler.AppendScrapbook)

			r.Get("/partner", pairingHandler.GetPartner)
			r.Post("/partner/requests/{code}", pairingHandler.RequestPartner)
			r.Delete("/partner/requests", pairingHandler.RemoveRequest)
			r.Delete("/partner", pairingHandler.RemovePartner)

			r.Post("/posts", postHandler.Propose)
			r.Get("/posts", postHandler.ListApproved)
			r.Get("/posts/personal", postHandler.ListPersonal)
			r.Put("/posts/{id}", postHandler.Modify)
			r.Put("/posts/{id}/approve", postHandler.Approve)
			r.Delete("/posts/{id}/deny", postHandler.Deny)
			r.Delete("/posts", postHandler.Delete)
			r.Post("/posts/upload-url", postHandler.NewUploadURL)

			r.Get("/prompt", promptHandler.GetPrompt)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
