// PokéSphere API server. Wires configuration, MongoDB, the session
// protocol, favorites, and the catalog sync worker into one chi router,
// and runs it with graceful shutdown.
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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/pokesphere-go/auth"
	"github.com/user/pokesphere-go/catalog"
	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/db"
	"github.com/user/pokesphere-go/logging"
	"github.com/user/pokesphere-go/store"
	"github.com/user/pokesphere-go/users"
)

func main() {
	// In development a .env file stands in for real environment variables.
	_ = godotenv.Load()

	logger := logging.Must(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	mongoClient, database, err := db.Connect(context.Background(), cfg.Mongo)
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		if err := db.Disconnect(mongoClient); err != nil {
			logger.Error("mongodb disconnect failed", zap.Error(err))
		}
	}()

	mongoStore := store.NewMongoStore(database)
	if err := mongoStore.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Catalog sync worker. In sync-only mode one pass runs in the
	// foreground and the process exits, which is handy for seeding a
	// fresh database.
	broadcaster := catalog.NewBroadcaster()
	syncer := catalog.NewSyncer(mongoStore, cfg.Catalog, broadcaster, logger)
	if cfg.Catalog.SyncOnly {
		if err := syncer.Run(context.Background()); err != nil {
			logger.Fatal("catalog sync failed", zap.Error(err))
		}
		return
	}
	syncStopChan := make(chan struct{})
	syncDone := syncer.Start(syncStopChan)

	tokenService := auth.NewTokenService(*cfg.Auth)
	mailSender := auth.NewSMTPSender(*cfg.Mail)
	codeIssuer := auth.NewCodeIssuer(mongoStore, mailSender, cfg.Auth.CodeDuration, logger)
	githubProvider := auth.NewGitHubProvider(*cfg.OAuth)

	authService := auth.NewService(mongoStore, mongoStore, tokenService, codeIssuer, githubProvider, logger)
	authHandlers := auth.NewHandler(authService, cfg.Auth.SecureCookies, logger)

	userService := users.NewService(mongoStore, logger)
	userHandlers := users.NewHandler(userService)

	catalogService := catalog.NewService(mongoStore, logger)
	catalogHandlers := catalog.NewHandler(catalogService, broadcaster)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		// Session lifecycle.
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Get("/logout", authHandlers.Logout)
		r.Get("/refreshToken", authHandlers.RefreshToken)
		r.Post("/sendVerificationEmail", authHandlers.SendVerificationEmail)
		r.Get("/forgotpassword", authHandlers.ForgotPassword)
		r.Post("/resetPassword", authHandlers.ResetPassword)

		// Catalog.
		r.Get("/fetchAllPokemons", catalogHandlers.FetchAllPokemons)
		r.Post("/fetchLikedPokemons", catalogHandlers.FetchLikedPokemons)
		r.Post("/fetchSavedPokemons", catalogHandlers.FetchSavedPokemons)
		r.Get("/syncProgress", catalogHandlers.SyncProgress)

		// User routes sit behind the access-token middleware.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAccessToken(tokenService))

			r.Get("/getUser", userHandlers.GetUser)
			r.Get("/likePokemon", userHandlers.LikePokemon)
			r.Get("/unlikePokemon", userHandlers.UnlikePokemon)
			r.Get("/savePokemon", userHandlers.SavePokemon)
			r.Get("/unsavePokemon", userHandlers.UnsavePokemon)
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/callback", authHandlers.GitHubCallback)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(syncStopChan)
	<-syncDone

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
