package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "peerhelp/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"peerhelp/internal/auth"
	"peerhelp/internal/cache"
	"peerhelp/internal/config"
	"peerhelp/internal/db"
	"peerhelp/internal/handler"
	"peerhelp/internal/logging"
	"peerhelp/internal/mail"
	"peerhelp/internal/realtime"
	"peerhelp/internal/repository"
	"peerhelp/internal/router"
	"peerhelp/internal/seed"
	"peerhelp/internal/service"
	"peerhelp/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title PeerHelp API
// @version 1.0
// @description Peer-help Q&A platform: questions, answers, votes, chats, notifications and moderation.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	host, _ := os.Hostname()
	reporter := logging.NewReporter(cfg.RollbarToken, cfg.Env, host)
	defer reporter.Close()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if cfg.ResetDB {
		slog.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		slog.Warn("redis unavailable, sessions and caches will fail", "addr", cfg.RedisAddr, "error", err)
	}
	cancelPing()

	files, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return err
	}
	mailer := mail.NewSender(cfg.SendgridAPIKey, cfg.MailFrom, "PeerHelp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub outlives in-flight requests so their notifications still reach
	// live sessions during shutdown.
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := realtime.NewHub()
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	questionRepo := repository.NewQuestionRepository(gormDB)
	answerRepo := repository.NewAnswerRepository(gormDB)
	voteRepo := repository.NewVoteRepository(gormDB)
	reportRepo := repository.NewReportRepository(gormDB)
	chatRepo := repository.NewChatRepository(gormDB)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	relay := service.NewNotificationRelay(notificationRepo, cacheClient, hub)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, files, mailer, cacheClient, cfg.ClientURL)
	userService := service.NewUserService(userRepo, files, cacheClient)
	questionService := service.NewQuestionService(questionRepo)
	answerService := service.NewAnswerService(answerRepo, questionRepo, relay)
	voteService := service.NewVoteService(voteRepo, questionRepo, answerRepo, relay)
	chatService := service.NewChatService(chatRepo, userRepo, relay)
	notificationService := service.NewNotificationService(notificationRepo, cacheClient, hub)
	reportService := service.NewReportService(reportRepo, questionRepo, cacheClient)
	adminService := service.NewAdminService(userRepo, questionRepo, answerRepo, files, cacheClient)
	searchService := service.NewSearchService(questionRepo, answerRepo, userRepo)

	// Initialize handlers
	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(authService, jwtService, handler.CookieConfig{
			Secure:    cfg.CookieSecure,
			AccessTTL: cfg.AccessTokenTTL,
		}),
		User:         handler.NewUserHandler(userService),
		Question:     handler.NewQuestionHandler(questionService),
		Answer:       handler.NewAnswerHandler(answerService),
		Vote:         handler.NewVoteHandler(voteService),
		Chat:         handler.NewChatHandler(chatService),
		Notification: handler.NewNotificationHandler(notificationService),
		Report:       handler.NewReportHandler(reportService),
		Admin:        handler.NewAdminHandler(adminService),
		Search:       handler.NewSearchHandler(searchService),
		WS:           handler.NewWSHandler(hubCtx, hub, jwtService, authService, cfg.ClientURL, !cfg.IsProduction()),
	}
	if !cfg.IsProduction() {
		handlers.Seed = handler.NewSeedHandler(seed.NewSeeder(userRepo, questionRepo, answerRepo))
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, handlers, authService, handler.NewHTTPErrorHandler(reporter))

	if cfg.SwaggerHost != "" {
		slog.Info("swagger documentation available", "url", cfg.SwaggerHost+"/swagger/index.html")
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		slog.Info("server listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			stopHub()
			relay.Close()
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	// Drain queued notifications, then close live sessions.
	relay.Close()
	stopHub()
	<-hubDone

	slog.Info("server stopped")
	return nil
}
