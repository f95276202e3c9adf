package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"live-session-service/config"
	"live-session-service/constant"
	jobHandler "live-session-service/handler"
	"live-session-service/pkg/janus"
	"live-session-service/pkg/rabbitmq"
	"live-session-service/pkg/storage"
	"live-session-service/repository"
	"live-session-service/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	publisher, err := rabbitmq.NewPublisher(conn, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to declare queue topology")
	}

	repo := repository.NewRepo(cfg.DB)
	store := storage.NewMinioStore(cfg.Storage, cfg.MinIOBucket)
	signaling := janus.NewClient(cfg.Janus.Url, cfg.Janus.AdminKey, cfg.Recording.Dir, cfg.Janus.MaxPublishers, cfg.Janus.Timeout)

	recordingService := service.NewRecordingService(repo, store, publisher, cfg)
	liveService := service.NewLiveService(repo, signaling, recordingService)

	r := gin.Default()
	r.Use(loggerContext(ctx))
	addHealth(r)
	jobHandler.NewHandler(liveService, recordingService).Register(r, cfg.Auth.JwtSecret)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// loggerContext carries the root logger into each request context so
// zerolog.Ctx works downstream.
func loggerContext(ctx context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(ctx)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
