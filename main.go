package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messenger-client/internal/config"
	"messenger-client/internal/db"
	"messenger-client/internal/gateway"
	"messenger-client/internal/handlers"
	"messenger-client/internal/logger"
	"messenger-client/internal/middleware"
	"messenger-client/internal/observability"
	"messenger-client/internal/push"
	"messenger-client/internal/rabbitmq"
	"messenger-client/internal/repositories"
	"messenger-client/internal/session"
	"messenger-client/internal/telemetry"
	"messenger-client/internal/ws"
)

const (
	serviceName     = "messenger-client"
	auditRoutingKey = "audit.client"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	log.Info("publisher ready", zap.String("mode", rabbitmq.PublisherMode(publisher)), zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)))
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, auditRoutingKey, serviceName, cfg.Environment, log)

	api := gateway.NewClient(cfg.BackendURL, cfg.Token, cfg.RequestTimeout)
	user, err := api.CurrentUser(ctx)
	if err != nil {
		log.Fatal("failed to load session user", zap.Error(err))
	}
	log.Info("signed in", zap.Int("user_id", user.ID), zap.String("username", user.Username))

	var channel push.Channel
	var pushDone <-chan struct{}
	if cfg.Offline() {
		log.Warn("push channel disabled, running offline")
		channel = push.NewBus()
	} else {
		socket, err := ws.Dial(ctx, cfg.PushURL, ws.Options{Token: cfg.Token, UserID: user.ID, Logger: log})
		if err != nil {
			log.Fatal("failed to connect push channel", zap.Error(err))
		}
		defer socket.Close()
		log.Info("push channel connected", zap.String("conn_id", socket.Info().ConnID))
		channel = socket
		pushDone = socket.Done()
	}

	deps := session.Deps{
		User:          user,
		API:           api,
		Push:          channel,
		Audit:         auditEmitter,
		Logger:        log,
		QueueSize:     cfg.QueueSize,
		EffectTimeout: cfg.RequestTimeout,
	}
	if cfg.DBDSN != "" {
		database, err := db.Connect(cfg.DBDSN, log)
		if err != nil {
			log.Warn("snapshot cache disabled", zap.Error(err))
		} else {
			defer database.Close()
			deps.Cache = repositories.NewSnapshotRepo(database)
		}
	}

	sess := session.New(deps)
	loopDone := make(chan error, 1)
	go func() { loopDone <- sess.Run(ctx) }()

	if err := sess.Load(ctx); err != nil {
		log.Error("initial conversation load failed", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	local := router.Group("/", middleware.AuthMiddleware(cfg.APIToken, user.ID))
	handlers.NewConversationHandler(sess).Register(local)
	handlers.RegisterDebugRoutes(local, auditEmitter, sess, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("local api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-loopDone:
		log.Info("session ended", zap.Error(err))
	case <-pushDone:
		log.Warn("push channel closed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	if err := sess.Close(); err != nil {
		log.Warn("session close", zap.Error(err))
	}
}
