package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lms-user-service/internal/bootstrap"
	"lms-user-service/internal/core/config"
	"lms-user-service/internal/core/logger"
	"lms-user-service/internal/core/server"
	"lms-user-service/internal/transport/http/handler"
	"lms-user-service/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	log, cleanup := bootstrap.Logger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	userH := handler.NewUserHandler(stack.Service, log.Named("http"))
	r := router.NewAPIEngine(log.Named("http"), bootstrap.EngineOptions(cfg), router.NewRegistry(userH), stack.Checks)

	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(server.Options{
		Name:         "api",
		Addr:         addr,
		ReadTimeout:  h.ReadTimeout(),
		WriteTimeout: h.WriteTimeout(),
		IdleTimeout:  h.IdleTimeout(),
	}, r, log)

	host4human := h.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(h.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("users", baseURL+"/api/v1/users"),
		zap.String("db", cfg.DB.Driver),
	)

	if err := server.Run(ctx, srv, 10*time.Second, log); err != nil {
		log.Error("user api stopped with error", zap.Error(err))
		return
	}
	log.Info("user api stopped gracefully")
}
