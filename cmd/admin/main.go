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
	"lms-user-service/internal/core/auth"
	"lms-user-service/internal/core/config"
	"lms-user-service/internal/core/logger"
	"lms-user-service/internal/core/server"
	"lms-user-service/internal/transport/http/handler"
	"lms-user-service/internal/transport/http/router"
	"lms-user-service/pkg/utils"
)

const usage = `usage:
  admin             start the operations server
  admin hash <pw>   print a bcrypt hash for admin.passwordHash
`

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash":
			os.Exit(runHash(os.Args[2:]))
		case "-h", "--help", "help":
			fmt.Print(usage)
			return
		default:
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
	}
	os.Exit(runServer())
}

func runHash(args []string) int {
	if len(args) != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	h, err := utils.HashPassword(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash:", err)
		return 1
	}
	fmt.Println(h)
	return 0
}

func runServer() int {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	log, cleanup := bootstrap.Logger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	jwter, err := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	if err != nil {
		log.Error("jwt config", zap.Error(err))
		return 1
	}
	if cfg.Admin.PasswordHash == "" {
		log.Warn("admin.passwordHash is empty, token endpoint will reject every login")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	adminH := handler.NewAdminHandler(stack.Service, handler.AdminCredential{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, jwter, log.Named("admin"))
	r := router.NewAdminEngine(log.Named("http"), bootstrap.EngineOptions(cfg), adminH, jwter, router.NewRegistry(adminH), stack.Checks)

	a := cfg.App.Admin
	addr := server.Addr(a.Host, a.Port)
	srv := server.BuildServer(server.Options{
		Name:         "admin",
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, r, log)

	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", "http://"+addr+"/health"),
		zap.String("admin_v1", "http://"+addr+"/admin/v1"),
	)
	if err := server.Run(ctx, srv, 10*time.Second, log); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
		return 1
	}
	log.Info("admin api stopped gracefully")
	return 0
}
