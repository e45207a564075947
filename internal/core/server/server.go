package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lms-user-service/internal/core/logger"
)

type Options struct {
	Name         string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func BuildServer(o Options, handler http.Handler, l *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              o.Addr,
		Handler:           handler,
		ReadTimeout:       o.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      o.WriteTimeout,
		IdleTimeout:       o.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
		ErrorLog:          logger.ToStdLogger(l.Named(o.Name), zapcore.WarnLevel),
	}
}

// Run 阻塞直到 ctx 结束，然后在 grace 内优雅关闭
func Run(ctx context.Context, srv *http.Server, grace time.Duration, l *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("http shutting down", zap.String("addr", srv.Addr))
	shutCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	return nil
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
