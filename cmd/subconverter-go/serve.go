package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrazyForks/subconverter-go/internal/httpapi"
	"github.com/CrazyForks/subconverter-go/internal/logger"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 转换服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, f.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			go a.primeRulesets(ctx)
			go a.watchReload(ctx)

			addr := f.cfg.Server.Listen
			if listen != "" {
				addr = listen
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewHandler(a.httpOptions()),
				ReadHeaderTimeout: f.cfg.Server.ReadHeaderTimeout,
			}
			return serve(ctx, srv, f.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP 监听地址，覆盖 server.listen")
	return cmd
}

// watchReload re-reads the settings file on SIGHUP until ctx is done.
func (a *app) watchReload(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.reloadSettings(ctx); err != nil {
				logger.Warn("重新加载设置失败，沿用旧设置", "path", a.cfg.Settings.Path, "err", err)
			}
		}
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	logger.Info("listening", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("graceful shutdown failed", "err", err)
			_ = srv.Close()
		}

		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
