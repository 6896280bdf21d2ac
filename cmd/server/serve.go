package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/modern360/internal/api"
	"github.com/soaringjerry/modern360/internal/db"
	"github.com/soaringjerry/modern360/internal/notify"
	"github.com/soaringjerry/modern360/internal/services"
	"github.com/soaringjerry/modern360/internal/utils"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	conn, err := a.openDB()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.RunMigrations(conn); err != nil {
		return err
	}
	if a.cfg.AdminUsername == "" || a.cfg.AdminPasswordHash == "" {
		a.logger.Warn("ADMIN_USERNAME or ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	rt := api.NewRouter(db.NewStore(conn), notify.New(a.cfg, a.logger), api.Options{
		JWTSecret:       []byte(a.cfg.JWTSecret),
		Admin:           services.AdminCredentials{Username: a.cfg.AdminUsername, PasswordHash: a.cfg.AdminPasswordHash},
		DefaultLanguage: a.cfg.DefaultLanguage,
		Commit:          a.cfg.Commit,
		BuildTime:       a.cfg.BuildTime,
	})
	e := api.NewServer(rt, a.logger)
	a.mountFrontend(e)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("modern360 listening", "addr", a.cfg.Addr, "driver", a.cfg.DBDriver, "mail", a.cfg.Mail.Enabled())
		errCh <- e.Start(a.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// mountFrontend serves the built frontend from MODERN360_STATIC_DIR, or
// proxies to a dev server at MODERN360_DEV_FRONTEND_URL.
func (a *app) mountFrontend(e *echo.Echo) {
	if dir := utils.SafeEnv("MODERN360_STATIC_DIR", ""); dir != "" {
		e.GET("/*", echo.WrapHandler(http.FileServer(http.Dir(dir))))
		return
	}
	devURL := utils.SafeEnv("MODERN360_DEV_FRONTEND_URL", "")
	if devURL == "" {
		return
	}
	u, err := url.Parse(devURL)
	if err != nil {
		a.logger.Warn("invalid MODERN360_DEV_FRONTEND_URL", "url", devURL, "err", err)
		return
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		return nil
	}
	e.Any("/*", echo.WrapHandler(rp))
}
