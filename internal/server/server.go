package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tx-signer/internal/flow"
	"github.com/vultisig/tx-signer/internal/metrics"
)

type Config struct {
	Host       string        `envconfig:"HOST" default:"0.0.0.0"`
	Port       int           `envconfig:"PORT" default:"8080"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"1h"`
}

// WalletOpener returns a fresh connector for one page, or nil when no wallet is configured.
type WalletOpener func() flow.Connector

type Server struct {
	cfg     Config
	logger  *logrus.Logger
	runner  *flow.Runner
	wallets WalletOpener
	store   *Store
	echo    *echo.Echo

	runCtx context.Context
	runs   sync.WaitGroup
}

func NewServer(cfg Config, runner *flow.Runner, wallets WalletOpener, logger *logrus.Logger) *Server {
	if wallets == nil {
		wallets = func() flow.Connector { return nil }
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		runner:  runner,
		wallets: wallets,
		store:   NewStore(cfg.SessionTTL),
		runCtx:  context.Background(),
	}
	s.echo = s.routes()
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newPageRenderer()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogMethod: true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			}
			if v.Error != nil {
				s.logger.WithFields(fields).WithError(v.Error).Error("request failed")
				return nil
			}
			s.logger.WithFields(fields).Debug("request")
			return nil
		},
	}))
	e.Use(metrics.HTTPMiddleware("/healthz"))

	e.GET("/", s.handlePage)
	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api/sessions")
	api.GET("/:id", s.handleGetSession)
	api.POST("/:id/connect", s.handleConnect)
	api.POST("/:id/submit", s.handleSubmit)

	return e
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts the listener down and waits for in-flight runs.
// Runs started by submit are bound to ctx, so cancelling it also aborts pending confirmations.
func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx
	go s.store.Run(ctx, time.Minute)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("server listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.echo.Shutdown(shutdownCtx)
	s.runs.Wait()
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) dispatch(ctx context.Context, ps *PageSession, mode string) error {
	switch mode {
	case flow.ModeMainnet:
		return s.runner.Submit(ctx, ps.State, ps.Set, ps.Wallet())
	case flow.ModeTestnet:
		return s.runner.SubmitTestnet(ctx, ps.State, ps.Set, ps.Params, ps.Wallet())
	case flow.ModeDemo:
		return s.runner.SubmitDemo(ctx, ps.State, ps.Set, ps.Wallet())
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func (s *Server) submitAsync(ps *PageSession, mode string) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()

		err := s.dispatch(s.runCtx, ps, mode)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"session": ps.ID,
				"mode":    mode,
			}).WithError(err).Warn("submission failed")
		}
	}()
}
