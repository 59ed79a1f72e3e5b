package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinScan/internal/observer"
	"FinScan/internal/usecase"
	"FinScan/pkg/config"
	xhttp "FinScan/pkg/http"
	pkgkafka "FinScan/pkg/kafka"
	applogger "FinScan/pkg/logger"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer
	hub        *observer.Hub
	closers    []namedCloser
}

// Option attaches optional components.
type Option func(*App)

func WithScheduler(s *usecase.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

func WithHub(h *observer.Hub) Option {
	return func(a *App) { a.hub = h }
}

// WithCloser registers infrastructure closed last, in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &App{cfg: cfg, l: l, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			_ = a.shutdown()
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.Topics.Requests))
	}

	a.l.Info("finscan started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("scheduler", a.scheduler != nil),
		applogger.Bool("consumer", a.consumer != nil),
		applogger.Bool("websocket", a.hub != nil),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then in-flight work, then infrastructure.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.hub != nil {
		_ = a.hub.Close()
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
