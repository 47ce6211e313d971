// Package server provides application lifecycle management including
// graceful startup and shutdown with signal handling.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component. Run blocks until ctx is
// cancelled or the service fails.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function into the Service interface.
type ServiceFunc func(ctx context.Context) error

// Run calls f.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// BackgroundService adapts a component that starts its own goroutine and
// stops when ctx is cancelled, such as the simulation tick loop.
type BackgroundService func(ctx context.Context)

// Run starts the component and blocks until ctx is cancelled.
func (f BackgroundService) Run(ctx context.Context) error {
	f(ctx)
	<-ctx.Done()
	return nil
}

// Hook is a shutdown step, run after every service has returned.
type Hook func(ctx context.Context) error

// Lifecycle manages the startup and shutdown of multiple services.
// Services start in the order added; shutdown hooks run in reverse order.
type Lifecycle struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	services []namedService
	hooks    []namedHook
}

type namedService struct {
	name    string
	service Service
}

type namedHook struct {
	name string
	hook Hook
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:          logger,
		shutdownTimeout: 10 * time.Second,
	}
}

// Add registers a named service for lifecycle management.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnShutdown registers a hook run during shutdown, after services stop.
//
// Precondition: name must be non-empty; hook must be non-nil.
func (l *Lifecycle) OnShutdown(name string, hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, namedHook{name: name, hook: hook})
}

// Run starts all services and blocks until a termination signal is received
// (SIGINT or SIGTERM), ctx is cancelled, or a service fails. Services are
// then cancelled and awaited, and shutdown hooks run in reverse order.
//
// Postcondition: All services have returned. Returns the first service
// failure joined with any hook failures, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	hooks := append([]namedHook(nil), l.hooks...)
	l.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(services))
	for _, ns := range services {
		ns := ns
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service",
				zap.String("service", ns.name),
			)
			svcStart := time.Now()
			err := ns.service.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
				return
			}
			l.logger.Info("service stopped",
				zap.String("service", ns.name),
				zap.Duration("uptime", time.Since(svcStart)),
			)
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down",
			zap.Error(runErr),
		)
	case <-runCtx.Done():
		l.logger.Info("context cancelled, shutting down")
		select {
		case runErr = <-errCh:
		default:
		}
	}

	cancel()
	wg.Wait()

	hookErr := l.shutdown(hooks)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return errors.Join(runErr, hookErr)
}

func (l *Lifecycle) shutdown(hooks []namedHook) error {
	shutdownStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		nh := hooks[i]
		hookStart := time.Now()
		if err := nh.hook(ctx); err != nil {
			l.logger.Error("shutdown hook failed",
				zap.String("hook", nh.name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("shutdown hook %s: %w", nh.name, err))
			continue
		}
		l.logger.Info("shutdown hook completed",
			zap.String("hook", nh.name),
			zap.Duration("elapsed", time.Since(hookStart)),
		)
	}
	l.logger.Info("all shutdown hooks run",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
	return errors.Join(errs...)
}
