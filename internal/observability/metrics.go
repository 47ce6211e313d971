package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the world server's Prometheus collectors. It satisfies
// world.CacheObserver so grids report cache activity directly.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec

	tickDuration   prometheus.Histogram
	weatherUpdates *prometheus.CounterVec
	tracksPruned   prometheus.Counter
	ambientEvents  *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
//
// Postcondition: Returns Metrics with every collector registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudworld_grid_cache_hits_total",
			Help: "Grid location lookups served from the cache, by grid",
		}, []string{"grid"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudworld_grid_cache_misses_total",
			Help: "Grid locations instantiated on access, by grid",
		}, []string{"grid"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudworld_grid_cache_evictions_total",
			Help: "Grid locations dropped from the cache, by grid",
		}, []string{"grid"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mudworld_simulation_tick_duration_seconds",
			Help:    "Duration of a simulation tick",
			Buckets: prometheus.DefBuckets,
		}),
		weatherUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudworld_weather_updates_total",
			Help: "Weather randomization steps, by area",
		}, []string{"area"}),
		tracksPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mudworld_tracks_pruned_total",
			Help: "Tracks removed by trail pruning",
		}),
		ambientEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudworld_ambient_events_total",
			Help: "Ambient event hook calls, by area and outcome",
		}, []string{"area", "outcome"}),
	}
	reg.MustRegister(
		m.cacheHits, m.cacheMisses, m.cacheEvictions,
		m.tickDuration, m.weatherUpdates, m.tracksPruned, m.ambientEvents,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// CacheHit records a cached grid lookup.
func (m *Metrics) CacheHit(grid string) { m.cacheHits.WithLabelValues(grid).Inc() }

// CacheMiss records a grid location instantiation.
func (m *Metrics) CacheMiss(grid string) { m.cacheMisses.WithLabelValues(grid).Inc() }

// CacheEvict records a grid location dropped from the cache.
func (m *Metrics) CacheEvict(grid string) { m.cacheEvictions.WithLabelValues(grid).Inc() }

// ObserveTick records the duration of one simulation tick.
func (m *Metrics) ObserveTick(d time.Duration) { m.tickDuration.Observe(d.Seconds()) }

// WeatherUpdated records a weather step for area.
func (m *Metrics) WeatherUpdated(area string) { m.weatherUpdates.WithLabelValues(area).Inc() }

// TracksPruned records n pruned tracks.
func (m *Metrics) TracksPruned(n int) { m.tracksPruned.Add(float64(n)) }

// AmbientFired records an ambient hook call; ok is false when the hook failed.
func (m *Metrics) AmbientFired(area string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.ambientEvents.WithLabelValues(area, outcome).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
//
// Precondition: addr must be a valid "host:port" listen address.
// Postcondition: Returns nil after a clean shutdown, or the listen/serve error.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics endpoint: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving metrics: %w", err)
	}
}
