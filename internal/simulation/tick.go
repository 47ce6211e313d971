// Package simulation drives the periodic world simulations: weather random
// walks, trail pruning and ambient area events.
package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of tick work. now is the tick's wall-clock time.
type Task func(ctx context.Context, now time.Time)

// TickObserver receives tick durations, typically to export metrics.
type TickObserver interface {
	ObserveTick(d time.Duration)
}

type nopTickObserver struct{}

func (nopTickObserver) ObserveTick(time.Duration) {}

// TickManager runs every registered task once per interval.
// Tasks run sequentially in name order within the manager's goroutine.
//
// Invariant: all tasks are invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	observer TickObserver
	logger   *zap.Logger

	mu    sync.Mutex
	tasks map[string]Task
	clock func() time.Time
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration, observer TickObserver, logger *zap.Logger) *TickManager {
	if interval <= 0 {
		panic("simulation.NewTickManager: interval must be > 0")
	}
	if observer == nil {
		observer = nopTickObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickManager{
		interval: interval,
		observer: observer,
		logger:   logger,
		tasks:    make(map[string]Task),
		clock:    time.Now,
	}
}

// Register registers a task under name. Replaces any existing task.
func (m *TickManager) Register(name string, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[name] = task
}

// Unregister removes the task registered under name.
func (m *TickManager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, name)
}

// Tasks returns the registered task names in run order.
func (m *TickManager) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tasks))
	for name := range m.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tick runs every task once, in name order.
//
// Postcondition: The tick duration is reported to the observer.
func (m *TickManager) Tick(ctx context.Context) {
	start := m.clock()
	for _, name := range m.Tasks() {
		if ctx.Err() != nil {
			return
		}
		m.mu.Lock()
		task, ok := m.tasks[name]
		m.mu.Unlock()
		if ok {
			task(ctx, start)
		}
	}
	elapsed := m.clock().Sub(start)
	m.observer.ObserveTick(elapsed)
	m.logger.Debug("simulation tick", zap.Duration("elapsed", elapsed))
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered tasks are invoked once per interval.
func (m *TickManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick(ctx)
			}
		}
	}()
}
