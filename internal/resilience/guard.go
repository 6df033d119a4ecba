// Package resilience wraps outbound calls with per-dependency circuit
// breaking and rate limiting.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"flowforge/engine/pkg/types"
)

// GuardConfig tunes one dependency's breaker and limiter.
type GuardConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the breaker.
	FailureThreshold uint32 `yaml:"failure_threshold"`
	// OpenTimeout is how long an open breaker fails fast before the
	// half-open trial call.
	OpenTimeout time.Duration `yaml:"open_timeout"`
	// Window is the rolling interval over which breaker counts accumulate.
	Window time.Duration `yaml:"window"`

	// Reservoir is the token-bucket capacity (burst size).
	Reservoir int `yaml:"reservoir"`
	// RefillInterval is the period over which a full reservoir of tokens is
	// replenished.
	RefillInterval time.Duration `yaml:"refill_interval"`
	// MinTime is the minimum spacing between dispatches. Zero disables it.
	MinTime time.Duration `yaml:"min_time"`
	// MaxConcurrent caps in-flight calls. Zero disables the cap.
	MaxConcurrent int64 `yaml:"max_concurrent"`

	// CallTimeout is the per-call ceiling applied inside the guard.
	// Zero disables it.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// DefaultGuardConfig returns the stock per-dependency protection settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		Window:           60 * time.Second,
		Reservoir:        60,
		RefillInterval:   time.Minute,
		MinTime:          0,
		MaxConcurrent:    10,
		CallTimeout:      30 * time.Second,
	}
}

// Guard protects one named external dependency. Calls compose as
// rateLimit(circuitBreaker(call)): limiter waits apply backpressure first,
// then the breaker decides whether the call goes out at all.
type Guard struct {
	name      string
	breaker   *gobreaker.CircuitBreaker
	reservoir *rate.Limiter
	spacing   *rate.Limiter
	inflight  *semaphore.Weighted
	cfg       GuardConfig
}

func newGuard(name string, cfg GuardConfig, logger *zap.Logger) *Guard {
	g := &Guard{name: name, cfg: cfg}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // exactly one trial call while half-open
		Interval:    cfg.Window,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("dependency", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	if cfg.Reservoir > 0 && cfg.RefillInterval > 0 {
		refill := rate.Limit(float64(cfg.Reservoir) / cfg.RefillInterval.Seconds())
		g.reservoir = rate.NewLimiter(refill, cfg.Reservoir)
	}
	if cfg.MinTime > 0 {
		g.spacing = rate.NewLimiter(rate.Every(cfg.MinTime), 1)
	}
	if cfg.MaxConcurrent > 0 {
		g.inflight = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return g
}

// Do runs fn under the guard. Calls beyond limiter capacity queue until a
// token is available rather than erroring; an open breaker fails fast without
// invoking fn. Both conditions surface as ordinary errors to the caller.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if g.inflight != nil {
		if err := g.inflight.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer g.inflight.Release(1)
	}
	if g.spacing != nil {
		if err := g.spacing.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.reservoir != nil {
		if err := g.reservoir.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return g.breaker.Execute(func() (any, error) {
		callCtx := ctx
		if g.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
			defer cancel()
		}
		return fn(callCtx)
	})
}

// State returns the breaker state for observability endpoints.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Manager hands out one Guard per named dependency so one vendor's outage
// cannot starve calls to another.
type Manager struct {
	mu        sync.RWMutex
	guards    map[string]*Guard
	defaults  GuardConfig
	overrides map[string]GuardConfig
	logger    *zap.Logger
}

// NewManager creates a guard manager with the given default settings.
func NewManager(defaults GuardConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		guards:    make(map[string]*Guard),
		defaults:  defaults,
		overrides: make(map[string]GuardConfig),
		logger:    logger,
	}
}

// Configure installs a per-dependency override applied when the guard is
// first created.
func (m *Manager) Configure(dependency string, cfg GuardConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[dependency] = cfg
}

// Guard returns the guard for a dependency, creating it lazily.
func (m *Manager) Guard(dependency string) *Guard {
	m.mu.RLock()
	g, ok := m.guards[dependency]
	m.mu.RUnlock()
	if ok {
		return g
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok = m.guards[dependency]; ok {
		return g
	}
	cfg := m.defaults
	if override, ok := m.overrides[dependency]; ok {
		cfg = override
	}
	g = newGuard(dependency, cfg, m.logger)
	m.guards[dependency] = g
	return g
}

// Wrap returns a Callable routed through the dependency's guard.
func (m *Manager) Wrap(dependency string, fn types.Callable) types.Callable {
	return func(ctx context.Context, input map[string]any) (any, error) {
		return m.Guard(dependency).Do(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, input)
		})
	}
}

// States reports every known dependency's breaker state.
func (m *Manager) States() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.guards))
	for name, g := range m.guards {
		out[name] = g.State().String()
	}
	return out
}
