package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"trade-advisor/internal/logging"
	"trade-advisor/internal/signal"
)

// Source is a capability interface over one strategy's signal generation.
// Implementations live outside the engine; the registry injects whatever
// is enabled each cycle.
type Source interface {
	// Name identifies the strategy for audit reporting.
	Name() string

	// Signal produces the strategy's output for one symbol and timeframe.
	// Implementations must honor ctx cancellation.
	Signal(ctx context.Context, symbol, timeframe string) (signal.StrategySignal, error)
}

// Collector fans signal generation out across all registered sources and
// timeframes, with a bounded per-source timeout. Sources that error or
// time out are excluded from the cycle rather than failing it.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]Source

	timeout time.Duration
	log     *logging.Logger
}

// New creates a collector with the given per-source timeout.
func New(timeout time.Duration, log *logging.Logger) *Collector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Collector{
		sources: make(map[string]Source),
		timeout: timeout,
		log:     log.WithComponent("collector"),
	}
}

// Register adds or replaces a source.
func (c *Collector) Register(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[s.Name()] = s
}

// Unregister removes a source by name.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

// SourceNames returns the registered strategy names.
func (c *Collector) SourceNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect gathers one signal per source per timeframe concurrently. The
// result order is deterministic: sorted by strategy name, then timeframe.
func (c *Collector) Collect(ctx context.Context, symbol string, timeframes []string) []signal.StrategySignal {
	c.mu.RLock()
	sources := make([]Source, 0, len(c.sources))
	for _, s := range c.sources {
		sources = append(sources, s)
	}
	c.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals []signal.StrategySignal
	)

	for _, src := range sources {
		for _, tf := range timeframes {
			wg.Add(1)
			go func(src Source, tf string) {
				defer wg.Done()

				callCtx, cancel := context.WithTimeout(ctx, c.timeout)
				defer cancel()

				sig, err := src.Signal(callCtx, symbol, tf)
				if err != nil {
					c.log.Warn("signal source excluded",
						"symbol", symbol,
						"strategy", src.Name(),
						"timeframe", tf,
						"error", err)
					return
				}

				mu.Lock()
				signals = append(signals, sig)
				mu.Unlock()
			}(src, tf)
		}
	}

	wg.Wait()

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].StrategyName != signals[j].StrategyName {
			return signals[i].StrategyName < signals[j].StrategyName
		}
		return signals[i].Timeframe < signals[j].Timeframe
	})

	c.log.Debug("signal collection complete",
		"symbol", symbol,
		"sources", len(sources),
		"timeframes", len(timeframes),
		"signals", len(signals))

	return signals
}
