package reload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"asnlookup/internal/domain"
	"asnlookup/internal/metrics"
	"asnlookup/internal/rangeindex"
	"asnlookup/internal/source"
	"asnlookup/internal/support"
)

const (
	defaultInterval = 10 * time.Second

	reloadForceKey = "reload:force"
	reloadCheckKey = "reload:check"
)

// Controller owns the published generation. Readers never block; a single
// writer at a time rebuilds and swaps.
type Controller struct {
	src     source.Source
	factory rangeindex.Factory

	current atomic.Pointer[Generation]
	nextID  atomic.Uint64

	writeMu sync.Mutex
	group   singleflight.Group

	stateMu   sync.Mutex
	lastCheck time.Time
	lastErr   error
	hooks     []func(*Generation)
}

// Status describes the published generation and the last reload attempt.
type Status struct {
	Generation    uint64               `json:"generation"`
	Kind          rangeindex.Kind      `json:"kind,omitempty"`
	Ranges        int                  `json:"ranges"`
	Stats         rangeindex.LoadStats `json:"stats"`
	Source        string               `json:"source"`
	Version       string               `json:"version,omitempty"`
	BuiltAt       time.Time            `json:"built_at,omitzero"`
	BuildDuration string               `json:"build_duration,omitempty"`
	LastCheck     time.Time            `json:"last_check,omitzero"`
	LastError     string               `json:"last_error,omitempty"`
}

func New(src source.Source, factory rangeindex.Factory) *Controller {
	return &Controller{src: src, factory: factory}
}

// OnPublish registers fn to run after every successful swap, on the
// writer's goroutine.
func (c *Controller) OnPublish(fn func(*Generation)) {
	c.stateMu.Lock()
	c.hooks = append(c.hooks, fn)
	c.stateMu.Unlock()
}

// Init builds and publishes the first generation.
func (c *Controller) Init(ctx context.Context) (*Generation, error) {
	return c.Reload(ctx, "startup", true)
}

// Current returns the published generation or nil before Init succeeded.
func (c *Controller) Current() *Generation {
	return c.current.Load()
}

func (c *Controller) Ready() bool {
	return c.current.Load() != nil
}

// Search resolves addr against the published generation and reports which
// generation answered.
func (c *Controller) Search(addr uint32) (*domain.RangeRecord, uint64, bool) {
	gen := c.current.Load()
	if gen == nil {
		return nil, 0, false
	}
	rec, ok := gen.Index.Search(addr)
	return rec, gen.ID, ok
}

// Reload rebuilds the index when the source changed, or unconditionally when
// force is set, and returns the generation being served afterwards.
// Concurrent calls with the same force flag share one rebuild.
func (c *Controller) Reload(ctx context.Context, reason string, force bool) (*Generation, error) {
	key := reloadCheckKey
	if force {
		key = reloadForceKey
	}
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.reload(ctx, reason, force)
	})
	if err != nil {
		return nil, err
	}
	gen, _ := result.(*Generation)
	return gen, nil
}

func (c *Controller) reload(ctx context.Context, reason string, force bool) (*Generation, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current := c.current.Load()
	if !force && current != nil {
		version, err := c.src.Version(ctx)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
			c.recordAttempt(err)
			metrics.RecordReload(metrics.ReloadFailure, 0)
			return nil, err
		}
		if version.Equal(current.Version) {
			c.recordAttempt(nil)
			metrics.RecordReload(metrics.ReloadUnchanged, 0)
			log.Debug("Dataset unchanged", "reason", reason, "source", c.src, "version", version)
			return current, nil
		}
		log.Info("Dataset changed", "reason", reason, "source", c.src, "previous", current.Version, "version", version)
	}

	gen, err := RebuildFromSource(ctx, c.src, c.factory)
	if err != nil {
		c.recordAttempt(err)
		metrics.RecordReload(metrics.ReloadFailure, 0)
		return nil, err
	}

	gen.ID = c.nextID.Add(1)
	c.current.Store(gen)
	c.recordAttempt(nil)

	metrics.RecordReload(metrics.ReloadSuccess, gen.BuildDuration)
	metrics.RecordGeneration(gen.ID, gen.Index.Len(), gen.Stats.Malformed)
	log.Info("Dataset reloaded",
		"reason", reason,
		"generation", gen.ID,
		"kind", gen.Index.Kind(),
		"ranges", gen.Index.Len(),
		"malformed", gen.Stats.Malformed,
		"took", gen.BuildDuration,
	)

	c.stateMu.Lock()
	hooks := slices.Clone(c.hooks)
	c.stateMu.Unlock()
	for _, fn := range hooks {
		fn(gen)
	}

	return gen, nil
}

func (c *Controller) recordAttempt(err error) {
	c.stateMu.Lock()
	c.lastCheck = time.Now()
	c.lastErr = err
	c.stateMu.Unlock()
}

func (c *Controller) Status() Status {
	c.stateMu.Lock()
	status := Status{
		Source:    c.src.String(),
		LastCheck: c.lastCheck,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	c.stateMu.Unlock()

	if gen := c.current.Load(); gen != nil {
		status.Generation = gen.ID
		status.Kind = gen.Index.Kind()
		status.Ranges = gen.Index.Len()
		status.Stats = gen.Stats
		status.Version = gen.Version.String()
		status.BuiltAt = gen.BuiltAt
		status.BuildDuration = gen.BuildDuration.String()
	}
	return status
}

// Run checks the source every interval until ctx is done. New intervals
// received on updates reschedule the check.
func (c *Controller) Run(ctx context.Context, interval time.Duration, updates <-chan time.Duration) {
	support.RunEvery(ctx, "dataset reload", interval, defaultInterval, updates, func(ctx context.Context) {
		c.trigger(ctx, "scheduled")
	})
}

func (c *Controller) trigger(ctx context.Context, reason string) {
	_, err := c.Reload(ctx, reason, false)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Info("Dataset reload canceled", "reason", reason)
		return
	}
	log.Error("Dataset reload failed, keeping previous generation", "reason", reason, "error", err)
}
