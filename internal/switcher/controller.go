package switcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
)

// Defaults applied by New when the config leaves them empty.
const (
	DefaultTransition = "Fade"
	DefaultInterval   = 60 * time.Second
)

// SceneApplier is the remote capability the controller drives.
// The real implementation is obs.Client; tests use an in-memory double.
type SceneApplier interface {
	// ApplyScene makes the named scene the active program scene.
	ApplyScene(ctx context.Context, name string) error

	// ApplyTransition selects the named scene transition.
	ApplyTransition(ctx context.Context, name string) error
}

// Observer is notified after every applied switch.
// Returned errors are logged and never stop the loop.
type Observer interface {
	SceneSwitched(ctx context.Context, sw Switch) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, sw Switch) error

// SceneSwitched implements Observer.
func (f ObserverFunc) SceneSwitched(ctx context.Context, sw Switch) error {
	return f(ctx, sw)
}

// Logger is the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Switch describes one applied scene change.
type Switch struct {
	Window     schedule.Window `json:"window"`
	Previous   schedule.Window `json:"previous"`
	Scene      string          `json:"scene"`
	Transition string          `json:"transition"`
	At         time.Time       `json:"at"`
}

// Config holds everything the controller needs besides the remote client.
type Config struct {
	Schedule   schedule.Schedule
	Scenes     map[schedule.Window]string
	Transition string
	Interval   time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithOutput sets where switch announcements are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) { c.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObservers appends observers notified after each applied switch.
func WithObservers(obs ...Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, obs...) }
}

// Controller is the polling loop that maps time windows to OBS scenes.
//
// Thread Safety: Run and Tick must be called from a single goroutine.
// Current may be read from any goroutine.
type Controller struct {
	cfg       Config
	applier   SceneApplier
	now       func() time.Time
	out       io.Writer
	logger    Logger
	observers []Observer

	current schedule.Window
	mu      sync.RWMutex
}

// New validates cfg and builds a Controller around applier.
//
// An empty Transition becomes DefaultTransition and a zero Interval
// becomes DefaultInterval. The remembered window starts unset.
func New(cfg Config, applier SceneApplier, opts ...Option) (*Controller, error) {
	if applier == nil {
		return nil, fmt.Errorf("%w: scene applier is nil", ErrInvalidConfig)
	}
	if cfg.Transition == "" {
		cfg.Transition = DefaultTransition
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, w := range schedule.Windows() {
		if cfg.Scenes[w] == "" {
			return nil, fmt.Errorf("%w: no scene for %s window", ErrInvalidConfig, w)
		}
	}

	c := &Controller{
		cfg:     cfg,
		applier: applier,
		now:     time.Now,
		out:     os.Stdout,
		logger:  noopLogger{},
		current: schedule.None,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Current returns the window most recently applied, or schedule.None.
func (c *Controller) Current() schedule.Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Run ticks immediately and then once per interval until ctx is cancelled.
//
// Returns:
//   - nil when ctx is cancelled (operator interrupt)
//   - the first remote-call error otherwise
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("scene switcher started",
		"interval", c.cfg.Interval,
		"transition", c.cfg.Transition,
		"daytime_start", c.cfg.Schedule.DaytimeStart,
		"evening_start", c.cfg.Schedule.EveningStart,
		"nighttime_start", c.cfg.Schedule.NighttimeStart,
	)

	if err := c.tickOrStop(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("scene switcher stopped", "current", c.Current().String())
			return nil
		case <-ticker.C:
			if err := c.tickOrStop(ctx); err != nil {
				return err
			}
		}
	}
}

// tickOrStop runs one tick unless ctx is already done. An error caused by
// cancellation is treated as a clean stop.
func (c *Controller) tickOrStop(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	if _, err := c.Tick(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Tick evaluates the schedule once and applies a switch if the window changed.
//
// Returns:
//   - bool: true if a switch was applied
//   - error: wrapped ErrApplyScene or ErrApplyTransition on remote failure
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	now := c.now()
	window := c.cfg.Schedule.At(now)
	previous := c.Current()

	if window == previous {
		c.logger.Debug("window unchanged", "window", window.String())
		return false, nil
	}

	scene := c.cfg.Scenes[window]

	if err := c.applier.ApplyScene(ctx, scene); err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrApplyScene, scene, err)
	}
	if err := c.applier.ApplyTransition(ctx, c.cfg.Transition); err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrApplyTransition, c.cfg.Transition, err)
	}

	c.mu.Lock()
	c.current = window
	c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "Switched to scene: %s\n", scene); err != nil {
		c.logger.Warn("writing switch announcement", "error", err)
	}
	c.logger.Info("scene switched",
		"window", window.String(),
		"previous", previous.String(),
		"scene", scene,
		"transition", c.cfg.Transition,
	)

	c.notify(ctx, Switch{
		Window:     window,
		Previous:   previous,
		Scene:      scene,
		Transition: c.cfg.Transition,
		At:         now,
	})

	return true, nil
}

// notify delivers sw to every observer, logging failures.
func (c *Controller) notify(ctx context.Context, sw Switch) {
	for _, o := range c.observers {
		if err := o.SceneSwitched(ctx, sw); err != nil {
			c.logger.Warn("switch observer failed", "scene", sw.Scene, "error", err)
		}
	}
}
