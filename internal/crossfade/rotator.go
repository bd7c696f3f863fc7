package crossfade

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Player is the OBS capability the rotator drives. obs.Client satisfies it.
type Player interface {
	SetInputFile(ctx context.Context, input, path string) error
	SetSourceOpacity(ctx context.Context, source, filter string, opacity float64) error
}

// Logger is the logging interface used by the rotator.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Config describes the two sources and the videos cycled through them.
type Config struct {
	Sources      [2]string
	Videos       []string
	FilterName   string
	Interval     time.Duration
	FadeDuration time.Duration
	Steps        int
}

// Rotator alternates two media sources through a list of videos.
//
// Thread Safety: Run, Prime and Crossfade must not be called concurrently.
// State may be read from any goroutine.
type Rotator struct {
	cfg    Config
	player Player
	logger Logger
	sleep  func(ctx context.Context, d time.Duration) error

	videoIdx  int
	activeIdx int
	mu        sync.RWMutex
}

// New validates cfg and returns a Rotator. logger may be nil.
func New(cfg Config, player Player, logger Logger) (*Rotator, error) {
	switch {
	case player == nil:
		return nil, fmt.Errorf("%w: player is nil", ErrInvalidConfig)
	case cfg.Sources[0] == "" || cfg.Sources[1] == "":
		return nil, fmt.Errorf("%w: two source names are required", ErrInvalidConfig)
	case cfg.Sources[0] == cfg.Sources[1]:
		return nil, fmt.Errorf("%w: sources must differ", ErrInvalidConfig)
	case len(cfg.Videos) == 0:
		return nil, fmt.Errorf("%w: no videos", ErrInvalidConfig)
	case cfg.FilterName == "":
		return nil, fmt.Errorf("%w: filter name is required", ErrInvalidConfig)
	case cfg.Steps < 1:
		return nil, fmt.Errorf("%w: steps must be at least 1", ErrInvalidConfig)
	case cfg.Interval <= 0:
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case cfg.FadeDuration < 0:
		return nil, fmt.Errorf("%w: fade duration must not be negative", ErrInvalidConfig)
	}

	if logger == nil {
		logger = noopLogger{}
	}

	return &Rotator{
		cfg:    cfg,
		player: player,
		logger: logger,
		sleep:  sleepContext,
	}, nil
}

// State returns the index of the video on screen and the visible source.
func (r *Rotator) State() (videoIdx int, activeSource string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.videoIdx, r.cfg.Sources[r.activeIdx]
}

// Prime loads the first video into the first source and makes it the only
// visible one.
func (r *Rotator) Prime(ctx context.Context) error {
	r.mu.Lock()
	r.videoIdx, r.activeIdx = 0, 0
	r.mu.Unlock()

	first, second := r.cfg.Sources[0], r.cfg.Sources[1]

	if err := r.player.SetInputFile(ctx, first, r.cfg.Videos[0]); err != nil {
		return fmt.Errorf("loading %s: %w", first, err)
	}
	if err := r.player.SetSourceOpacity(ctx, first, r.cfg.FilterName, 1); err != nil {
		return fmt.Errorf("showing %s: %w", first, err)
	}
	if err := r.player.SetSourceOpacity(ctx, second, r.cfg.FilterName, 0); err != nil {
		return fmt.Errorf("hiding %s: %w", second, err)
	}
	return nil
}

// Crossfade loads the next video into the hidden source and fades it in.
//
// A failed load aborts the fade and keeps the current state. A failed
// opacity step is logged and the fade carries on to the end, so the swap
// still happens. Only cancellation of ctx stops the ramp early, and then
// the state is left unchanged.
func (r *Rotator) Crossfade(ctx context.Context) error {
	r.mu.RLock()
	nextVideo := (r.videoIdx + 1) % len(r.cfg.Videos)
	active := r.cfg.Sources[r.activeIdx]
	next := r.cfg.Sources[1-r.activeIdx]
	r.mu.RUnlock()

	if err := r.player.SetInputFile(ctx, next, r.cfg.Videos[nextVideo]); err != nil {
		return fmt.Errorf("loading %s: %w", next, err)
	}

	failed := 0
	if err := r.setOpacity(ctx, next, 0, &failed); err != nil {
		return err
	}

	steps := r.cfg.Steps
	pause := r.cfg.FadeDuration / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		progress := float64(i) / float64(steps)

		if err := r.setOpacity(ctx, active, 1-progress, &failed); err != nil {
			return err
		}
		if err := r.setOpacity(ctx, next, progress, &failed); err != nil {
			return err
		}
		if err := r.sleep(ctx, pause); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.activeIdx = 1 - r.activeIdx
	r.videoIdx = nextVideo
	r.mu.Unlock()

	r.logger.Info("background crossfaded",
		"source", next,
		"video", r.cfg.Videos[nextVideo],
		"failed_steps", failed,
	)
	return nil
}

// setOpacity applies one opacity change. A failure is logged and counted
// in failed; the only error returned is ctx's.
func (r *Rotator) setOpacity(ctx context.Context, source string, opacity float64, failed *int) error {
	err := r.player.SetSourceOpacity(ctx, source, r.cfg.FilterName, opacity)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	*failed++
	r.logger.Warn("setting background opacity failed",
		"source", source,
		"opacity", opacity,
		"error", err,
	)
	return nil
}

// Run primes the sources and then crossfades once per interval until ctx
// is cancelled. Failures are logged and do not stop the rotation.
func (r *Rotator) Run(ctx context.Context) error {
	if err := r.Prime(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		r.logger.Warn("priming background sources failed", "error", err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Crossfade(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Warn("background crossfade failed", "error", err)
			}
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
