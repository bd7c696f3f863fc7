package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

const (
	openTimeout   = 10 * time.Second
	healthTimeout = 5 * time.Second

	// Batching used when the config leaves them unset.
	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Recorder writes one point per applied scene switch.
// It implements switcher.Observer and is safe for concurrent use.
type Recorder struct {
	client influxdb2.Client
	points api.WriteAPI
	bucket string

	mu        sync.RWMutex
	closed    bool
	onFailure func(err error)
}

// Open checks the server's health endpoint and starts a batching,
// non-blocking writer for cfg.Bucket.
//
// Parameters:
//   - cfg: InfluxDB section of the configuration
//
// Returns:
//   - *Recorder: Ready to receive switches
//   - error: ErrDisabled, or ErrUnreachable wrapping the health failure
func Open(cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg.BatchSize, cfg.FlushInterval))

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := checkHealth(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, cfg.URL, err)
	}

	r := &Recorder{
		client: client,
		points: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
	}
	go r.forwardFailures()
	return r, nil
}

// writeOptions converts the configured batch size and flush interval
// (seconds) into client options, substituting fallbacks for values below 1.
func writeOptions(batchSize, flushSeconds int) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if batchSize > 0 {
		batch = uint(batchSize)
	}
	flush := fallbackFlushInterval
	if flushSeconds > 0 {
		flush = time.Duration(flushSeconds) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

func checkHealth(ctx context.Context, client influxdb2.Client) error {
	check, err := client.Health(ctx)
	if err != nil {
		return err
	}
	if check.Status != domain.HealthCheckStatusPass {
		msg := "no detail"
		if check.Message != nil {
			msg = *check.Message
		}
		return fmt.Errorf("status %s: %s", check.Status, msg)
	}
	return nil
}

// forwardFailures relays asynchronous batch failures until the writer
// is closed.
func (r *Recorder) forwardFailures() {
	for err := range r.points.Errors() {
		r.mu.RLock()
		fn := r.onFailure
		r.mu.RUnlock()
		if fn != nil {
			fn(fmt.Errorf("writing to bucket %s: %w", r.bucket, err))
		}
	}
}

// OnWriteError registers fn for batch writes that fail after Record returned.
func (r *Recorder) OnWriteError(fn func(err error)) {
	r.mu.Lock()
	r.onFailure = fn
	r.mu.Unlock()
}

// SceneSwitched implements switcher.Observer.
func (r *Recorder) SceneSwitched(ctx context.Context, sw switcher.Switch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Record(sw)
}

// Record queues the point for sw. It does not wait for the server.
func (r *Recorder) Record(sw switcher.Switch) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.points == nil {
		return ErrClosed
	}
	r.points.WritePoint(switchPoint(sw))
	return nil
}

// Ping re-runs the health check against the server.
func (r *Recorder) Ping(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed || r.client == nil {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := checkHealth(ctx, r.client); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return nil
}

// Flush blocks until queued points have been sent.
func (r *Recorder) Flush() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.closed && r.points != nil {
		r.points.Flush()
	}
}

// Close flushes queued points and releases the client. Safe on nil and
// safe to call twice.
func (r *Recorder) Close() error {
	if r == nil || r.client == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.points.Flush()
	r.client.Close()
	return nil
}
