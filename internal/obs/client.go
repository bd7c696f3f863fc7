package obs

import (
	"context"
	"fmt"
	"sync"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/filters"
	"github.com/andreykaipov/goobs/api/requests/inputs"
	"github.com/andreykaipov/goobs/api/requests/scenes"
	"github.com/andreykaipov/goobs/api/requests/transitions"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
)

// requests is the set of obs-websocket calls the client issues.
// Connect binds them to a goobs client; tests bind them to fakes.
type requests struct {
	setProgramScene   func(name string) error
	setTransition     func(name string) error
	setInputSettings  func(input string, settings map[string]any) error
	setFilterSettings func(source, filter string, settings map[string]any) error
	version           func() (obsVersion, wsVersion string, err error)
	disconnect        func() error
}

// Client is a connected obs-websocket session.
//
// Thread Safety:
//   - Requests may be issued from multiple goroutines; goobs serialises
//     writes on the underlying websocket.
//   - Close is idempotent.
type Client struct {
	address string
	req     requests

	closed bool
	mu     sync.RWMutex
}

// Connect dials obs-websocket and completes the Hello/Identify handshake.
//
// Parameters:
//   - cfg: OBS host, port and password
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: wrapped ErrConnectionFailed if the handshake fails
func Connect(cfg config.OBSConfig) (*Client, error) {
	address := cfg.Address()

	var opts []goobs.Option
	if cfg.Password != "" {
		opts = append(opts, goobs.WithPassword(cfg.Password))
	}

	ws, err := goobs.New(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, address, err)
	}

	return newClient(address, bindGoobs(ws)), nil
}

// bindGoobs maps each request onto the typed goobs sub-client.
func bindGoobs(ws *goobs.Client) requests {
	return requests{
		setProgramScene: func(name string) error {
			_, err := ws.Scenes.SetCurrentProgramScene(
				scenes.NewSetCurrentProgramSceneParams().WithSceneName(name),
			)
			return err
		},
		setTransition: func(name string) error {
			_, err := ws.Transitions.SetCurrentSceneTransition(
				transitions.NewSetCurrentSceneTransitionParams().WithTransitionName(name),
			)
			return err
		},
		setInputSettings: func(input string, settings map[string]any) error {
			_, err := ws.Inputs.SetInputSettings(
				inputs.NewSetInputSettingsParams().
					WithInputName(input).
					WithInputSettings(settings).
					WithOverlay(true),
			)
			return err
		},
		setFilterSettings: func(source, filter string, settings map[string]any) error {
			_, err := ws.Filters.SetSourceFilterSettings(
				filters.NewSetSourceFilterSettingsParams().
					WithSourceName(source).
					WithFilterName(filter).
					WithFilterSettings(settings),
			)
			return err
		},
		version: func() (string, string, error) {
			resp, err := ws.General.GetVersion()
			if err != nil {
				return "", "", err
			}
			return resp.ObsVersion, resp.ObsWebSocketVersion, nil
		},
		disconnect: ws.Disconnect,
	}
}

func newClient(address string, req requests) *Client {
	return &Client{
		address: address,
		req:     req,
	}
}

// Address returns the host:port this client is connected to.
func (c *Client) Address() string {
	return c.address
}

// ApplyScene makes name the current program scene.
// It implements switcher.SceneApplier.
func (c *Client) ApplyScene(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: scene name is empty", ErrInvalidArgument)
	}
	return c.do(ctx, "SetCurrentProgramScene", func() error {
		return c.req.setProgramScene(name)
	})
}

// ApplyTransition selects name as the current scene transition.
// It implements switcher.SceneApplier.
func (c *Client) ApplyTransition(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: transition name is empty", ErrInvalidArgument)
	}
	return c.do(ctx, "SetCurrentSceneTransition", func() error {
		return c.req.setTransition(name)
	})
}

// SetInputFile points a media input at path, looping at normal speed.
// Existing input settings are preserved (overlay).
func (c *Client) SetInputFile(ctx context.Context, input, path string) error {
	if input == "" {
		return fmt.Errorf("%w: input name is empty", ErrInvalidArgument)
	}
	settings := map[string]any{
		"local_file":    path,
		"looping":       true,
		"speed_percent": 100,
	}
	return c.do(ctx, "SetInputSettings", func() error {
		return c.req.setInputSettings(input, settings)
	})
}

// SetSourceOpacity sets the opacity of a source's colour correction filter.
// opacity is clamped to [0, 1].
func (c *Client) SetSourceOpacity(ctx context.Context, source, filter string, opacity float64) error {
	if source == "" || filter == "" {
		return fmt.Errorf("%w: source and filter names are required", ErrInvalidArgument)
	}
	settings := map[string]any{
		"opacity": clampUnit(opacity),
	}
	return c.do(ctx, "SetSourceFilterSettings", func() error {
		return c.req.setFilterSettings(source, filter, settings)
	})
}

// HealthCheck performs a GetVersion round trip.
//
// Returns:
//   - string: OBS Studio version reported by the server
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	var obsVersion string
	err := c.do(ctx, "GetVersion", func() error {
		v, _, err := c.req.version()
		obsVersion = v
		return err
	})
	if err != nil {
		return "", err
	}
	return obsVersion, nil
}

// Close disconnects from OBS. Safe to call more than once and on a nil client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.req.disconnect == nil {
		return nil
	}
	if err := c.req.disconnect(); err != nil {
		return fmt.Errorf("obs: disconnect: %w", err)
	}
	return nil
}

// IsConnected reports whether Close has not yet been called.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// do runs one request after checking cancellation and connection state.
// goobs requests are not context-aware, so ctx is only consulted up front.
func (c *Client) do(ctx context.Context, request string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("obs %s: %w", request, err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, request, err)
	}
	return nil
}

// clampUnit limits v to the range [0, 1].
func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
