// Scene scheduler switches the active OBS Studio scene by time of day.
//
// It connects to obs-websocket, evaluates the daytime/evening/nighttime
// schedule every interval and applies the configured scene and transition
// whenever the window changes. Optional sinks record each switch to SQLite,
// MQTT and InfluxDB, an optional rotator crossfades two background
// video sources, and an optional HTTP API reports status and streams
// switch events.
//
// Usage:
//
//	scenescheduler [-config path]                  run the scheduler
//	scenescheduler [-config path] token [subject]  print an API bearer token
//
// -config may also be set with SCENESCHED_CONFIG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/obs-scene-scheduler/internal/api"
	"github.com/nerrad567/obs-scene-scheduler/internal/crossfade"
	"github.com/nerrad567/obs-scene-scheduler/internal/history"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/database"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/influxdb"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/logging"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/mqtt"
	"github.com/nerrad567/obs-scene-scheduler/internal/obs"
	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
	"github.com/nerrad567/obs-scene-scheduler/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// defaultTokenSubject is used when "token" is given no subject.
	defaultTokenSubject = "scenesched-client"
)

// obsSession is the part of obs.Client the scheduler uses.
type obsSession interface {
	switcher.SceneApplier
	crossfade.Player
	HealthCheck(ctx context.Context) (string, error)
	Address() string
	Close() error
}

// connectOBS and stdout are replaced in tests.
var (
	connectOBS = func(cfg config.OBSConfig) (obsSession, error) {
		client, err := obs.Connect(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	stdout io.Writer = os.Stdout
)

// options are the parsed command line.
type options struct {
	configPath string
	command    []string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if len(opts.command) > 0 {
		if err := runCommand(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts.configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs reads flags from args, falling back to SCENESCHED_* variables.
// Positional arguments are returned as the command.
func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("scenescheduler", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to the YAML configuration file")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("SCENESCHED")); err != nil {
		return options{}, err
	}
	return options{
		configPath: *configPath,
		command:    fs.Args(),
	}, nil
}

// runCommand executes a one-shot subcommand.
func runCommand(opts options) error {
	switch name := opts.command[0]; name {
	case "token":
		return printToken(opts.configPath, opts.command[1:])
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - configPath: YAML file; a missing file means built-in defaults
//
// Returns:
//   - error: nil on interrupt, otherwise the startup or remote-call failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting scene scheduler",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, fromFile, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Nothing left to report to
	if fromFile {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("no configuration file, using defaults", "path", configPath)
	}

	swCfg := switcherConfig(cfg)
	opened, err := openSinks(ctx, cfg, log)
	defer opened.close()
	if err != nil {
		return err
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log)
		opened.observers = append(opened.observers, hub)
	}

	client, err := connectOBS(cfg.OBS)
	if err != nil {
		return fmt.Errorf("connecting to OBS: %w", err)
	}
	defer func() {
		log.Info("disconnecting from OBS")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing OBS connection", "error", closeErr)
		}
	}()

	if obsVersion, hcErr := client.HealthCheck(ctx); hcErr != nil {
		log.Warn("OBS version check failed", "error", hcErr)
	} else {
		log.Info("OBS connected", "address", client.Address(), "obs_version", obsVersion)
	}

	controller, err := switcher.New(swCfg, client,
		switcher.WithOutput(stdout),
		switcher.WithLogger(log),
		switcher.WithObservers(opened.observers...),
	)
	if err != nil {
		return fmt.Errorf("creating scene switcher: %w", err)
	}

	if cfg.API.Enabled {
		opened.checks["obs"] = api.HealthCheckFunc(func(ctx context.Context) error {
			_, err := client.HealthCheck(ctx)
			return err
		})
		server, err := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Status:     controller,
			Scenes:     swCfg.Scenes,
			History:    opened.history,
			Hub:        hub,
			Checks:     opened.checks,
			OBSAddress: client.Address(),
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	var rotator *crossfade.Rotator
	if cfg.Crossfade.Enabled {
		rotator, err = crossfade.New(crossfadeConfig(cfg.Crossfade), client, log)
		if err != nil {
			return fmt.Errorf("creating crossfade rotator: %w", err)
		}
		log.Info("background crossfade enabled",
			"sources", cfg.Crossfade.Sources,
			"videos", len(cfg.Crossfade.Videos),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})
	if rotator != nil {
		g.Go(func() error {
			return rotator.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, scene scheduler stopped")
	return nil
}

// switcherConfig maps the loaded configuration onto the controller's.
func switcherConfig(cfg *config.Config) switcher.Config {
	return switcher.Config{
		Schedule: cfg.Schedule.Boundaries(),
		Scenes: map[schedule.Window]string{
			schedule.Daytime:   cfg.Scenes.Daytime,
			schedule.Evening:   cfg.Scenes.Evening,
			schedule.Nighttime: cfg.Scenes.Nighttime,
		},
		Transition: cfg.Switcher.Transition,
		Interval:   cfg.Switcher.Interval,
	}
}

// crossfadeConfig maps the crossfade section onto the rotator's config.
// Validate has already checked there are exactly two sources.
func crossfadeConfig(cfg config.CrossfadeConfig) crossfade.Config {
	var sources [2]string
	copy(sources[:], cfg.Sources)

	return crossfade.Config{
		Sources:      sources,
		Videos:       cfg.Videos,
		FilterName:   cfg.FilterName,
		Interval:     cfg.Interval,
		FadeDuration: cfg.FadeDuration,
		Steps:        cfg.Steps,
	}
}

// sinks holds the opened switch observers.
type sinks struct {
	observers []switcher.Observer
	history   history.Repository // nil unless history is enabled
	checks    map[string]api.HealthChecker
	closers   []func()
}

// close releases whatever was opened, in reverse order.
func (s *sinks) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSinks starts every enabled switch observer. The returned sinks is
// never nil, so its close can be deferred before the error is checked.
func openSinks(ctx context.Context, cfg *config.Config, log *logging.Logger) (*sinks, error) {
	s := &sinks{checks: make(map[string]api.HealthChecker)}

	if cfg.History.Enabled {
		db, err := database.Open(cfg.History)
		if err != nil {
			return s, fmt.Errorf("opening history database: %w", err)
		}
		s.closers = append(s.closers, func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		})

		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			return s, fmt.Errorf("running migrations: %w", err)
		}
		repo, err := history.NewSQLiteRepository(db.DB)
		if err != nil {
			return s, err
		}
		s.observers = append(s.observers, repo)
		s.history = repo
		s.checks["history"] = db
		log.Info("switch history enabled", "path", db.Path(), "migrations_applied", applied)
	}

	if cfg.MQTT.Enabled {
		publisher, err := mqtt.Connect(cfg.MQTT, log)
		if err != nil {
			return s, fmt.Errorf("connecting to MQTT: %w", err)
		}
		s.closers = append(s.closers, func() {
			log.Info("disconnecting from MQTT")
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		})
		s.observers = append(s.observers, publisher)
		s.checks["mqtt"] = publisher
		log.Info("MQTT publishing enabled",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"current_topic", publisher.Topics().Current(),
		)
	}

	if cfg.InfluxDB.Enabled {
		recorder, err := influxdb.Open(cfg.InfluxDB)
		if err != nil {
			return s, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		recorder.OnWriteError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		s.closers = append(s.closers, func() {
			log.Info("closing InfluxDB connection")
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		s.observers = append(s.observers, recorder)
		s.checks["influxdb"] = api.HealthCheckFunc(recorder.Ping)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	return s, nil
}

// printToken writes a signed API bearer token to stdout.
//
// Parameters:
//   - configPath: YAML file holding api.jwt
//   - args: Optional subject; defaults to defaultTokenSubject
//
// Returns:
//   - error: If the config cannot be loaded or has no api.jwt.secret
func printToken(configPath string, args []string) error {
	subject := defaultTokenSubject
	if len(args) > 0 && args[0] != "" {
		subject = args[0]
	}

	cfg, _, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ttl := time.Duration(cfg.API.JWT.TokenTTL) * time.Minute
	token, err := api.IssueToken(cfg.API.JWT.Secret, subject, ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}
