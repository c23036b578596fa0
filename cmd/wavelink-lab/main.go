// Command wavelink-lab exercises the WAVELINK connection readiness core.
//
// It coordinates simulated handshakes against an environment's timing
// profile, feeds the race-condition detector, and writes diagnostic
// events to a CBOR log that the replay command can read back.
//
// Usage:
//
//	wavelink-lab [flags]
//
// Flags:
//
//	-env string        Environment: testing, development, staging, production (default "development")
//	-config string     YAML configuration file path
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-diag-file string  Diagnostic CBOR log path (disabled if empty)
//	-runs int          Run N handshakes and exit instead of the interactive shell
//
// Examples:
//
//	# Interactive shell against the staging profile
//	wavelink-lab -env staging
//
//	# Batch: 20 handshakes in the testing profile with a diagnostic log
//	wavelink-lab -env testing -runs 20 -diag-file /tmp/wavelink.wlog
//
//	# Custom timings from a config file
//	wavelink-lab -env production -config ./timings.yaml -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/wavelink-protocol/wavelink-go/cmd/wavelink-lab/interactive"
	"github.com/wavelink-protocol/wavelink-go/pkg/diaglog"
	"github.com/wavelink-protocol/wavelink-go/pkg/handshake"
	"github.com/wavelink-protocol/wavelink-go/pkg/racedetect"
	"github.com/wavelink-protocol/wavelink-go/pkg/timing"
)

// Config holds the lab configuration.
type Config struct {
	Environment string
	ConfigFile  string
	LogLevel    string
	DiagFile    string
	Runs        int
}

var config Config

func init() {
	flag.StringVar(&config.Environment, "env", "development", "Environment: testing, development, staging, production")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.DiagFile, "diag-file", "", "Diagnostic CBOR log path (disabled if empty)")
	flag.IntVar(&config.Runs, "runs", 0, "Run N handshakes and exit instead of the interactive shell")
}

// fileConfig is the YAML configuration file schema.
//
//	environment: staging
//	diag_file: /var/log/wavelink.wlog
//	log_level: debug
//	profiles:
//	  staging:
//	    handshake_delay: 150ms
//	    handshake_timeout: 2s
type fileConfig struct {
	Environment string                                        `yaml:"environment"`
	DiagFile    string                                        `yaml:"diag_file"`
	LogLevel    string                                        `yaml:"log_level"`
	Profiles    map[timing.Environment]timing.ProfileOverride `yaml:"profiles"`
}

func main() {
	flag.Parse()

	// Explicit flags beat config file values.
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	var fileCfg fileConfig
	if config.ConfigFile != "" {
		data, err := os.ReadFile(config.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config file %s: %v\n", config.ConfigFile, err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse config file %s: %v\n", config.ConfigFile, err)
			os.Exit(1)
		}
		if !setFlags["env"] && fileCfg.Environment != "" {
			config.Environment = fileCfg.Environment
		}
		if !setFlags["diag-file"] && fileCfg.DiagFile != "" {
			config.DiagFile = fileCfg.DiagFile
		}
		if !setFlags["log-level"] && fileCfg.LogLevel != "" {
			config.LogLevel = fileCfg.LogLevel
		}
	}

	logger := setupLogging(config.LogLevel)

	env := timing.Environment(config.Environment).Normalize()
	if string(env) != config.Environment {
		logger.Warn("unknown environment, using fallback",
			"requested", config.Environment,
			"environment", string(env))
	}

	profile := timing.ProfileFor(env)
	if o, ok := fileCfg.Profiles[env]; ok {
		profile = o.Apply(profile)
		logger.Info("timing profile overridden",
			"environment", string(env),
			"handshake_delay", profile.HandshakeDelay,
			"stabilization_delay", profile.StabilizationDelay,
			"handshake_timeout", profile.HandshakeTimeout)
	}

	var diag diaglog.Logger = diaglog.NoopLogger{}
	if config.DiagFile != "" {
		fl, err := diaglog.NewFileLogger(config.DiagFile)
		if err != nil {
			logger.Error("failed to open diagnostic log", "path", config.DiagFile, "error", err)
			os.Exit(1)
		}
		defer fl.Close()
		diag = fl
	}

	detector := racedetect.NewDetector(env,
		racedetect.WithLogger(logger),
		racedetect.WithDiagLogger(diag))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if config.Runs > 0 {
		if err := runBatch(ctx, env, profile, detector, logger, diag, config.Runs); err != nil {
			logger.Error("batch run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shell, err := interactive.New(env, profile, detector, logger, diag)
	if err != nil {
		logger.Error("failed to start interactive shell", "error", err)
		os.Exit(1)
	}
	shell.Run(ctx, cancel)
}

// runBatch coordinates n handshakes and prints the detector summary.
func runBatch(ctx context.Context, env timing.Environment, profile timing.Profile,
	detector *racedetect.Detector, logger *slog.Logger, diag diaglog.Logger, n int) error {

	succeeded := 0
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c := handshake.NewCoordinator(env,
			handshake.WithProfile(profile),
			handshake.WithDetector(detector),
			handshake.WithLogger(logger),
			handshake.WithDiagLogger(diag))
		if c.CoordinateHandshake(ctx) {
			succeeded++
		}
	}

	summary := detector.Summary()
	fmt.Printf("Handshakes: %d/%d succeeded\n", succeeded, n)
	fmt.Printf("Patterns:   %d recorded\n", summary.TotalPatterns)
	for ptype, count := range summary.CountsByType {
		fmt.Printf("  %-28s %d\n", ptype, count)
	}
	return nil
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
