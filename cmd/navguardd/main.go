package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/config"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "navguardd"

	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Output meant for the user goes to out;
// logs go through the configured logger.
func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = version
	app.Usage = "real-time navigation interception engine"
	app.Writer = out
	app.Action = serve
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the daemon and its HTTP bridge (default)",
			Action: serve,
		},
		{
			Name:      "check",
			Usage:     "evaluate one URL against the persisted state and print the decision",
			ArgsUsage: "URL",
			Action:    check,
		},
		{
			Name:  "lists",
			Usage: "inspect or bulk-edit the whitelist and blacklist",
			Subcommands: []*cli.Command{
				{
					Name:   "show",
					Usage:  "print both lists",
					Action: showLists,
				},
				{
					Name:      "import",
					Usage:     "import domains from a plain, hosts or YAML file",
					ArgsUsage: "FILE",
					Flags:     importFlags(),
					Action:    importList,
				},
			},
		},
	}
	return app
}

// setup loads configuration from the environment and configures the
// global logger.
func setup() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("logging configuration error: %w", err)
	}
	return cfg, nil
}

func serve(_ *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	log.Info(map[string]any{
		"version":        version,
		"env":            cfg.Env,
		"log_level":      cfg.LogLevel,
		"listen":         cfg.Listen,
		"data_path":      cfg.DataPath,
		"classifier_url": cfg.ClassifierURL,
		"cache_size":     cfg.CacheSize,
	}, "Starting navguard")

	app, err := buildApplication(cfg, log.GetLogger(), true)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		return err
	}
	log.Info(nil, "navguard stopped gracefully")
	return nil
}
