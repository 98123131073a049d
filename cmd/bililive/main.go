package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/christian-lee/bililive/internal/config"
	"github.com/christian-lee/bililive/internal/logger"
	"github.com/christian-lee/bililive/internal/resolver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("bililive failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bililive",
		Usage: "resolve Bilibili live rooms into playable stream URLs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Value:   "config.yaml",
				EnvVars: []string{"BILILIVE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json (overrides config)",
			},
		},
		Before: setupLogging,
		Action: runInteractive,
		Commands: []*cli.Command{
			interactiveCommand(),
			getCommand(),
			resolveCommand(),
			serveCommand(),
		},
	}
}

// setupLogging installs the default slog logger from config and flags.
// Logs go to stderr so stdout stays clean for results.
func setupLogging(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	slog.SetDefault(logger.New(level, format, os.Stderr))
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newResolver(cfg *config.Config, opts ...resolver.Option) *resolver.Client {
	base := []resolver.Option{
		resolver.WithUserAgent(cfg.Bilibili.UserAgent),
		resolver.WithAPIBase(cfg.Bilibili.APIBase),
		resolver.WithDefaultQuality(cfg.Bilibili.Quality),
		resolver.WithTimeout(cfg.Bilibili.Timeout),
	}
	return resolver.NewClient(append(base, opts...)...)
}
