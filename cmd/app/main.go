package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nbbadge/internal"
	pkgconfig "github.com/starford/nbbadge/pkg/config"
)

var version = "dev"

type runner func(ctx context.Context, opts ...internal.Option) error

// loadConfig builds the configuration from defaults, the optional config
// file, and explicitly set flags, in that order of precedence.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("root") {
		cfg.Inject.RootDir = cmd.String("root")
	}
	if cmd.IsSet("repo-url") {
		cfg.Inject.RepoBaseURL = cmd.String("repo-url")
	}
	if cmd.IsSet("recursive") {
		cfg.Inject.Recursive = cmd.Bool("recursive")
	}
	if cmd.IsSet("workers") {
		cfg.Inject.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("keep-going") {
		cfg.Inject.KeepGoing = cmd.Bool("keep-going")
	}
	if cmd.IsSet("dry-run") {
		cfg.Inject.DryRun = cmd.Bool("dry-run")
	}
	if cmd.IsSet("detector") {
		cfg.Inject.Detector = cmd.String("detector")
	}

	return cfg, pkgconfig.Validate(cfg)
}

func action(name string, fn runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("%s error: %w", name, err)
		}
		return nil
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Directory to scan for notebooks",
			Sources: cli.EnvVars("NBBADGE_ROOT_DIR"),
		},
		&cli.StringFlag{
			Name:    "repo-url",
			Usage:   "Colab base URL of the repository; notebook paths are appended to it",
			Sources: cli.EnvVars("NBBADGE_REPO_URL"),
		},
		&cli.BoolFlag{
			Name:  "recursive",
			Usage: "Scan subdirectories (use --recursive=false for the top level only); " +
				".ipynb_checkpoints, .git, .venv, node_modules, __pycache__ and symlinked notebooks are skipped",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Number of notebooks processed concurrently",
		},
		&cli.BoolFlag{
			Name:  "keep-going",
			Usage: "Continue past malformed notebooks and report them at the end",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would change without writing files",
		},
		&cli.StringFlag{
			Name:  "detector",
			Usage: "Badge detector: substring or strict",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "nbbadge",
		Usage:   "Insert an \"Open in Colab\" badge at the top of every Jupyter notebook",
		Version: version,
		Action:  action("inject", internal.Run),
		Flags:   commonFlags(),
		Commands: []*cli.Command{
			{
				Name:   "inject",
				Usage:  "Process every notebook under the root once",
				Action: action("inject", internal.Run),
				Flags:  commonFlags(),
			},
			{
				Name:   "watch",
				Usage:  "Process every notebook, then keep badges current as notebooks change",
				Action: action("watch", internal.Watch),
				Flags:  commonFlags(),
			},
			{
				Name:   "mcp",
				Usage:  "Serve badge tools over the Model Context Protocol on stdio",
				Action: action("mcp", internal.ServeMCP),
				Flags:  commonFlags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
