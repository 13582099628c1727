package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/coursemark/internal"
	pkgconfig "github.com/starford/coursemark/pkg/config"
)

// loadConfig reads the config file. One-shot commands fall back to defaults
// when the file does not exist.
func loadConfig(cmd *cli.Command, optional bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.Load[internal.Config]
	if optional {
		load = pkgconfig.LoadOptional[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func exportBundle(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one bundle file")
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	return internal.ExportFile(ctx, cmd.Args().First(), cmd.String("output"), os.Stderr, internal.WithConfig(cfg))
}

func archiveBundle(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one bundle file")
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	return internal.ArchiveFile(ctx, cmd.Args().First(), cmd.String("output"), os.Stderr, internal.WithConfig(cfg))
}

func main() {
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file (defaults to the bundle path with a new extension)",
	}

	cmd := &cli.Command{
		Name:   "coursemark",
		Usage:  "Export course bundles as LiaScript courses",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and re-export the library on change",
				Action: serve,
			},
			{
				Name:      "export",
				Usage:     "Export one bundle to a LiaScript markdown file",
				ArgsUsage: "<bundle.json|bundle.yaml>",
				Flags:     []cli.Flag{outputFlag},
				Action:    exportBundle,
			},
			{
				Name:      "archive",
				Usage:     "Export one bundle to a zip with markdown and media files",
				ArgsUsage: "<bundle.json|bundle.yaml>",
				Flags:     []cli.Flag{outputFlag},
				Action:    archiveBundle,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
