package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/productos/internal"
	pkgconfig "github.com/starford/productos/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", fmt.Errorf("%s: missing <%s> argument", cmd.Name, name)
	}
	return arg, nil
}

func initCmd(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.InitWorkspace(ctx, path, os.Stdout, opts...)
}

func syncCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.SyncWorkspace(ctx, os.Stdout, opts...)
}

func migrateCmd(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "new-path")
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.MigrateWorkspace(ctx, path, os.Stdout, opts...)
}

func renderCmd(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "entity-id")
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RenderEntity(ctx, id, os.Stdout, opts...)
}

func mcpCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "productos",
		Usage:  "Product OS workspace: SQLite records mirrored as Markdown files in a user-chosen folder",
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
				Usage:  "Run the HTTP API, SSE events and folder watcher",
				Action: serve,
			},
			{
				Name:      "init",
				Usage:     "Make a folder the workspace and fill it from the database",
				ArgsUsage: "<path>",
				Action:    initCmd,
			},
			{
				Name:   "sync",
				Usage:  "Recreate missing product folders and entity files",
				Action: syncCmd,
			},
			{
				Name:      "migrate",
				Usage:     "Move the workspace to a new folder, keeping the old one as backup",
				ArgsUsage: "<new-path>",
				Action:    migrateCmd,
			},
			{
				Name:      "render",
				Usage:     "Print the Markdown of an entity rendered from the database",
				ArgsUsage: "<entity-id>",
				Action:    renderCmd,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcpCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
