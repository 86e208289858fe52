package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gebo/internal"
	"github.com/starford/gebo/internal/graphstore"
	"github.com/starford/gebo/internal/storage"
	pkgconfig "github.com/starford/gebo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// runVerify loads one graph document, prints its integrity report as JSON
// and exits non-zero when the graph has issues.
func runVerify(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: gebo verify <graph.json>")
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	mgr := graphstore.NewManager(store, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	report, err := mgr.Verify(ctx, path)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if !report.Valid {
		return cli.Exit(fmt.Sprintf("%s: %d issue(s) found", path, len(report.Issues)), 1)
	}
	return nil
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "gebo",
		Usage:  "Layered knowledge graph store with a REST API and MCP tools",
		Action: runServe,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: runServe,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdin/stdout",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:      "verify",
				Usage:     "Check a graph document for integrity issues",
				ArgsUsage: "<graph.json>",
				Action:    runVerify,
				Flags:     []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
