// Package main provides the geoaudit CLI: it audits a single URL and
// prints the resulting GEO/AEO report as JSON or YAML.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dtnitsch/geo-audit/internal/auditpipeline/config"
	"github.com/dtnitsch/geo-audit/internal/auditpipeline/orchestrator"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	app := &cli.App{
		Name:  "geoaudit",
		Usage: "Audit a URL's Generative Engine Optimization (GEO) readiness and print a weighted score report.",
		Commands: []*cli.Command{
			{
				Name:   "audit",
				Usage:  "Run a full audit against one URL",
				Action: auditAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "URL to audit",
						Aliases:  []string{"u"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "Path to a YAML configuration file",
						Aliases: []string{"c"},
					},
					&cli.StringFlag{
						Name:    "format",
						Usage:   "Output format (json or yaml)",
						Aliases: []string{"f"},
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Usage:   "Write the report to a file instead of stdout",
						Aliases: []string{"o"},
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Suppress structured log output",
						Value: false,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("geoaudit exited with an error", "error", err)
		os.Exit(1)
	}
}

func auditAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pipeline := orchestrator.New(cfg, logger)

	auditReport, err := pipeline.Audit(context.Background(), c.String("url"))
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	var out []byte
	switch c.String("format") {
	case "yaml":
		out, err = yaml.Marshal(auditReport)
	case "json", "":
		out, err = json.MarshalIndent(auditReport, "", "  ")
	default:
		return fmt.Errorf("unsupported format %q: use 'json' or 'yaml'", c.String("format"))
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if path := c.String("output"); path != "" {
		return os.WriteFile(path, out, 0o644)
	}
	fmt.Println(string(out))
	return nil
}
