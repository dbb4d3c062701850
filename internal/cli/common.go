package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyplan/studyplan/internal/clock"
	"github.com/studyplan/studyplan/internal/config"
	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/export"
	"github.com/studyplan/studyplan/internal/fsops"
	"github.com/studyplan/studyplan/internal/logger"
	"github.com/studyplan/studyplan/internal/observability"
	"github.com/studyplan/studyplan/internal/planclient"
	"github.com/studyplan/studyplan/internal/render"
)

// app bundles the dependencies a command needs.
type app struct {
	cfg   *config.Config
	paths *config.Paths
	log   *logger.Logger

	client     *planclient.Client
	controller *controller.Controller
	exporter   *export.Service
	printer    *render.Printer

	shutdownTracing func(context.Context) error
}

// loadConfig resolves settings with global flags applied on top.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Paths, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	overrides := map[string]any{}
	if cmd.Flags().Changed("api-url") {
		overrides["api_url"] = apiURL
	}
	if cmd.Flags().Changed("log-level") {
		overrides["log_level"] = logLevel
	}

	cfg, err := config.Load(paths, overrides, ".")
	if err != nil {
		return nil, nil, err
	}
	return cfg, paths, nil
}

// newApp wires real implementations. defaultLevel applies when no log
// level is configured.
func newApp(cmd *cobra.Command, defaultLevel string) (*app, error) {
	cfg, paths, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env, cfg.LogLevelOr(defaultLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	shutdown, err := observability.InitTracing(cmd.Context(), log, observability.TracingConfig{
		ServiceName: "studyplan",
		Environment: cfg.Env,
		Version:     rootCmd.Version,
		Exporter:    cfg.Trace,
		Writer:      os.Stderr,

		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, err
	}

	client, err := planclient.New(planclient.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	clk := &clock.RealClock{}
	ctrl, err := controller.New(controller.Options{
		Fetcher:        client,
		Clock:          clk,
		SuccessFlagTTL: cfg.SuccessFlagTTL,
		BaseURL:        cfg.APIURL,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:             cfg,
		paths:           paths,
		log:             log,
		client:          client,
		controller:      ctrl,
		exporter:        export.NewService(clk, fsops.NewRealFS(), log),
		printer:         render.New(cmd.OutOrStdout()),
		shutdownTracing: shutdown,
	}, nil
}

func (a *app) Close() {
	a.controller.Close()
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.shutdownTracing(ctx)
	}
	a.log.Sync()
}

// exportDir picks the export directory: the flag value, then export_dir
// from config, then the exports directory under the studyplan root.
func (a *app) exportDir(flagDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if a.cfg.ExportDir != "" {
		return a.cfg.ExportDir, nil
	}
	if err := a.paths.EnsureDirectories(); err != nil {
		return "", err
	}
	return a.paths.Exports, nil
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON writes v as indented JSON without HTML escaping, so
// resource URLs stay readable.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
