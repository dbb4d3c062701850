package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type configView struct {
	Source             string `json:"source"`
	Root               string `json:"root"`
	APIURL             string `json:"api_url"`
	RequestTimeout     string `json:"request_timeout"`
	SuccessFlagTTL     string `json:"success_flag_ttl"`
	LogLevel           string `json:"log_level"`
	Env                string `json:"env"`
	ExportDir          string `json:"export_dir"`
	ListenAddr         string `json:"listen_addr"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	Trace              string `json:"trace"`
	OTLPEndpoint       string `json:"otlp_endpoint,omitempty"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the settings studyplan will use after applying defaults,
config.yaml, STUDYPLAN_* environment variables and command-line flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		exportDir := cfg.ExportDir
		if exportDir == "" {
			exportDir = paths.Exports
		}
		view := configView{
			Source:             cfg.Source,
			Root:               paths.Root,
			APIURL:             cfg.APIURL,
			RequestTimeout:     cfg.RequestTimeout.String(),
			SuccessFlagTTL:     cfg.SuccessFlagTTL.String(),
			LogLevel:           cfg.LogLevelOr("warn"),
			Env:                cfg.Env,
			ExportDir:          exportDir,
			ListenAddr:         cfg.ListenAddr,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			Trace:              cfg.Trace,
			OTLPEndpoint:       cfg.OTLPEndpoint,
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			s, err := formatJSON(view)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
			return nil
		}

		PrintSection(out, "Configuration")
		if view.Source == "" {
			PrintEmptyState(out, "No config.yaml found, using defaults and environment")
		} else {
			PrintLabelValue(out, "Config file", view.Source)
		}
		PrintLabelValue(out, "Root", view.Root)
		PrintLabelValue(out, "API URL", view.APIURL)
		PrintLabelValue(out, "Request timeout", view.RequestTimeout)
		PrintLabelValue(out, "Success flag TTL", view.SuccessFlagTTL)
		PrintLabelValue(out, "Log level", view.LogLevel)
		PrintLabelValue(out, "Env", view.Env)
		PrintLabelValue(out, "Export dir", view.ExportDir)
		PrintLabelValue(out, "Listen addr", view.ListenAddr)
		PrintLabelValue(out, "Rate limit", fmt.Sprintf("%d/min", view.RateLimitPerMinute))
		PrintLabelValue(out, "Trace", view.Trace)
		if view.Trace == "otlp" {
			PrintLabelValue(out, "OTLP endpoint", view.OTLPEndpoint)
		}
		return nil
	},
}
