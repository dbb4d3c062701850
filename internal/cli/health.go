package cli

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the plan service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "warn")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.client.Health(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, status)
		}
		PrintSuccess(out, "Plan service is up")
		PrintLabelValue(out, "URL", a.client.BaseURL())
		PrintLabelValue(out, "Status", status.Status)
		PrintLabelValue(out, "Version", status.Version)
		return nil
	},
}
