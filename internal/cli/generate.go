package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/render"
)

var (
	generateSubjects string
	generateHours    string
	generateDays     string
	generateExport   bool
	generateOutDir   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a weekly study plan",
	Long: `Request a weekly study plan for the given subjects and print it.

Subjects are comma separated (1 to 8). Daily hours must be between 0.5
and 12, days per week between 1 and 7.`,
	Example: `  studyplan generate -s "Mathematics, Physics" --hours 3 --days 6
  studyplan generate -s "Python, JavaScript, React" --hours 2 --days 5 --export -o plans/
  studyplan generate -s Biology --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "warn")
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		state, err := a.controller.Generate(cmd.Context(), controller.Input{
			Subjects:    generateSubjects,
			Hours:       generateHours,
			DaysPerWeek: generateDays,
		})
		if err != nil {
			var f *controller.Failure
			if errors.As(err, &f) {
				return errors.New(f.Message)
			}
			return err
		}

		if jsonOutput {
			if err := outputJSON(out, state.Model); err != nil {
				return err
			}
		} else {
			a.printer.Plan(state.Model)
			fmt.Fprintln(out)
			PrintSuccess(out, render.SuccessBanner)
		}

		if generateExport || cmd.Flags().Changed("output") {
			dir, err := a.exportDir(generateOutDir)
			if err != nil {
				return err
			}
			path, err := a.exporter.ExportTo(state.Model, dir)
			if err != nil {
				return err
			}
			if !jsonOutput {
				PrintSuccess(out, "Plan saved to: "+path)
			}
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateSubjects, "subjects", "s", "", "Comma-separated list of subjects (required)")
	generateCmd.Flags().StringVar(&generateHours, "hours", "3", "Daily study hours (0.5-12)")
	generateCmd.Flags().StringVar(&generateDays, "days", "6", "Days per week to study (1-7)")
	generateCmd.Flags().BoolVar(&generateExport, "export", false, "Save the plan as study-plan-<date>.json")
	generateCmd.Flags().StringVarP(&generateOutDir, "output", "o", "", "Directory for the exported plan (implies --export)")
	_ = generateCmd.MarkFlagRequired("subjects")
}
