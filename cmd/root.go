package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodia/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "melodia",
	Short: "Practice-session analysis for monophonic instruments",
	Long: `Melodia analyzes a recorded performance against a reference score.
It detects pitch, segments notes, aligns them to the score, and reports
which notes were matched, played wrong, mistimed, or missed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		} else {
			logging.SetLevel(logging.InfoLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
