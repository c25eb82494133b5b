package main

import (
	"github.com/spf13/cobra"

	"github.com/stfufane/miditransposer/pkg/debug"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "miditransposer",
	Short: "Transpose and chord-expand MIDI files",
	Long: `miditransposer applies the transposition engine to a standard MIDI
file: semitone and octave shifts, chord templates, scale quantization and the
arpeggiator, rendered offline block by block.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			debug.Default().SetLevel(debug.LevelDebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
