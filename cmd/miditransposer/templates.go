package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/param"
)

func init() {
	rootCmd.AddCommand(templatesCmd)
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List chord templates, scales and arpeggiator rates",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Chord templates:")
		for _, t := range chord.Builtins() {
			fmt.Printf("  %-18s %v\n", t.Name, t.Offsets)
		}
		fmt.Printf("  %-18s set with --custom\n", "Custom")

		fmt.Println("\nScales:")
		for _, s := range chord.Scales {
			fmt.Printf("  %s\n", s.Name)
		}

		fmt.Println("\nArpeggiator rates:")
		for _, d := range param.Divisions {
			fmt.Printf("  %-5s %.4g beats\n", d.Label, d.Beats)
		}
	},
}
