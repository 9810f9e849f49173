package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/deck"
)

var validateDeckPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a deck and check it against the model invariants",
	Run: func(cmd *cobra.Command, args []string) {
		parsed, err := deck.ParseFile(validateDeckPath)
		if err != nil {
			logrus.Fatalf("Parse failed: %v", err)
		}
		for _, w := range parsed.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		problems := sim.ValidateRequest(parsed.Request)
		for _, p := range problems {
			fmt.Printf("problem: %s\n", p)
		}
		if len(problems) > 0 {
			os.Exit(1)
		}
		fmt.Printf("%s: valid (%d wells, %d cells, %.0f days)\n", validateDeckPath,
			len(parsed.Request.Wells), parsed.Request.Grid.NumCells(), parsed.Request.TotalDays())
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateDeckPath, "deck", "", "Path to the input deck")
	_ = validateCmd.MarkFlagRequired("deck")

	rootCmd.AddCommand(validateCmd)
}
