package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resbridge/resbridge/sim/deck"
)

var fmtDeckPath string

var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Rewrite a deck in canonical form",
	Long:  "Parse a deck and regenerate it with canonical section layout and numeric formatting. Output is written to stdout for piping.",
	Run: func(cmd *cobra.Command, args []string) {
		parsed, err := deck.ParseFile(fmtDeckPath)
		if err != nil {
			logrus.Fatalf("Parse failed: %v", err)
		}
		for _, w := range parsed.Warnings {
			logrus.Warnf("%s", w)
		}
		if err := deck.Write(os.Stdout, parsed.Request); err != nil {
			logrus.Fatalf("Generate failed: %v", err)
		}
	},
}

func init() {
	fmtCmd.Flags().StringVar(&fmtDeckPath, "deck", "", "Path to the input deck")
	_ = fmtCmd.MarkFlagRequired("deck")

	rootCmd.AddCommand(fmtCmd)
}
