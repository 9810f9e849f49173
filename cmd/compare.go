package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/compare"
	"github.com/resbridge/resbridge/sim/output"
)

var (
	comparePathA     string
	comparePathB     string
	compareTolPath   string
	compareFormat    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Statistically compare two result artifacts",
	Long:  "Read two result artifacts (RSM run summaries or CSV exports), align their time grids and report MAE, NRMSE and R2 per vector against per-class tolerances. The first artifact is the reference.",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := readArtifact(comparePathA)
		if err != nil {
			logrus.Fatalf("Reading %s: %v", comparePathA, err)
		}
		b, err := readArtifact(comparePathB)
		if err != nil {
			logrus.Fatalf("Reading %s: %v", comparePathB, err)
		}

		cfg := compare.DefaultConfig()
		if compareTolPath != "" {
			cfg, err = compare.LoadConfig(compareTolPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		report := compare.Compare(a, b, cfg)
		switch compareFormat {
		case "yaml":
			data, err := yaml.Marshal(report)
			if err != nil {
				logrus.Fatalf("Encoding report: %v", err)
			}
			fmt.Print(string(data))
		case "text":
			printReport(report)
		default:
			logrus.Fatalf("Unknown format %q (want text or yaml)", compareFormat)
		}
		if !report.Pass {
			os.Exit(1)
		}
	},
}

// readArtifact picks a reader by extension: .rsm run summaries, anything
// else is treated as a CSV export.
func readArtifact(path string) (*sim.UnifiedResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".rsm") {
		return output.ReadRSMFile(path)
	}
	return output.ReadCSVFile(path)
}

func printReport(report *compare.Report) {
	names := make([]string, 0, len(report.Vectors))
	for name := range report.Vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vr := report.Vectors[name]
		verdict := "PASS"
		if !vr.Pass {
			verdict = "FAIL"
		}
		fmt.Printf("%-16s MAE=%-12.5g NRMSE=%-10.5g R2=%-10.6f %s\n", name, vr.MAE, vr.NRMSE, vr.R2, verdict)
	}
	for _, name := range report.OnlyInA {
		fmt.Printf("%-16s only in reference\n", name)
	}
	for _, name := range report.OnlyInB {
		fmt.Printf("%-16s only in candidate\n", name)
	}
	if report.Pass {
		fmt.Println("verdict: PASS")
	} else {
		fmt.Println("verdict: FAIL")
	}
}

func init() {
	compareCmd.Flags().StringVar(&comparePathA, "a", "", "Reference result artifact")
	compareCmd.Flags().StringVar(&comparePathB, "b", "", "Candidate result artifact")
	compareCmd.Flags().StringVar(&compareTolPath, "tolerances", "", "Optional YAML tolerance config")
	compareCmd.Flags().StringVar(&compareFormat, "format", "text", "Report format (text or yaml)")
	_ = compareCmd.MarkFlagRequired("a")
	_ = compareCmd.MarkFlagRequired("b")

	rootCmd.AddCommand(compareCmd)
}
