package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/deck"
)

var (
	runBackend      string
	runDeckPath     string
	runWorkdir      string
	runEngineConfig string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a deck on a named backend",
	Run: func(cmd *cobra.Command, args []string) {
		parsed, err := deck.ParseFile(runDeckPath)
		if err != nil {
			logrus.Fatalf("Parse failed: %v", err)
		}
		for _, w := range parsed.Warnings {
			logrus.Warnf("%s", w)
		}

		registry, err := buildRegistry(runEngineConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		backend, err := registry.Get(simulatorCategory, runBackend)
		if err != nil {
			logrus.Fatalf("Unknown backend %q (have: %v)", runBackend, registry.ListNames(simulatorCategory))
		}

		if problems := backend.Validate(parsed.Request); len(problems) > 0 {
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "problem: %s\n", p)
			}
			logrus.Fatalf("Request rejected by backend %s", runBackend)
		}

		if err := os.MkdirAll(runWorkdir, 0o755); err != nil {
			logrus.Fatalf("Creating working directory: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		task := sim.Launch(ctx, backend, parsed.Request, runWorkdir, func(f float64) {
			logrus.Infof("progress: %3.0f%%", f*100)
		})
		if err := task.Wait(); err != nil {
			if task.FailureReason() == sim.CancelledReason {
				logrus.Fatalf("Run cancelled; partial artifacts remain in %s", runWorkdir)
			}
			logrus.Fatalf("Run failed: %v (artifacts in %s)", err, runWorkdir)
		}

		result, err := backend.ParseResult(runWorkdir, parsed.Request)
		if err != nil {
			logrus.Fatalf("Reading results: %v", err)
		}
		printResultSummary(result)
	},
}

func printResultSummary(result *sim.UnifiedResult) {
	vectors := result.Vectors()
	names := make([]string, 0, len(vectors))
	for name := range vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := vectors[name]
		fmt.Printf("%-16s %5d points, final %g\n", name, v.Len(), v.Values[v.Len()-1])
	}
	c := result.Convergence
	if c.Completed {
		fmt.Printf("converged (%d time-step cuts, %d warnings)\n", c.TimestepCuts, len(c.Warnings))
	} else {
		fmt.Printf("INCOMPLETE: %s (%d time-step cuts)\n", c.FailureReason, c.TimestepCuts)
	}
}

func init() {
	runCmd.Flags().StringVar(&runBackend, "backend", "opm", "Backend name (see 'resbridge backends')")
	runCmd.Flags().StringVar(&runDeckPath, "deck", "", "Path to the input deck")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "Working directory for engine input and output artifacts")
	runCmd.Flags().StringVar(&runEngineConfig, "engine-config", "", "Optional YAML file with engine binaries and timeouts")
	_ = runCmd.MarkFlagRequired("deck")
	_ = runCmd.MarkFlagRequired("workdir")

	rootCmd.AddCommand(runCmd)
}
