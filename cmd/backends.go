package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var backendsEngineConfig string

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered simulator backends and their health",
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := buildRegistry(backendsEngineConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		health, overall := registry.AggregateHealth(ctx)

		for _, name := range registry.ListNames(simulatorCategory) {
			backend, err := registry.Get(simulatorCategory, name)
			if err != nil {
				continue
			}
			info := backend.Info()
			status := "unhealthy"
			if health[simulatorCategory+"/"+name] {
				status = "healthy"
			}
			fmt.Printf("%-8s %-12s %-9s %s\n", name, info.Engine, status, info.Description)
		}
		if !overall {
			fmt.Println("overall: degraded")
			return
		}
		fmt.Println("overall: healthy")
	},
}

func init() {
	backendsCmd.Flags().StringVar(&backendsEngineConfig, "engine-config", "", "Optional YAML file with engine binaries and timeouts")

	rootCmd.AddCommand(backendsCmd)
}
