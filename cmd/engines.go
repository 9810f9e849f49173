package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/backends/mrst"
	"github.com/resbridge/resbridge/sim/backends/opm"
)

// simulatorCategory is the registry category all CLI backends live under.
const simulatorCategory = "simulator"

// engineConfig is the optional per-backend engine configuration file.
type engineConfig struct {
	OPM  opm.Config  `yaml:"opm"`
	MRST mrst.Config `yaml:"mrst"`
}

func loadEngineConfig(path string) (engineConfig, error) {
	var cfg engineConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading engine config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing engine config %s: %w", path, err)
	}
	return cfg, nil
}

// buildRegistry constructs the registry the CLI commands consume. The CLI
// is the composition root: backends are registered here explicitly, never
// via package side effects.
func buildRegistry(configPath string) (*sim.Registry, error) {
	cfg, err := loadEngineConfig(configPath)
	if err != nil {
		return nil, err
	}
	reg := sim.NewRegistry()
	reg.Register(simulatorCategory, "opm", opm.New(cfg.OPM))
	reg.Register(simulatorCategory, "mrst", mrst.New(cfg.MRST))
	return reg, nil
}
