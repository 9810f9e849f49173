package compare

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/resbridge/resbridge/sim"
)

// Thresholds bounds the metrics of one vector class. A zero threshold is
// disabled, so a config may constrain only the metrics it cares about.
type Thresholds struct {
	MaxMAE   float64 `yaml:"max_mae"`
	MaxNRMSE float64 `yaml:"max_nrmse"`
	MinR2    float64 `yaml:"min_r2"`
}

func (t Thresholds) check(vr VectorReport) bool {
	if vr.Points == 0 {
		return false
	}
	if t.MaxMAE > 0 && vr.MAE > t.MaxMAE {
		return false
	}
	if t.MaxNRMSE > 0 && vr.NRMSE > t.MaxNRMSE {
		return false
	}
	if t.MinR2 > 0 && vr.R2 < t.MinR2 {
		return false
	}
	return true
}

// Config sets per-vector-class thresholds: well-level vectors are noisier
// than field aggregates and get looser bounds.
type Config struct {
	Field              Thresholds `yaml:"field"`
	Well               Thresholds `yaml:"well"`
	RequireSameVectors bool       `yaml:"require_same_vectors"`
}

func (c Config) thresholdsFor(name string) Thresholds {
	if sim.IsWellVector(name) {
		return c.Well
	}
	return c.Field
}

// DefaultConfig returns the thresholds used when no tolerance file is
// supplied.
func DefaultConfig() Config {
	return Config{
		Field: Thresholds{MaxNRMSE: 0.02, MinR2: 0.99},
		Well:  Thresholds{MaxNRMSE: 0.05, MinR2: 0.98},
	}
}

// LoadConfig reads a tolerance configuration from a YAML file. Unknown
// fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading tolerance config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing tolerance config %s: %w", path, err)
	}
	return cfg, nil
}
