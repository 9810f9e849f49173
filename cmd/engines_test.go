package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEngineConfig_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := loadEngineConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OPM.Binary != "" || cfg.MRST.Binary != "" {
		t.Errorf("cfg = %+v, want zero values", cfg)
	}
}

func TestLoadEngineConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	body := `opm:
  binary: /opt/opm/bin/flow
  args: ["--threads-per-process=4"]
  timeout_minutes: 30
mrst:
  binary: octave
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadEngineConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OPM.Binary != "/opt/opm/bin/flow" || cfg.OPM.TimeoutMinutes != 30 {
		t.Errorf("opm = %+v", cfg.OPM)
	}
	if !reflect.DeepEqual(cfg.OPM.Args, []string{"--threads-per-process=4"}) {
		t.Errorf("opm args = %v", cfg.OPM.Args)
	}
	if cfg.MRST.Binary != "octave" {
		t.Errorf("mrst = %+v", cfg.MRST)
	}
}

func TestLoadEngineConfig_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	if err := os.WriteFile(path, []byte("eclipse:\n  binary: ecl\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadEngineConfig(path); err == nil {
		t.Error("unknown backend section must be rejected")
	}
}

func TestBuildRegistry_RegistersBothBackends(t *testing.T) {
	reg, err := buildRegistry("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := reg.ListNames(simulatorCategory)
	if !reflect.DeepEqual(names, []string{"mrst", "opm"}) {
		t.Errorf("names = %v", names)
	}
	s, err := reg.Get(simulatorCategory, "opm")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Info().Name != "opm" {
		t.Errorf("info = %+v", s.Info())
	}
}
