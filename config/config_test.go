package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MelancholyMing/tfkaldi/dispense"
)

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Error(err)
	}
}

func TestValidateErrors(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Listener.InputDim = 0 },
		func(c *Config) { c.Cell.NumLabels = -1 },
		func(c *Config) { c.Cell.FeedProb = 1.5 },
		// an explicit 0 would be silently promoted to the default
		func(c *Config) { c.Cell.FeedProb = 0 },
		func(c *Config) { c.Batch.Size = 0 },
		func(c *Config) { c.Batch.Targets = "bogus" },
		func(c *Config) { c.Train.StepSize = 0 },
	}
	for i, mutate := range bad {
		conf := Default()
		mutate(conf)
		if conf.Validate() == nil {
			t.Errorf("case %d: expected a validation error", i)
		}
	}
}

func TestLoad(t *testing.T) {
	contents := "listener:\n  input_dim: 13\nbatch:\n  targets: sparse\n"
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Listener.InputDim != 13 {
		t.Errorf("expected input_dim 13, but got %d", conf.Listener.InputDim)
	}
	// untouched fields keep their defaults
	if conf.Cell.StateSize != Default().Cell.StateSize {
		t.Errorf("unexpected state_size: %d", conf.Cell.StateSize)
	}
	enc, err := conf.Batch.TargetEncoding()
	if err != nil {
		t.Fatal(err)
	}
	if enc != dispense.SparseEncoding {
		t.Errorf("expected sparse encoding, but got %v", enc)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error on missing file")
	}
}
