// Package config loads the YAML configuration shared by the
// training and decoding commands.
package config

import (
	"fmt"
	"os"

	"github.com/unixpickle/essentials"
	"gopkg.in/yaml.v3"

	"github.com/MelancholyMing/tfkaldi/dispense"
)

// Config bundles every tunable of the pipeline.
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	Cell     CellConfig     `yaml:"cell"`
	Batch    BatchConfig    `yaml:"batch"`
	Train    TrainConfig    `yaml:"train"`
}

// ListenerConfig shapes the pyramidal encoder.
type ListenerConfig struct {
	InputDim      int `yaml:"input_dim"`
	StateSize     int `yaml:"state_size"`
	OutputDim     int `yaml:"output_dim"`
	PyramidLayers int `yaml:"pyramid_layers"`
}

// CellConfig shapes the attend-and-spell decoder.
type CellConfig struct {
	NumLabels    int     `yaml:"num_labels"`
	StateSize    int     `yaml:"state_size"`
	HiddenSize   int     `yaml:"hidden_size"`
	HiddenLayers int     `yaml:"hidden_layers"`
	DualRNN      bool    `yaml:"dual_rnn"`
	FeedProb     float64 `yaml:"feed_prob"`
}

// BatchConfig shapes minibatch assembly.
type BatchConfig struct {
	Size    int    `yaml:"size"`
	MaxTime int    `yaml:"max_time"`
	Targets string `yaml:"targets"`
}

// TrainConfig holds the SGD settings.
type TrainConfig struct {
	StepSize float64 `yaml:"step_size"`
	Average  bool    `yaml:"average"`
}

// Default returns a configuration with sensible values for a
// character-level model over 40-dimensional features.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			InputDim:      40,
			StateSize:     128,
			OutputDim:     128,
			PyramidLayers: 2,
		},
		Cell: CellConfig{
			NumLabels:    dispense.NewCharCoder().NumLabels(),
			StateSize:    128,
			HiddenSize:   128,
			HiddenLayers: 1,
			FeedProb:     0.8,
		},
		Batch: BatchConfig{
			Size:    16,
			Targets: "one_hot",
		},
		Train: TrainConfig{
			StepSize: 0.001,
			Average:  true,
		},
	}
}

// Load reads a YAML file over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	res := Default()
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	if err := res.Validate(); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return res, nil
}

// Validate checks every field and fails on the first bad one.
func (c *Config) Validate() error {
	switch {
	case c.Listener.InputDim <= 0:
		return fmt.Errorf("listener input_dim must be positive: %d", c.Listener.InputDim)
	case c.Listener.StateSize <= 0:
		return fmt.Errorf("listener state_size must be positive: %d", c.Listener.StateSize)
	case c.Listener.OutputDim <= 0:
		return fmt.Errorf("listener output_dim must be positive: %d", c.Listener.OutputDim)
	case c.Listener.PyramidLayers < 0:
		return fmt.Errorf("listener pyramid_layers must not be negative: %d",
			c.Listener.PyramidLayers)
	case c.Cell.NumLabels <= 0:
		return fmt.Errorf("cell num_labels must be positive: %d", c.Cell.NumLabels)
	case c.Cell.StateSize <= 0:
		return fmt.Errorf("cell state_size must be positive: %d", c.Cell.StateSize)
	case c.Cell.HiddenSize <= 0:
		return fmt.Errorf("cell hidden_size must be positive: %d", c.Cell.HiddenSize)
	case c.Cell.HiddenLayers < 0:
		return fmt.Errorf("cell hidden_layers must not be negative: %d", c.Cell.HiddenLayers)
	case c.Cell.FeedProb <= 0 || c.Cell.FeedProb > 1:
		return fmt.Errorf("cell feed_prob must be in (0, 1]: %f", c.Cell.FeedProb)
	case c.Batch.Size <= 0:
		return fmt.Errorf("batch size must be positive: %d", c.Batch.Size)
	case c.Batch.MaxTime < 0:
		return fmt.Errorf("batch max_time must not be negative: %d", c.Batch.MaxTime)
	case c.Train.StepSize <= 0:
		return fmt.Errorf("train step_size must be positive: %f", c.Train.StepSize)
	}
	if _, err := c.Batch.TargetEncoding(); err != nil {
		return err
	}
	return nil
}

// TargetEncoding resolves the configured target encoding
// name.
func (b *BatchConfig) TargetEncoding() (dispense.TargetEncoding, error) {
	switch b.Targets {
	case "one_hot":
		return dispense.OneHotEncoding, nil
	case "sparse":
		return dispense.SparseEncoding, nil
	}
	return 0, fmt.Errorf("unknown target encoding: %q", b.Targets)
}
