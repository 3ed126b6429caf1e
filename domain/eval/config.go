package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/domain/slicing"
)

// DefaultLabelColumn is used when a config names no label column
const DefaultLabelColumn = "label"

// DefaultScoreColumn is the single-model score column default
const DefaultScoreColumn = "score"

// ModelSpec names one model under evaluation and where its scores live
type ModelSpec struct {
	Name        string `json:"name" yaml:"name"`
	ScoreColumn string `json:"score_column,omitempty" yaml:"score_column,omitempty"`
	IsBaseline  bool   `json:"is_baseline,omitempty" yaml:"is_baseline,omitempty"`
}

// MetricsSpec selects the metrics to compute. Rate metrics expand per
// threshold ("false_negative_rate@0.30"); an empty Names list selects the
// canonical set.
type MetricsSpec struct {
	Names      []string  `json:"names,omitempty" yaml:"names,omitempty"`
	Thresholds []float64 `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// Config is a complete evaluation configuration
type Config struct {
	LabelColumn   string         `json:"label_column,omitempty" yaml:"label_column,omitempty"`
	ModelSpecs    []ModelSpec    `json:"models" yaml:"models"`
	Metrics       MetricsSpec    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	SlicingSpecs  []slicing.Spec `json:"slicing,omitempty" yaml:"slicing,omitempty"`
	NotesMarkdown string         `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// LoadConfig reads and validates a YAML evaluation config
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when an input arrives
// without one: a single model on the default score column, the canonical
// metric set, and no slicing.
func DefaultConfig() Config {
	cfg := Config{ModelSpecs: []ModelSpec{{Name: "model"}}}
	cfg.Normalize()
	return cfg
}

// Normalize fills defaults: label column, per-model score columns, and the
// canonical metric set when none is named.
func (c *Config) Normalize() {
	if c.LabelColumn == "" {
		c.LabelColumn = DefaultLabelColumn
	}
	for i := range c.ModelSpecs {
		if c.ModelSpecs[i].ScoreColumn != "" {
			continue
		}
		if len(c.ModelSpecs) == 1 {
			c.ModelSpecs[i].ScoreColumn = DefaultScoreColumn
		} else {
			c.ModelSpecs[i].ScoreColumn = DefaultScoreColumn + "_" + c.ModelSpecs[i].Name
		}
	}
	if len(c.Metrics.Names) == 0 {
		c.Metrics.Names = append([]string(nil), metrics.CanonicalNames...)
	}
}

// Validate enforces config invariants
func (c *Config) Validate() error {
	if len(c.ModelSpecs) == 0 {
		return fmt.Errorf("at least one model spec required")
	}

	names := make(map[string]bool, len(c.ModelSpecs))
	baselines := 0
	for _, spec := range c.ModelSpecs {
		if spec.Name == "" {
			return fmt.Errorf("model spec name cannot be empty")
		}
		if names[spec.Name] {
			return fmt.Errorf("duplicate model name %q", spec.Name)
		}
		names[spec.Name] = true
		if spec.IsBaseline {
			baselines++
		}
	}
	if baselines > 1 {
		return fmt.Errorf("at most one baseline model allowed, got %d", baselines)
	}

	for _, threshold := range c.Metrics.Thresholds {
		if threshold <= 0 || threshold >= 1 {
			return fmt.Errorf("threshold %v outside (0, 1)", threshold)
		}
	}

	if c.LabelColumn == "" {
		return fmt.Errorf("label column cannot be empty")
	}
	return nil
}

// Baseline returns the baseline model spec. Falls back to the first model
// when none is flagged.
func (c *Config) Baseline() ModelSpec {
	for _, spec := range c.ModelSpecs {
		if spec.IsBaseline {
			return spec
		}
	}
	return c.ModelSpecs[0]
}

// ModelNames lists the configured model names in spec order
func (c *Config) ModelNames() []string {
	names := make([]string, len(c.ModelSpecs))
	for i, spec := range c.ModelSpecs {
		names[i] = spec.Name
	}
	return names
}

// ModelByName looks up a model spec
func (c *Config) ModelByName(name string) (ModelSpec, bool) {
	for _, spec := range c.ModelSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return ModelSpec{}, false
}

// MetricNames expands the metrics spec into concrete metric names: rate
// metrics get one entry per configured threshold, everything else passes
// through unchanged.
func (c *Config) MetricNames() []string {
	expanded := make([]string, 0, len(c.Metrics.Names))
	for _, name := range c.Metrics.Names {
		if metrics.IsRateMetric(name) && len(c.Metrics.Thresholds) > 0 {
			if _, _, hasThreshold := metrics.SplitThreshold(name); !hasThreshold {
				for _, threshold := range c.Metrics.Thresholds {
					expanded = append(expanded, metrics.ThresholdedName(name, threshold))
				}
				continue
			}
		}
		expanded = append(expanded, name)
	}
	return expanded
}
