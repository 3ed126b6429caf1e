// Package testkit generates deterministic scored-example datasets for
// seeding demos and exercising the evaluation pipeline end to end.
package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// GeneratorConfig configures the scored-example generator
type GeneratorConfig struct {
	ExampleCount int                `json:"example_count"`
	Models       []string           `json:"models"`
	PositiveRate float64            `json:"positive_rate"`
	Separation   float64            `json:"separation"`
	GroupBias    map[string]float64 `json:"group_bias"`
	ModelSkew    map[string]float64 `json:"model_skew"`
	Seed         int64              `json:"seed"`
}

// DefaultGeneratorConfig returns a dataset shape with one model and a
// mild score-quality gap against the "female" group
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		ExampleCount: 500,
		Models:       []string{"candidate"},
		PositiveRate: 0.4,
		Separation:   0.35,
		GroupBias:    map[string]float64{"female": 0.08},
		Seed:         42,
	}
}

// Generator produces labeled, scored examples with known per-group score
// quality differences
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator from a config
func NewGenerator(config GeneratorConfig) *Generator {
	if config.ExampleCount <= 0 {
		config.ExampleCount = DefaultGeneratorConfig().ExampleCount
	}
	if len(config.Models) == 0 {
		config.Models = DefaultGeneratorConfig().Models
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Columns returns the CSV header for the generated rows: identifier and
// feature columns, then label, then one score column per model. A single
// model scores into "score"; multiple models score into "score_<name>".
func (g *Generator) Columns() []string {
	columns := []string{"id", "sex", "age_group", "region", "label"}
	if len(g.config.Models) == 1 {
		return append(columns, "score")
	}
	for _, model := range g.config.Models {
		columns = append(columns, "score_"+model)
	}
	return columns
}

// GenerateRows produces the configured number of scored examples
func (g *Generator) GenerateRows() []map[string]string {
	rows := make([]map[string]string, 0, g.config.ExampleCount)
	for i := 0; i < g.config.ExampleCount; i++ {
		rows = append(rows, g.generateRow(i))
	}
	return rows
}

func (g *Generator) generateRow(index int) map[string]string {
	sex := g.randomSex()
	positive := g.rng.Float64() < g.config.PositiveRate

	label := "0"
	if positive {
		label = "1"
	}

	row := map[string]string{
		"id":        fmt.Sprintf("example_%05d", index+1),
		"sex":       sex,
		"age_group": g.randomAgeGroup(),
		"region":    g.randomRegion(),
		"label":     label,
	}

	for _, model := range g.config.Models {
		score := g.score(positive, sex, model)
		column := "score"
		if len(g.config.Models) > 1 {
			column = "score_" + model
		}
		row[column] = strconv.FormatFloat(score, 'f', 4, 64)
	}
	return row
}

// score draws a noisy class-conditional score. Group bias pulls scores
// toward 0.5 for the biased group, degrading that group's separation.
func (g *Generator) score(positive bool, sex, model string) float64 {
	separation := g.config.Separation + g.config.ModelSkew[model]
	if separation < 0 {
		separation = 0
	}

	mean := 0.5 - separation/2
	if positive {
		mean = 0.5 + separation/2
	}

	bias := g.config.GroupBias[sex]
	if positive {
		mean -= bias
	} else {
		mean += bias
	}

	return clampScore(mean + g.rng.NormFloat64()*0.15)
}

// WriteCSV writes the generated rows to a CSV file with a header row
func (g *Generator) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	columns := g.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range g.GenerateRows() {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (g *Generator) randomSex() string {
	values := []string{"male", "female", "other"}
	weights := []float64{0.48, 0.48, 0.04}
	return g.weightedChoice(values, weights)
}

func (g *Generator) randomAgeGroup() string {
	values := []string{"18-25", "26-40", "41-65", "65+"}
	weights := []float64{0.25, 0.35, 0.3, 0.1}
	return g.weightedChoice(values, weights)
}

func (g *Generator) randomRegion() string {
	values := []string{"north", "south", "east", "west"}
	weights := []float64{0.25, 0.25, 0.25, 0.25}
	return g.weightedChoice(values, weights)
}

func (g *Generator) weightedChoice(values []string, weights []float64) string {
	r := g.rng.Float64()
	cumulative := 0.0
	for i, weight := range weights {
		cumulative += weight
		if r <= cumulative {
			return values[i]
		}
	}
	return values[0]
}
