package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sarvex/model-analysis/domain/eval"
)

// StageScores names the score and label extraction stage
const StageScores = "ExtractScores"

// ScoresExtractor reads the label column and every model's score column
// from the raw rows. A single model spec stores its score as a bare
// float64; multiple specs store a map keyed by model name.
func ScoresExtractor(cfg eval.Config) Extractor {
	return Extractor{
		StageName: StageScores,
		Transform: func(ctx context.Context, batch []Extracts) ([]Extracts, error) {
			return extractScores(cfg, batch)
		},
	}
}

func extractScores(cfg eval.Config, batch []Extracts) ([]Extracts, error) {
	out := make([]Extracts, len(batch))
	for i, ex := range batch {
		raw := ex.Input()
		if raw == nil {
			return nil, fmt.Errorf("row %d: stage requires raw input rows", i)
		}

		label, err := parseColumn(raw, cfg.LabelColumn)
		if err != nil {
			return nil, fmt.Errorf("row %d: label: %w", i, err)
		}

		next := ex.Clone()
		next[LabelsKey] = label

		if len(cfg.ModelSpecs) == 1 {
			score, err := parseColumn(raw, cfg.ModelSpecs[0].ScoreColumn)
			if err != nil {
				return nil, fmt.Errorf("row %d: model %q: %w", i, cfg.ModelSpecs[0].Name, err)
			}
			next[PredictionsKey] = score
		} else {
			scores := make(map[string]float64, len(cfg.ModelSpecs))
			for _, spec := range cfg.ModelSpecs {
				score, err := parseColumn(raw, spec.ScoreColumn)
				if err != nil {
					return nil, fmt.Errorf("row %d: model %q: %w", i, spec.Name, err)
				}
				scores[spec.Name] = score
			}
			next[PredictionsKey] = scores
		}

		out[i] = next
	}
	return out, nil
}

func parseColumn(raw map[string]string, column string) (float64, error) {
	value, ok := raw[column]
	if !ok || value == "" {
		return 0, fmt.Errorf("requires column %q not available in input", column)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q value %q is not numeric", column, value)
	}
	return v, nil
}
