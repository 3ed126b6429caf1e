package profiling

import (
	"fmt"

	"github.com/sarvex/model-analysis/domain/eval"
)

// Slicing a feature with more distinct values than this makes a table
// nobody can read
const maxSliceCardinality = 50

// High missing rates degrade every metric computed over the column
const missingRateCeiling = 0.2

// CheckConfig compares column profiles against an evaluation config and
// returns warnings about mismatches the run would hit.
func CheckConfig(profiles []ColumnProfile, cfg eval.Config) []string {
	byName := make(map[string]ColumnProfile, len(profiles))
	for _, profile := range profiles {
		byName[profile.Name] = profile
	}

	var warnings []string

	label, ok := byName[cfg.LabelColumn]
	switch {
	case !ok:
		warnings = append(warnings, fmt.Sprintf("label column %q not present in dataset", cfg.LabelColumn))
	case label.Kind != ColumnNumeric:
		warnings = append(warnings, fmt.Sprintf("label column %q is %s, binary 0/1 labels expected", label.Name, label.Kind))
	case label.Summary != nil && (label.Summary.Min < 0 || label.Summary.Max > 1):
		warnings = append(warnings, fmt.Sprintf("label column %q ranges [%g, %g], outside {0, 1}", label.Name, label.Summary.Min, label.Summary.Max))
	case label.Distinct > 2:
		warnings = append(warnings, fmt.Sprintf("label column %q has %d distinct values, binary labels expected", label.Name, label.Distinct))
	}

	for _, spec := range cfg.ModelSpecs {
		score, ok := byName[spec.ScoreColumn]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("model %q score column %q not present in dataset", spec.Name, spec.ScoreColumn))
			continue
		}
		if score.Kind != ColumnNumeric {
			warnings = append(warnings, fmt.Sprintf("model %q score column %q is %s, numeric scores expected", spec.Name, score.Name, score.Kind))
			continue
		}
		if score.Summary != nil && (score.Summary.Min < 0 || score.Summary.Max > 1) {
			warnings = append(warnings, fmt.Sprintf("model %q scores range [%g, %g], outside [0, 1]", spec.Name, score.Summary.Min, score.Summary.Max))
		}
	}

	for _, spec := range cfg.SlicingSpecs {
		for _, feature := range spec.FeatureColumns {
			column, ok := byName[feature]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("slicing feature %q not present in dataset", feature))
				continue
			}
			if column.Kind == ColumnNumeric {
				warnings = append(warnings, fmt.Sprintf("slicing feature %q is numeric, every distinct value becomes a slice", feature))
			}
			if column.Distinct > maxSliceCardinality {
				warnings = append(warnings, fmt.Sprintf("slicing feature %q has %d distinct values, tables beyond %d slices are unreadable", feature, column.Distinct, maxSliceCardinality))
			}
		}
	}

	for _, profile := range profiles {
		if profile.MissingRate > missingRateCeiling {
			warnings = append(warnings, fmt.Sprintf("column %q is %.0f%% missing", profile.Name, profile.MissingRate*100))
		}
	}

	return warnings
}
