package pipeline

import (
	"context"
	"fmt"

	"github.com/sarvex/model-analysis/domain/slicing"
)

// StageSliceKeys names the slice assignment stage
const StageSliceKeys = "ExtractSliceKeys"

// SliceKeyExtractor assigns every example its slice keys from the slicing
// specs. Overall membership is implicit and always present.
func SliceKeyExtractor(specs []slicing.Spec) Extractor {
	return Extractor{
		StageName: StageSliceKeys,
		Transform: func(ctx context.Context, batch []Extracts) ([]Extracts, error) {
			return extractSliceKeys(specs, batch)
		},
	}
}

func extractSliceKeys(specs []slicing.Spec, batch []Extracts) ([]Extracts, error) {
	out := make([]Extracts, len(batch))
	for i, ex := range batch {
		features := ex.Features()
		if features == nil {
			return nil, fmt.Errorf("row %d: stage requires typed features", i)
		}

		stringified := make(map[string]string, len(features))
		for col, value := range features {
			stringified[col] = FeatureString(value)
		}

		next := ex.Clone()
		next[SliceKeysKey] = slicing.KeysFor(specs, stringified)
		out[i] = next
	}
	return out, nil
}
