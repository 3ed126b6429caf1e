package pipeline

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
)

// StageFeatures names the feature typing stage
const StageFeatures = "ExtractFeatures"

// Defaults filled in for missing values, matching column type
const (
	defaultNumeric = -1.0
	defaultText    = ""
)

type columnType int

const (
	columnNumeric columnType = iota
	columnBool
	columnText
	columnDropped
)

// FeaturesExtractor types the raw string rows into FeatureRows. Column
// types are inferred over the whole batch: all-numeric wins, then
// all-boolean, then text. Columns empty in every row carry no signal and
// are dropped with a warning. Missing values fill with type defaults.
func FeaturesExtractor() Extractor {
	return Extractor{
		StageName: StageFeatures,
		Transform: extractFeatures,
	}
}

func extractFeatures(_ context.Context, batch []Extracts) ([]Extracts, error) {
	types := inferColumnTypes(batch)

	dropped := make([]string, 0)
	for col, t := range types {
		if t == columnDropped {
			dropped = append(dropped, col)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		log.Printf("[%s] dropping empty columns: %s", StageFeatures, strings.Join(dropped, ", "))
	}

	out := make([]Extracts, len(batch))
	for i, ex := range batch {
		features := make(FeatureRow, len(types))
		raw := ex.Input()
		for col, t := range types {
			if t == columnDropped {
				continue
			}
			features[col] = typedValue(raw[col], t)
		}
		next := ex.Clone()
		next[FeaturesKey] = features
		out[i] = next
	}
	return out, nil
}

// inferColumnTypes classifies every column seen in the batch
func inferColumnTypes(batch []Extracts) map[string]columnType {
	types := make(map[string]columnType)
	nonEmpty := make(map[string]int)

	for _, ex := range batch {
		for col, value := range ex.Input() {
			if _, seen := types[col]; !seen {
				types[col] = columnNumeric
			}
			if value == "" {
				continue
			}
			nonEmpty[col]++
			switch types[col] {
			case columnNumeric:
				if _, err := strconv.ParseFloat(value, 64); err == nil {
					continue
				}
				if isBoolLiteral(value) {
					types[col] = columnBool
				} else {
					types[col] = columnText
				}
			case columnBool:
				if !isBoolLiteral(value) {
					types[col] = columnText
				}
			}
		}
	}

	for col := range types {
		if nonEmpty[col] == 0 {
			types[col] = columnDropped
		}
	}
	return types
}

func isBoolLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

func typedValue(raw string, t columnType) any {
	switch t {
	case columnNumeric:
		if raw == "" {
			return defaultNumeric
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return defaultNumeric
		}
		return v
	case columnBool:
		if raw == "" {
			return false
		}
		return strings.EqualFold(raw, "true")
	default:
		if raw == "" {
			return defaultText
		}
		return raw
	}
}

// FeatureString renders a typed feature value for slice keys
func FeatureString(v any) string {
	switch value := v.(type) {
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case string:
		return value
	}
	return ""
}
