// Package analysis turns extracted evaluation examples into per-slice,
// per-model metric dictionaries: confusion-derived rates with Wilson
// intervals, log loss, example counts and bounded ROC AUC.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/domain/slicing"
	"github.com/sarvex/model-analysis/internal/pipeline"
)

// DefaultThreshold classifies scores when a rate metric carries no
// explicit decision threshold
const DefaultThreshold = 0.5

// RunResult is the full output of one evaluation run
//
// INVARIANTS:
// - Every model in PerModel carries the same slices in the same order
// - Slice order is deterministic: Overall first, then lexicographic
// - ExampleCounts keys match the slice names in PerModel
type RunResult struct {
	PerModel      map[string][]metrics.SliceMetrics `json:"perModel"`
	ExampleCounts map[string]float64                `json:"exampleCounts"`
	Metrics       []string                          `json:"metrics"`
	RowCount      int                               `json:"rowCount"`
	Warnings      []string                          `json:"warnings,omitempty"`
}

// MetricNames returns the metric names that were computed, in the order
// they were requested
func (r *RunResult) MetricNames() []string {
	return r.Metrics
}

// SliceNames returns the evaluated slice names in display order
func (r *RunResult) SliceNames() []string {
	for _, sliceMetrics := range r.PerModel {
		names := make([]string, len(sliceMetrics))
		for i, sm := range sliceMetrics {
			names[i] = sm.Slice
		}
		return names
	}
	return nil
}

// Model returns the slice metrics computed for one model
func (r *RunResult) Model(name string) ([]metrics.SliceMetrics, bool) {
	sliceMetrics, ok := r.PerModel[name]
	return sliceMetrics, ok
}

// ====================================================================
// EVALUATOR
// ====================================================================

// Evaluator computes slice metrics for every model in an evaluation
// config. Slices are evaluated concurrently up to a fixed parallelism.
type Evaluator struct {
	cfg         eval.Config
	parallelism int
	confidence  float64
}

// NewEvaluator builds an evaluator. Parallelism below one is raised to
// one; a confidence level outside (0, 1) falls back to 0.95.
func NewEvaluator(cfg eval.Config, parallelism int, confidence float64) *Evaluator {
	if parallelism < 1 {
		parallelism = 1
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return &Evaluator{cfg: cfg, parallelism: parallelism, confidence: confidence}
}

// sliceData accumulates the labels and per-model scores of one slice
type sliceData struct {
	labels []float64
	scores map[string][]float64
}

// Evaluate groups the batch by slice key and computes the configured
// metrics for every model on every slice
func (e *Evaluator) Evaluate(ctx context.Context, batch []pipeline.Extracts) (*RunResult, error) {
	modelNames := e.cfg.ModelNames()
	groups, err := e.groupBySlice(batch, modelNames)
	if err != nil {
		return nil, err
	}

	metricNames, warnings := e.resolveMetricNames()
	sliceNames := sortSliceNames(groups)
	z := zScore(e.confidence)

	type sliceOutput struct {
		perModel map[string]metrics.SliceMetrics
	}
	outputs := make([]sliceOutput, len(sliceNames))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.parallelism)
	for i, name := range sliceNames {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data := groups[name]
			perModel := make(map[string]metrics.SliceMetrics, len(modelNames))
			for _, model := range modelNames {
				perModel[model] = computeSliceMetrics(name, data.labels, data.scores[model], metricNames, z)
			}
			outputs[i] = sliceOutput{perModel: perModel}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := &RunResult{
		PerModel:      make(map[string][]metrics.SliceMetrics, len(modelNames)),
		ExampleCounts: make(map[string]float64, len(sliceNames)),
		Metrics:       metricNames,
		RowCount:      len(batch),
		Warnings:      warnings,
	}
	for _, model := range modelNames {
		perSlice := make([]metrics.SliceMetrics, len(sliceNames))
		for i := range sliceNames {
			perSlice[i] = outputs[i].perModel[model]
		}
		result.PerModel[model] = perSlice
	}
	for _, name := range sliceNames {
		result.ExampleCounts[name] = float64(len(groups[name].labels))
	}
	return result, nil
}

// groupBySlice partitions the batch into per-slice label and score
// accumulators, one score series per model
func (e *Evaluator) groupBySlice(batch []pipeline.Extracts, modelNames []string) (map[string]*sliceData, error) {
	groups := make(map[string]*sliceData)
	for i, ex := range batch {
		label, ok := ex.Label()
		if !ok {
			return nil, fmt.Errorf("example %d carries no label", i)
		}
		scores := make([]float64, len(modelNames))
		for m, model := range modelNames {
			score, ok := ex.Prediction(model)
			if !ok {
				return nil, fmt.Errorf("example %d carries no prediction for model %q", i, model)
			}
			scores[m] = score
		}
		keys := ex.SliceKeys()
		if len(keys) == 0 {
			keys = []slicing.SliceKey{slicing.Overall()}
		}
		for _, key := range keys {
			name := key.String()
			data, ok := groups[name]
			if !ok {
				data = &sliceData{scores: make(map[string][]float64, len(modelNames))}
				groups[name] = data
			}
			data.labels = append(data.labels, label)
			for m, model := range modelNames {
				data.scores[model] = append(data.scores[model], scores[m])
			}
		}
	}
	return groups, nil
}

// resolveMetricNames filters the configured metric names down to those
// this evaluator can compute, warning once per unknown name
func (e *Evaluator) resolveMetricNames() ([]string, []string) {
	var known, warnings []string
	for _, name := range e.cfg.MetricNames() {
		base, _, hasThreshold := metrics.SplitThreshold(name)
		if !hasThreshold {
			base = name
		}
		switch metrics.DisplayName(base) {
		case metrics.MetricExampleCount, metrics.MetricLoss, metrics.MetricAUC,
			metrics.MetricAccuracy, metrics.MetricPrecision, metrics.MetricRecall,
			metrics.MetricFalsePositiveRate, metrics.MetricFalseNegativeRate:
			known = append(known, name)
		default:
			warnings = append(warnings, fmt.Sprintf("metric %q is not supported and was skipped", name))
		}
	}
	return known, warnings
}

// computeSliceMetrics evaluates every requested metric for one model on
// one slice
func computeSliceMetrics(slice string, labels, scores []float64, metricNames []string, z float64) metrics.SliceMetrics {
	sm := metrics.NewSliceMetrics(slice)
	confusions := make(map[float64]confusion)
	confusionFor := func(threshold float64) confusion {
		c, ok := confusions[threshold]
		if !ok {
			c = confusionAt(labels, scores, threshold)
			confusions[threshold] = c
		}
		return c
	}

	for _, name := range metricNames {
		base, threshold, hasThreshold := metrics.SplitThreshold(name)
		if !hasThreshold {
			base, threshold = name, DefaultThreshold
		}

		switch metrics.DisplayName(base) {
		case metrics.MetricExampleCount:
			sm.Set(name, metrics.NewScalar(float64(len(labels))))
		case metrics.MetricLoss:
			sm.Set(name, metrics.NewScalar(logLoss(labels, scores)))
		case metrics.MetricAUC:
			value, lower, upper := aucInterval(labels, scores, z)
			sm.Set(name, metrics.MustBoundedWithMethod(value, lower, upper, MethodHanleyMcNeil))
		default:
			c := confusionFor(threshold)
			k, n := rateCounts(metrics.DisplayName(base), c)
			value, lower, upper := wilsonInterval(k, n, z)
			sm.Set(name, metrics.MustBoundedWithMethod(value, lower, upper, MethodWilson))
		}
	}
	return sm
}

// rateCounts maps a rate metric to its numerator and denominator in the
// confusion counts
func rateCounts(metric string, c confusion) (k, n int) {
	switch metric {
	case metrics.MetricAccuracy:
		return c.tp + c.tn, c.tp + c.fp + c.tn + c.fn
	case metrics.MetricPrecision:
		return c.tp, c.tp + c.fp
	case metrics.MetricRecall:
		return c.tp, c.tp + c.fn
	case metrics.MetricFalsePositiveRate:
		return c.fp, c.fp + c.tn
	case metrics.MetricFalseNegativeRate:
		return c.fn, c.fn + c.tp
	}
	return 0, 0
}

// sortSliceNames orders slice names for display: Overall first, the
// rest lexicographic
func sortSliceNames(groups map[string]*sliceData) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		if names[a] == slicing.OverallName {
			return true
		}
		if names[b] == slicing.OverallName {
			return false
		}
		return names[a] < names[b]
	})
	return names
}
