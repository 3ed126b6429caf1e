package pipeline

import (
	"context"

	"github.com/sarvex/model-analysis/domain/eval"
	"github.com/sarvex/model-analysis/internal/errors"
)

// TransformFn is one stage's batch transformation
type TransformFn func(ctx context.Context, batch []Extracts) ([]Extracts, error)

// Extractor is a named pipeline stage
type Extractor struct {
	StageName string
	Transform TransformFn
}

// Pipeline applies extractors in order
type Pipeline struct {
	extractors []Extractor
}

// New creates a pipeline from the given stages
func New(extractors ...Extractor) *Pipeline {
	return &Pipeline{extractors: extractors}
}

// Default assembles the standard stage list for a config: features, scores,
// slice keys.
func Default(cfg eval.Config) *Pipeline {
	return New(
		FeaturesExtractor(),
		ScoresExtractor(cfg),
		SliceKeyExtractor(cfg.SlicingSpecs),
	)
}

// StageNames lists the configured stages in execution order
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.extractors))
	for i, e := range p.extractors {
		names[i] = e.StageName
	}
	return names
}

// Run applies every stage in order. A stage error aborts the run with the
// stage name in the error chain.
func (p *Pipeline) Run(ctx context.Context, batch []Extracts) ([]Extracts, error) {
	current := batch
	for _, extractor := range p.extractors {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "pipeline cancelled before stage %s", extractor.StageName)
		}
		next, err := extractor.Transform(ctx, current)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %s failed", extractor.StageName)
		}
		current = next
	}
	return current, nil
}
