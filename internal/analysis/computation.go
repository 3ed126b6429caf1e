package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Interval methodology tags carried on bounded values
const (
	MethodWilson       = "WILSON"
	MethodHanleyMcNeil = "HANLEY_MCNEIL"
)

// probability clamp for log loss
const epsilon = 1e-7

// zScore returns the two-sided normal quantile for a confidence level
func zScore(confidence float64) float64 {
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	return normal.Quantile(1 - (1-confidence)/2)
}

// logLoss computes mean binary cross entropy with clamped probabilities
func logLoss(labels, scores []float64) float64 {
	if len(labels) == 0 {
		return math.NaN()
	}
	losses := make([]float64, len(labels))
	for i := range labels {
		p := math.Min(math.Max(scores[i], epsilon), 1-epsilon)
		y := labels[i]
		losses[i] = -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}
	mean, err := stats.Mean(losses)
	if err != nil {
		return math.NaN()
	}
	return mean
}

// confusion holds binary classification counts at one threshold
type confusion struct {
	tp, fp, tn, fn int
}

// confusionAt thresholds scores against binary labels (label >= 0.5 is
// positive)
func confusionAt(labels, scores []float64, threshold float64) confusion {
	var c confusion
	for i := range labels {
		actual := labels[i] >= 0.5
		predicted := scores[i] >= threshold
		switch {
		case actual && predicted:
			c.tp++
		case !actual && predicted:
			c.fp++
		case !actual && !predicted:
			c.tn++
		default:
			c.fn++
		}
	}
	return c
}

// wilsonInterval computes the Wilson score interval for k successes out of
// n trials. A zero denominator yields NaN everywhere.
func wilsonInterval(k, n int, z float64) (value, lower, upper float64) {
	if n == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	p := float64(k) / float64(n)
	nf := float64(n)
	z2 := z * z

	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	// the interval brackets the shifted center, so widen it to always
	// contain the point estimate
	lower = math.Min(clamp01(center-half), p)
	upper = math.Max(clamp01(center+half), p)
	return p, lower, upper
}

// rocAUC computes the area under the ROC curve via the rank-sum identity
// with midranks for tied scores. Single-class slices have no curve and
// yield NaN.
func rocAUC(labels, scores []float64) float64 {
	nPos, nNeg := classCounts(labels)
	if nPos == 0 || nNeg == 0 {
		return math.NaN()
	}

	ranks := midRanks(scores)
	var posRankSum float64
	for i := range labels {
		if labels[i] >= 0.5 {
			posRankSum += ranks[i]
		}
	}

	u := posRankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg))
}

// aucInterval wraps rocAUC with the Hanley-McNeil normal interval,
// clamped to [0, 1]
func aucInterval(labels, scores []float64, z float64) (value, lower, upper float64) {
	auc := rocAUC(labels, scores)
	if math.IsNaN(auc) {
		return math.NaN(), math.NaN(), math.NaN()
	}

	nPos, nNeg := classCounts(labels)
	q1 := auc / (2 - auc)
	q2 := 2 * auc * auc / (1 + auc)
	variance := (auc*(1-auc) +
		float64(nPos-1)*(q1-auc*auc) +
		float64(nNeg-1)*(q2-auc*auc)) /
		(float64(nPos) * float64(nNeg))
	if variance < 0 {
		variance = 0
	}
	se := math.Sqrt(variance)

	return auc, clamp01(auc - z*se), clamp01(auc + z*se)
}

func classCounts(labels []float64) (nPos, nNeg int) {
	for _, label := range labels {
		if label >= 0.5 {
			nPos++
		} else {
			nNeg++
		}
	}
	return nPos, nNeg
}

// midRanks assigns 1-based ranks with ties receiving their average rank
func midRanks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // average of 1-based ranks i+1..j+1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
