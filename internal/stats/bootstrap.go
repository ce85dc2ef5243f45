// Package stats implements the seed-level aggregation layer: bootstrap
// confidence intervals over per-seed metric values from repeated randomized
// runs, experimental-minus-baseline deltas, and the quantitative win rule
// that turns them into a go/no-go decision.
//
// The CI is bootstrapped over seeds, not over individual questions: plain
// iterative resampling-with-replacement, with a configurable resample count.
package stats

import (
	"math/rand"

	"github.com/openclaw/membench/internal/metrics"
)

// BootstrapOptions tunes the resampling. The resample count trades CI
// smoothness for compute time.
type BootstrapOptions struct {
	Resamples int
	Alpha     float64
	Seed      int64
}

func (o BootstrapOptions) withDefaults() BootstrapOptions {
	if o.Resamples <= 0 {
		o.Resamples = 20000
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		o.Alpha = 0.05
	}
	return o
}

// CI is a bootstrap mean with its confidence interval over n observed values.
type CI struct {
	Mean float64 `json:"mean"`
	Lo   float64 `json:"ci_lo"`
	Hi   float64 `json:"ci_hi"`
	N    int     `json:"n"`
}

// BootstrapMeanCI computes the mean of values and a (1-alpha) confidence
// interval by resampling-with-replacement. An empty input yields a zero CI
// with N=0.
func BootstrapMeanCI(values []float64, opts BootstrapOptions) CI {
	if len(values) == 0 {
		return CI{}
	}
	opts = opts.withDefaults()

	rng := rand.New(rand.NewSource(opts.Seed))
	k := len(values)
	samples := make([]float64, opts.Resamples)
	for i := range samples {
		sum := 0.0
		for j := 0; j < k; j++ {
			sum += values[rng.Intn(k)]
		}
		samples[i] = sum / float64(k)
	}

	return CI{
		Mean: metrics.Mean(values),
		Lo:   metrics.Percentile(samples, 100.0*(opts.Alpha/2.0)),
		Hi:   metrics.Percentile(samples, 100.0*(1.0-opts.Alpha/2.0)),
		N:    k,
	}
}
