package stats

import (
	"math"
	"testing"
)

func TestBootstrapMeanCIConstantValues(t *testing.T) {
	ci := BootstrapMeanCI([]float64{5, 5, 5, 5}, BootstrapOptions{Resamples: 500, Seed: 1})
	if ci.Mean != 5 || ci.Lo != 5 || ci.Hi != 5 {
		t.Errorf("constant input should collapse the CI, got %+v", ci)
	}
	if ci.N != 4 {
		t.Errorf("expected N=4, got %d", ci.N)
	}
}

func TestBootstrapMeanCIEmpty(t *testing.T) {
	ci := BootstrapMeanCI(nil, BootstrapOptions{})
	if ci.Mean != 0 || ci.Lo != 0 || ci.Hi != 0 || ci.N != 0 {
		t.Errorf("empty input should yield a zero CI, got %+v", ci)
	}
}

func TestBootstrapMeanCIBoundsBracketMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ci := BootstrapMeanCI(values, BootstrapOptions{Resamples: 2000, Seed: 42})
	if math.Abs(ci.Mean-5.5) > 1e-9 {
		t.Errorf("expected mean 5.5, got %v", ci.Mean)
	}
	if ci.Lo > ci.Mean || ci.Hi < ci.Mean {
		t.Errorf("CI [%v, %v] should bracket the mean %v", ci.Lo, ci.Hi, ci.Mean)
	}
	if ci.Lo >= ci.Hi {
		t.Errorf("expected a non-degenerate interval, got [%v, %v]", ci.Lo, ci.Hi)
	}
}

func TestBootstrapMeanCIDeterministic(t *testing.T) {
	values := []float64{0.2, 0.4, 0.9, 0.1}
	opts := BootstrapOptions{Resamples: 1000, Seed: 7}
	a := BootstrapMeanCI(values, opts)
	b := BootstrapMeanCI(values, opts)
	if a != b {
		t.Errorf("same seed should give identical CIs: %+v vs %+v", a, b)
	}
}
