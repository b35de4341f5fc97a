package formulas

import "math"

// NormalizeBySum scales weights so they sum to 1.
// A zero sum falls back to equal weights.
func NormalizeBySum(weights []float64) []float64 {
	out := make([]float64, len(weights))
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return EqualWeights(len(weights))
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

// NormalizeByAbsSum scales weights by the sum of their absolute values.
// Used as a crude projection step after a gradient update, where weights may turn negative.
func NormalizeByAbsSum(weights []float64) []float64 {
	out := make([]float64, len(weights))
	sum := 0.0
	for _, w := range weights {
		sum += math.Abs(w)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return EqualWeights(len(weights))
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

// InverseWeights computes w_i = (1/(eps+v_i)) / Σ(1/(eps+v_j)).
// Lower values get higher weights; eps keeps zero inputs finite.
func InverseWeights(values []float64, eps float64) []float64 {
	raw := make([]float64, len(values))
	for i, v := range values {
		raw[i] = 1.0 / (eps + math.Abs(v))
	}
	return NormalizeBySum(raw)
}
