package correlation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aristath/corrscope/pkg/formulas"
)

const (
	// MinVarianceIterations is the fixed iteration count of the moderate optimizer
	MinVarianceIterations = 100
	// MinVarianceLearningRate is the gradient step of the moderate optimizer
	MinVarianceLearningRate = 0.01
	// inverseCorrelationEpsilon keeps inverse weights finite for uncorrelated assets
	inverseCorrelationEpsilon = 0.01
)

// ParseRiskTolerance accepts conservative, moderate or aggressive (any case)
func ParseRiskTolerance(s string) (RiskTolerance, error) {
	switch t := RiskTolerance(strings.ToLower(strings.TrimSpace(s))); t {
	case Conservative, Moderate, Aggressive:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRiskTolerance, s)
	}
}

// toleranceForLevel maps a risk level in [0, 1] to a weighting regime
func toleranceForLevel(level float64) RiskTolerance {
	switch {
	case level < 1.0/3.0:
		return Conservative
	case level < 2.0/3.0:
		return Moderate
	default:
		return Aggressive
	}
}

// OptimizePortfolio weights tickers by tolerance:
//   - conservative: inverse average |correlation|, divided by the sum
//   - moderate: gradient-descent minimum variance, see minVarianceWeights
//   - aggressive: equal weights
//
// Tickers are normalized and deduplicated first, so the result may hold fewer
// tickers than were passed; read Tickers and Weights together. PortfolioRisk
// does not dedupe since its weights are positional.
//
// Expected return is Σ wᵢ·fwdEpsCorrᵢ, a proxy rather than a forecast.
func (s *Snapshot) OptimizePortfolio(tickers []string, tolerance RiskTolerance) (OptimizationResult, error) {
	var weights []float64
	tickers = uniqueTickers(tickers)

	switch tolerance {
	case Conservative:
		weights = s.inverseCorrelationWeights(tickers)
	case Moderate:
		weights = s.minVarianceWeights(tickers)
	case Aggressive:
		weights = formulas.EqualWeights(len(tickers))
	default:
		return OptimizationResult{}, fmt.Errorf("%w: %q", ErrUnknownRiskTolerance, tolerance)
	}

	return s.evaluate(tickers, weights, tolerance)
}

func (s *Snapshot) evaluate(tickers []string, weights []float64, tolerance RiskTolerance) (OptimizationResult, error) {
	stats, err := s.PortfolioRisk(tickers, weights)
	if err != nil {
		return OptimizationResult{}, err
	}

	expected := 0.0
	for i, t := range tickers {
		if r, ok := s.Record(t); ok {
			expected += weights[i] * r.FwdEpsCorr
		}
	}

	sharpe := 0.0
	if stats.Risk > 0 {
		sharpe = expected / stats.Risk
	}

	return OptimizationResult{
		Portfolio:      Portfolio{Tickers: tickers, Weights: weights},
		RiskTolerance:  tolerance,
		Stats:          stats,
		ExpectedReturn: expected,
		SharpeRatio:    sharpe,
	}, nil
}

func (s *Snapshot) inverseCorrelationWeights(tickers []string) []float64 {
	n := len(tickers)
	if n < 2 {
		return formulas.EqualWeights(n)
	}
	avg := make([]float64, n)
	for i, a := range tickers {
		total := 0.0
		for j, b := range tickers {
			if i != j {
				total += math.Abs(s.corr(a, b))
			}
		}
		avg[i] = total / float64(n-1)
	}
	return formulas.InverseWeights(avg, inverseCorrelationEpsilon)
}

// minVarianceWeights runs fixed-step gradient descent on wᵀCw starting from equal
// weights, dividing by Σ|w| after each step. This is a crude projection, not a
// constrained solver. Negative weights left at the end are dropped and the rest
// renormalized so the result is long-only and sums to 1.
func (s *Snapshot) minVarianceWeights(tickers []string) []float64 {
	n := len(tickers)
	if n < 2 {
		return formulas.EqualWeights(n)
	}

	c := s.subMatrix(tickers)
	w := formulas.EqualWeights(n)
	grad := make([]float64, n)

	for iter := 0; iter < MinVarianceIterations; iter++ {
		for i := 0; i < n; i++ {
			g := 0.0
			for j := 0; j < n; j++ {
				g += c.At(i, j) * w[j]
			}
			grad[i] = 2 * g
		}
		for i := range w {
			w[i] -= MinVarianceLearningRate * grad[i]
		}
		w = formulas.NormalizeByAbsSum(w)
	}

	for i := range w {
		if w[i] < 0 {
			w[i] = 0
		}
	}
	return formulas.NormalizeBySum(w)
}

// EfficientFrontier samples points risk levels evenly in [0, 1], optimizes each
// with the regime for that level (cuts at 1/3 and 2/3), and returns the points
// sorted by risk. Return and Sharpe use the fwdEpsCorr proxy.
func (s *Snapshot) EfficientFrontier(tickers []string, points int) ([]FrontierPoint, error) {
	if points <= 0 || len(tickers) == 0 {
		return []FrontierPoint{}, nil
	}

	cache := make(map[RiskTolerance]OptimizationResult, 3)
	out := make([]FrontierPoint, 0, points)

	for k := 0; k < points; k++ {
		level := 0.0
		if points > 1 {
			level = float64(k) / float64(points-1)
		}
		tolerance := toleranceForLevel(level)

		res, ok := cache[tolerance]
		if !ok {
			var err error
			res, err = s.OptimizePortfolio(tickers, tolerance)
			if err != nil {
				return nil, err
			}
			cache[tolerance] = res
		}

		out = append(out, FrontierPoint{
			RiskLevel:      level,
			RiskTolerance:  tolerance,
			Risk:           res.Stats.Risk,
			ExpectedReturn: res.ExpectedReturn,
			SharpeRatio:    res.SharpeRatio,
			Weights:        res.WeightMap(),
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Risk < out[b].Risk })
	return out, nil
}
