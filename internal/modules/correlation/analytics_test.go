package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLowCorrelationPairs_WithinRange(t *testing.T) {
	snap := build(randomRecords(50, 21))

	ranges := [][2]float64{{-0.3, 0.3}, {-1, -0.5}, {0.2, 0.4}, {0.5, 1}, {-0.1, 0.1}, {0.05, 0.05}}
	for _, r := range ranges {
		pairs := snap.FindLowCorrelationPairs(r[0], r[1])
		for i, p := range pairs {
			assert.GreaterOrEqual(t, p.Correlation, r[0])
			assert.LessOrEqual(t, p.Correlation, r[1])
			if i > 0 {
				assert.LessOrEqual(t, math.Abs(pairs[i-1].Correlation), math.Abs(p.Correlation))
			}
		}
	}

	// Completeness for one range
	expected := 0
	for _, a := range snap.Tickers() {
		for _, b := range snap.Tickers() {
			if a < b {
				v, _ := snap.Correlation(a, b)
				if v >= -0.3 && v <= 0.3 {
					expected++
				}
			}
		}
	}
	assert.Len(t, snap.FindLowCorrelationPairs(-0.3, 0.3), expected)
}

func TestFindLowCorrelationPairs_Enriched(t *testing.T) {
	records := scenarioRecords()
	records[0].CompanyName = "Alpha Inc."
	records[0].Sector = "Technology"
	snap := build(records)

	pairs := snap.FindLowCorrelationPairs(-0.1, 0.1)
	require.NotEmpty(t, pairs)
	assert.Equal(t, "A", pairs[0].Ticker1)
	assert.Equal(t, "C", pairs[0].Ticker2)
	assert.Equal(t, "Alpha Inc.", pairs[0].Name1)
	assert.Equal(t, "Technology", pairs[0].Sector1)
	assert.Equal(t, UnknownSector, pairs[0].Sector2)

	assert.Empty(t, snap.FindLowCorrelationPairs(0.5, -0.5), "inverted range")
}

func TestBuildDiversifiedPortfolio_Scenario(t *testing.T) {
	snap := build(scenarioRecords())

	p := snap.BuildDiversifiedPortfolio([]string{"A", "B", "C", "D", "E"}, 2)
	assert.Equal(t, []string{"A", "C"}, p.Tickers)
	assert.Equal(t, []float64{0.5, 0.5}, p.Weights)
}

func TestBuildDiversifiedPortfolio_EdgeCases(t *testing.T) {
	snap := build(scenarioRecords())

	all := snap.BuildDiversifiedPortfolio([]string{"A", "B"}, 5)
	assert.Equal(t, []string{"A", "B"}, all.Tickers)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, all.Weights, 1e-12)

	assert.Empty(t, snap.BuildDiversifiedPortfolio(nil, 3).Tickers)
	assert.Empty(t, snap.BuildDiversifiedPortfolio([]string{"A", "B"}, 0).Tickers)

	three := snap.BuildDiversifiedPortfolio([]string{"A", "B", "C", "D", "E"}, 3)
	require.Len(t, three.Tickers, 3)
	assert.InDelta(t, 1.0, sum(three.Weights), 1e-6)
}

func TestPortfolioRisk_Scenario(t *testing.T) {
	snap := build(scenarioRecords())

	risk, err := snap.PortfolioRisk([]string{"A", "B"}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, risk.Variance, 1e-12)
	assert.InDelta(t, 1.0, risk.Risk, 1e-12)
	assert.InDelta(t, 0.5, risk.DiversificationRatio, 1e-12)
}

func TestPortfolioRisk_MismatchAndDegradation(t *testing.T) {
	snap := build(scenarioRecords())

	_, err := snap.PortfolioRisk([]string{"A", "B"}, []float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	empty, err := snap.PortfolioRisk(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RiskResult{}, empty)

	// Unknown tickers: 1 on the diagonal, 0 elsewhere
	risk, err := snap.PortfolioRisk([]string{"X", "Y"}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, risk.Variance, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), risk.Risk, 1e-12)
	assert.InDelta(t, 0.75, risk.DiversificationRatio, 1e-12)
}

func TestFindSimilarStocks(t *testing.T) {
	snap := build([]Record{
		{Ticker: "T", FwdSalesCorr: 0.1, FwdEpsCorr: 0.5, HighYieldCorr: 0.9},
		{Ticker: "SAME", FwdSalesCorr: 0.2, FwdEpsCorr: 0.6, HighYieldCorr: 1.0},
		{Ticker: "OPP", FwdSalesCorr: 0.9, FwdEpsCorr: 0.5, HighYieldCorr: 0.1},
		{Ticker: "FLAT", FwdSalesCorr: 0.3, FwdEpsCorr: 0.3, HighYieldCorr: 0.3},
	})

	similar := snap.FindSimilarStocks("t", 10)
	require.Len(t, similar, 3)
	assert.Equal(t, "SAME", similar[0].Ticker)
	assert.InDelta(t, 1.0, similar[0].Similarity, 1e-9)
	assert.Equal(t, "FLAT", similar[1].Ticker)
	assert.Equal(t, 0.0, similar[1].Similarity, "zero variance scores 0")
	assert.Equal(t, "OPP", similar[2].Ticker)
	assert.InDelta(t, -1.0, similar[2].Similarity, 1e-9)

	corr, _ := snap.Correlation("T", "SAME")
	assert.Equal(t, corr, similar[0].Correlation)

	assert.Len(t, snap.FindSimilarStocks("T", 1), 1)
	assert.Empty(t, snap.FindSimilarStocks("NOPE", 5))
}

func TestSectorCorrelation(t *testing.T) {
	records := []Record{
		{Ticker: "T1", Sector: "Tech", FwdEpsCorr: 0.5, FwdSalesCorr: 0.5},
		{Ticker: "T2", Sector: "Tech", FwdEpsCorr: 0.5, FwdSalesCorr: 0.5},
		{Ticker: "E1", Sector: "Energy", FwdEpsCorr: -0.5, FwdSalesCorr: -0.5},
	}
	sectors := build(records).SectorCorrelation()

	require.Len(t, sectors, 2)
	assert.Equal(t, SectorCorrelation{Sector1: "Energy", Sector2: "Tech", AverageCorrelation: 0, Pairs: 2}, sectors[0])
	assert.Equal(t, SectorCorrelation{Sector1: "Tech", Sector2: "Tech", AverageCorrelation: 1, Pairs: 1}, sectors[1])

	// A lone company in a sector has no within-sector pair
	for _, s := range sectors {
		assert.False(t, s.Sector1 == "Energy" && s.Sector2 == "Energy")
	}
}

func TestCompanyCorrelation(t *testing.T) {
	snap := build(append(scenarioRecords(), rec("F", -0.9, -0.9)))

	cc := snap.CompanyCorrelation("a", DefaultPeerCount)
	require.NotNil(t, cc)
	assert.Equal(t, "A", cc.Record.Ticker)
	require.NotEmpty(t, cc.PositivePeers)
	assert.Equal(t, "B", cc.PositivePeers[0].Ticker)
	for i := 1; i < len(cc.PositivePeers); i++ {
		assert.GreaterOrEqual(t, cc.PositivePeers[i-1].Correlation, cc.PositivePeers[i].Correlation)
	}
	require.Len(t, cc.NegativePeers, 1)
	assert.Equal(t, "F", cc.NegativePeers[0].Ticker)
	assert.InDelta(t, -0.4, cc.NegativePeers[0].Correlation, 1e-12)

	assert.Nil(t, snap.CompanyCorrelation("NOPE", DefaultPeerCount))
}

func TestCorrelationMatrixAndHeatmap(t *testing.T) {
	records := scenarioRecords()
	records[2].CompanyName = "Charlie"
	snap := build(records)

	sub := snap.CorrelationMatrix([]string{"C", "nope", "A", "c"})
	assert.Equal(t, []string{"C", "A"}, sub.Tickers)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, sub.Values)

	h := snap.Heatmap([]string{"C", "A"})
	assert.Equal(t, []string{"Charlie", "A Corp"}, h.Labels)
	assert.Equal(t, sub.Values, h.Values)

	assert.Len(t, snap.Heatmap(nil).Tickers, 5)
}

func TestNetwork(t *testing.T) {
	snap := build(append(scenarioRecords(), rec("F", -0.9, -0.9)))

	nw := snap.Network(0.9)
	assert.Len(t, nw.Nodes, 6)
	for _, e := range nw.Edges {
		assert.GreaterOrEqual(t, math.Abs(e.Correlation), 0.9)
	}
	assert.Contains(t, nw.Edges, NetworkEdge{Source: "A", Target: "B", Correlation: 1})

	assert.Empty(t, build(nil).Network(0.5).Edges)
}

func TestStatistics(t *testing.T) {
	snap := build([]Record{rec("A", 0.5, 0.5), rec("B", 0.5, 0.5), rec("C", -0.5, -0.5)})
	st := snap.Statistics()

	assert.Equal(t, snap.ID, st.SnapshotID)
	assert.Equal(t, 3, st.Companies)
	assert.Equal(t, 3, st.Pairs)
	assert.InDelta(t, 1.0/3.0, st.Mean, 1e-12)
	require.NotNil(t, st.Min)
	require.NotNil(t, st.Max)
	assert.Equal(t, Pair{Ticker1: "A", Ticker2: "C", Correlation: 0}, *st.Min)
	assert.Equal(t, Pair{Ticker1: "A", Ticker2: "B", Correlation: 1}, *st.Max)
	assert.Equal(t, 1, st.BucketCounts["high"])
	assert.Equal(t, 2, st.BucketCounts["neutral"])
}

func TestInterpretCorrelation(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0.95, "Very Strong Positive"},
		{0.9, "Very Strong Positive"},
		{0.75, "Strong Positive"},
		{-0.6, "Moderate Negative"},
		{0.3, "Weak Positive"},
		{-0.29, "Very Weak Negative"},
		{0, "Very Weak Positive"},
		{-1, "Very Strong Negative"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InterpretCorrelation(tt.value), "value %v", tt.value)
	}
}

func sum(ws []float64) float64 {
	total := 0.0
	for _, w := range ws {
		total += w
	}
	return total
}
