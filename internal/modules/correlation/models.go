// Package correlation builds a pairwise correlation-proxy matrix over a company
// universe and derives portfolio statistics from it.
package correlation

import (
	"time"
)

// UnknownSector is assigned to companies missing from the directory
const UnknownSector = "Unknown"

// Record holds one company's fundamental correlation fields.
// Records are created at load time and never mutated after a snapshot is built.
type Record struct {
	Ticker                string  `json:"ticker" msgpack:"ticker"`
	CorpName              string  `json:"corpName" msgpack:"corpName"`
	CompanyName           string  `json:"companyName,omitempty" msgpack:"companyName"`
	Date                  string  `json:"date,omitempty" msgpack:"date"`
	Sector                string  `json:"sector" msgpack:"sector"`
	MarketCap             float64 `json:"marketCap" msgpack:"marketCap"`
	Price                 float64 `json:"price" msgpack:"price"`
	FwdSalesCorr          float64 `json:"fwdSalesCorr" msgpack:"fwdSalesCorr"`
	FwdEpsCorr            float64 `json:"fwdEpsCorr" msgpack:"fwdEpsCorr"`
	HighYieldCorr         float64 `json:"highYieldCorr" msgpack:"highYieldCorr"`
	HighYieldCorrInverted float64 `json:"highYieldCorrInverted" msgpack:"highYieldCorrInverted"`
	USHighYieldCorr       float64 `json:"usHighYieldCorr" msgpack:"usHighYieldCorr"`
}

// DisplayName prefers the directory name, then the feed name, then the ticker.
func (r Record) DisplayName() string {
	switch {
	case r.CompanyName != "":
		return r.CompanyName
	case r.CorpName != "":
		return r.CorpName
	default:
		return r.Ticker
	}
}

// features is the vector used for clustering and similarity search.
func (r Record) features() []float64 {
	return []float64{r.FwdSalesCorr, r.FwdEpsCorr, r.HighYieldCorr}
}

// Pair is an unordered ticker pair with its correlation proxy
type Pair struct {
	Ticker1     string  `json:"ticker1" msgpack:"ticker1"`
	Ticker2     string  `json:"ticker2" msgpack:"ticker2"`
	Correlation float64 `json:"correlation" msgpack:"correlation"`
}

// LowCorrelationPair is a pair enriched for display
type LowCorrelationPair struct {
	Pair
	Name1   string `json:"name1"`
	Sector1 string `json:"sector1"`
	Name2   string `json:"name2"`
	Sector2 string `json:"sector2"`
}

// Portfolio is a ticker list with weights in the same order
type Portfolio struct {
	Tickers []string  `json:"tickers"`
	Weights []float64 `json:"weights"`
}

// WeightMap returns the weights keyed by ticker
func (p Portfolio) WeightMap() map[string]float64 {
	m := make(map[string]float64, len(p.Tickers))
	for i, t := range p.Tickers {
		m[t] = p.Weights[i]
	}
	return m
}

// RiskResult is the simplified unit-volatility risk model output
type RiskResult struct {
	Variance             float64 `json:"variance"`
	Risk                 float64 `json:"risk"`
	DiversificationRatio float64 `json:"diversificationRatio"`
}

// RiskTolerance selects the weighting scheme of OptimizePortfolio
type RiskTolerance string

const (
	Conservative RiskTolerance = "conservative"
	Moderate     RiskTolerance = "moderate"
	Aggressive   RiskTolerance = "aggressive"
)

// OptimizationResult is an optimized portfolio with its statistics
type OptimizationResult struct {
	Portfolio
	RiskTolerance  RiskTolerance `json:"riskTolerance"`
	Stats          RiskResult    `json:"stats"`
	ExpectedReturn float64       `json:"expectedReturn"`
	SharpeRatio    float64       `json:"sharpeRatio"`
}

// FrontierPoint is one sampled point of the efficient frontier
type FrontierPoint struct {
	RiskLevel      float64            `json:"riskLevel"`
	RiskTolerance  RiskTolerance      `json:"riskTolerance"`
	Risk           float64            `json:"risk"`
	ExpectedReturn float64            `json:"expectedReturn"`
	SharpeRatio    float64            `json:"sharpeRatio"`
	Weights        map[string]float64 `json:"weights"`
}

// ClusterResult is the outcome of k-means over company feature vectors
type ClusterResult struct {
	Assignments map[string]int `json:"assignments"`
	Clusters    [][]string     `json:"clusters"`
	Centroids   [][]float64    `json:"centroids"`
	Iterations  int            `json:"iterations"`
}

// SimilarStock is a company ranked by feature similarity to a target
type SimilarStock struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Sector      string  `json:"sector"`
	Similarity  float64 `json:"similarity"`
	Correlation float64 `json:"correlation"`
}

// Peer is a correlated company
type Peer struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Correlation float64 `json:"correlation"`
}

// CompanyCorrelation is a company's record with its strongest peers
type CompanyCorrelation struct {
	Record        Record `json:"record"`
	PositivePeers []Peer `json:"positivePeers"`
	NegativePeers []Peer `json:"negativePeers"`
}

// PairwiseCorrelation is a looked-up pair with a qualitative label
type PairwiseCorrelation struct {
	Ticker1        string  `json:"ticker1"`
	Ticker2        string  `json:"ticker2"`
	Correlation    float64 `json:"correlation"`
	Interpretation string  `json:"interpretation"`
}

// SubMatrix is a dense extract of the correlation matrix
type SubMatrix struct {
	Tickers []string    `json:"tickers"`
	Values  [][]float64 `json:"values"`
}

// SectorCorrelation is the average correlation between two sectors.
// Sector1 == Sector2 describes the within-sector average.
type SectorCorrelation struct {
	Sector1            string  `json:"sector1"`
	Sector2            string  `json:"sector2"`
	AverageCorrelation float64 `json:"averageCorrelation"`
	Pairs              int     `json:"pairs"`
}

// Heatmap is a presentation-ready matrix
type Heatmap struct {
	Tickers []string    `json:"tickers" msgpack:"tickers"`
	Labels  []string    `json:"labels" msgpack:"labels"`
	Sectors []string    `json:"sectors" msgpack:"sectors"`
	Values  [][]float64 `json:"values" msgpack:"values"`
}

// NetworkNode is a company in the correlation network
type NetworkNode struct {
	ID        string  `json:"id" msgpack:"id"`
	Label     string  `json:"label" msgpack:"label"`
	Sector    string  `json:"sector" msgpack:"sector"`
	MarketCap float64 `json:"marketCap" msgpack:"marketCap"`
}

// NetworkEdge links two companies whose |correlation| reaches the threshold
type NetworkEdge struct {
	Source      string  `json:"source" msgpack:"source"`
	Target      string  `json:"target" msgpack:"target"`
	Correlation float64 `json:"correlation" msgpack:"correlation"`
}

// Network is a graph export of strong correlations
type Network struct {
	Nodes []NetworkNode `json:"nodes" msgpack:"nodes"`
	Edges []NetworkEdge `json:"edges" msgpack:"edges"`
}

// Statistics summarizes a snapshot
type Statistics struct {
	SnapshotID   string         `json:"snapshotId"`
	BuiltAt      time.Time      `json:"builtAt"`
	Companies    int            `json:"companies"`
	Pairs        int            `json:"pairs"`
	BucketCounts map[string]int `json:"bucketCounts"`
	Mean         float64        `json:"meanCorrelation"`
	Min          *Pair          `json:"minPair,omitempty"`
	Max          *Pair          `json:"maxPair,omitempty"`
}
