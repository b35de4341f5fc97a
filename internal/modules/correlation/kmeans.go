package correlation

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/aristath/corrscope/pkg/formulas"
)

// MaxKMeansIterations bounds the assignment/update loop
const MaxKMeansIterations = 100

// featureDims is the length of Record.features
const featureDims = 3

// KMeansOptions configures ClusterByCorrelation
type KMeansOptions struct {
	K int
	// Source seeds centroid selection. Nil uses the clock.
	Source rand.Source
	// InitialCentroids overrides random initialization; K is then len(InitialCentroids).
	InitialCentroids [][]float64
}

// ClusterByCorrelation runs k-means over (fwdSales, fwdEps, highYield) vectors.
// Initial centroids are K distinct companies chosen at random. A cluster that
// loses all its members keeps its previous centroid. K is capped at the number of
// companies; K <= 0 or an empty snapshot yields an empty result.
func (s *Snapshot) ClusterByCorrelation(opts KMeansOptions) (ClusterResult, error) {
	n := s.Len()
	points := make([][]float64, n)
	for i, r := range s.Records() {
		points[i] = r.features()
	}

	centroids, err := initialCentroids(points, opts)
	if err != nil {
		return ClusterResult{}, err
	}
	k := len(centroids)
	if k == 0 {
		return ClusterResult{Assignments: map[string]int{}, Clusters: [][]string{}, Centroids: [][]float64{}}, nil
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	iterations := 0
	for iterations < MaxKMeansIterations {
		iterations++

		changed := false
		for i, p := range points {
			nearest, best := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := formulas.EuclideanDistance(p, centroid); d < best {
					nearest, best = c, d
				}
			}
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, featureDims)
		}
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for d := range p {
				sums[c][d] += p[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	tickers := s.Tickers()
	res := ClusterResult{
		Assignments: make(map[string]int, n),
		Clusters:    make([][]string, k),
		Centroids:   centroids,
		Iterations:  iterations,
	}
	for c := range res.Clusters {
		res.Clusters[c] = []string{}
	}
	for i, c := range assignments {
		res.Assignments[tickers[i]] = c
		res.Clusters[c] = append(res.Clusters[c], tickers[i])
	}
	return res, nil
}

func initialCentroids(points [][]float64, opts KMeansOptions) ([][]float64, error) {
	if len(opts.InitialCentroids) > 0 {
		if len(points) == 0 {
			return nil, nil
		}
		out := make([][]float64, len(opts.InitialCentroids))
		for i, c := range opts.InitialCentroids {
			if len(c) != featureDims {
				return nil, fmt.Errorf("%w: centroid %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(c), featureDims)
			}
			out[i] = append([]float64(nil), c...)
		}
		return out, nil
	}

	k := opts.K
	if k > len(points) {
		k = len(points)
	}
	if k <= 0 {
		return nil, nil
	}

	src := opts.Source
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	perm := rand.New(src).Perm(len(points))

	out := make([][]float64, k)
	for c := 0; c < k; c++ {
		out[c] = append([]float64(nil), points[perm[c]]...)
	}
	return out, nil
}
