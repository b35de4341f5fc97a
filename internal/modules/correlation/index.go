package correlation

import "math"

// Bucket is one of the five correlation-strength ranges
type Bucket int

const (
	BucketVeryLow Bucket = iota // < -0.5
	BucketLow                   // [-0.5, -0.1)
	BucketNeutral               // [-0.1, 0.1]
	BucketMedium                // (0.1, 0.5]
	BucketHigh                  // > 0.5

	bucketCount = 5
)

var bucketNames = [bucketCount]string{"veryLow", "low", "neutral", "medium", "high"}

// bucketBounds are closed hulls of each range, used only for overlap tests
var bucketBounds = [bucketCount][2]float64{
	{math.Inf(-1), -0.5},
	{-0.5, -0.1},
	{-0.1, 0.1},
	{0.1, 0.5},
	{0.5, math.Inf(1)},
}

// Buckets lists all buckets from most negative to most positive
func Buckets() []Bucket {
	return []Bucket{BucketVeryLow, BucketLow, BucketNeutral, BucketMedium, BucketHigh}
}

func (b Bucket) String() string {
	if b < 0 || int(b) >= bucketCount {
		return "unknown"
	}
	return bucketNames[b]
}

// BucketFor returns the bucket a correlation value belongs to
func BucketFor(v float64) Bucket {
	switch {
	case v < -0.5:
		return BucketVeryLow
	case v < -0.1:
		return BucketLow
	case v <= 0.1:
		return BucketNeutral
	case v <= 0.5:
		return BucketMedium
	default:
		return BucketHigh
	}
}

// overlaps reports whether the bucket's range can contain values in [min, max]
func (b Bucket) overlaps(min, max float64) bool {
	bounds := bucketBounds[b]
	return bounds[0] <= max && bounds[1] >= min
}

// Index partitions every unordered pair of a snapshot into buckets
type Index struct {
	buckets [bucketCount][]Pair
}

func (ix *Index) add(p Pair) {
	b := BucketFor(p.Correlation)
	ix.buckets[b] = append(ix.buckets[b], p)
}

// Pairs returns a copy of the pairs in a bucket
func (ix *Index) Pairs(b Bucket) []Pair {
	if ix == nil || b < 0 || int(b) >= bucketCount {
		return nil
	}
	return append([]Pair(nil), ix.buckets[b]...)
}

// Counts returns the number of pairs per bucket name
func (ix *Index) Counts() map[string]int {
	counts := make(map[string]int, bucketCount)
	for _, b := range Buckets() {
		if ix == nil {
			counts[b.String()] = 0
			continue
		}
		counts[b.String()] = len(ix.buckets[b])
	}
	return counts
}

// Total returns the number of indexed pairs
func (ix *Index) Total() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, pairs := range ix.buckets {
		n += len(pairs)
	}
	return n
}

// InRange returns pairs with min <= correlation <= max, scanning only buckets
// that overlap the range. Pairs come out in bucket order, then build order.
func (ix *Index) InRange(min, max float64) []Pair {
	if ix == nil || min > max {
		return nil
	}
	var out []Pair
	for _, b := range Buckets() {
		if !b.overlaps(min, max) {
			continue
		}
		for _, p := range ix.buckets[b] {
			if p.Correlation >= min && p.Correlation <= max {
				out = append(out, p)
			}
		}
	}
	return out
}

// each calls fn for every indexed pair
func (ix *Index) each(fn func(Pair)) {
	if ix == nil {
		return
	}
	for _, pairs := range ix.buckets {
		for _, p := range pairs {
			fn(p)
		}
	}
}
