package correlation

import "errors"

var (
	// ErrDataUnavailable means the correlation feed could not be fetched or decoded.
	ErrDataUnavailable = errors.New("correlation data unavailable")
	// ErrDimensionMismatch means tickers and weights have different lengths.
	ErrDimensionMismatch = errors.New("tickers and weights length mismatch")
	// ErrUnknownRiskTolerance means the tolerance is not conservative, moderate or aggressive.
	ErrUnknownRiskTolerance = errors.New("unknown risk tolerance")
	// ErrNotInitialized is returned by operations that need a built snapshot.
	ErrNotInitialized = errors.New("correlation engine not initialized")
)
