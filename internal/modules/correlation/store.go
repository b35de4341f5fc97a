package correlation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/modules/universe"
)

// Fetcher retrieves the raw feed document in a single attempt
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Source() string
}

// RetryPolicy controls how Store.Load retries transport failures.
// Delay is fixed between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts one second apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second}
}

// Store owns the per-company records of the current load
type Store struct {
	mu      sync.RWMutex
	records []Record
	retry   RetryPolicy
	log     zerolog.Logger
}

// NewStore creates an empty store
func NewStore(retry RetryPolicy, log zerolog.Logger) *Store {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Store{
		retry: retry,
		log:   log.With().Str("component", "correlation_store").Logger(),
	}
}

// Load fetches and parses the feed, replacing all records. Transport failures are
// retried; when attempts run out, or the document cannot be decoded, the returned
// error wraps ErrDataUnavailable and the current records are kept.
func (s *Store) Load(ctx context.Context, source Fetcher) error {
	var (
		data    []byte
		lastErr error
	)

	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		data, lastErr = source.Fetch(ctx)
		if lastErr == nil {
			break
		}

		s.log.Warn().
			Err(lastErr).
			Str("source", source.Source()).
			Int("attempt", attempt).
			Int("max_attempts", s.retry.Attempts).
			Msg("Correlation feed fetch failed")

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrDataUnavailable, ctx.Err())
		}
		if attempt == s.retry.Attempts {
			break
		}

		timer := time.NewTimer(s.retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrDataUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: after %d attempts: %v", ErrDataUnavailable, s.retry.Attempts, lastErr)
	}

	records, err := ParseFeed(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.log.Info().
		Str("source", source.Source()).
		Int("records", len(records)).
		Msg("Correlation feed loaded")
	return nil
}

// SetRecords replaces the records directly
func (s *Store) SetRecords(records []Record) {
	s.mu.Lock()
	s.records = append([]Record(nil), records...)
	s.mu.Unlock()
}

// Enrich attaches directory metadata. Unmatched records, or all records when the
// directory is empty, get the Unknown sector and a zero market cap.
func (s *Store) Enrich(dir universe.Directory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	for i := range s.records {
		rec := &s.records[i]
		c, ok := dir.Lookup(rec.Ticker)
		if !ok {
			rec.Sector = UnknownSector
			rec.MarketCap = 0
			rec.CompanyName = ""
			continue
		}
		matched++
		rec.Sector = c.Sector
		if rec.Sector == "" {
			rec.Sector = UnknownSector
		}
		rec.MarketCap = c.MarketCap
		rec.CompanyName = c.Name
	}

	s.log.Debug().
		Int("records", len(s.records)).
		Int("matched", matched).
		Msg("Records enriched from company directory")
}

// Records returns a copy of the current records
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

// Len returns the number of loaded records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// TopByMarketCap keeps the limit largest companies by market cap, preserving the
// input order of those kept. limit <= 0 keeps everything.
func TopByMarketCap(records []Record, limit int) []Record {
	if limit <= 0 || len(records) <= limit {
		return records
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].MarketCap > records[order[b]].MarketCap
	})

	keep := order[:limit]
	sort.Ints(keep)

	out := make([]Record, 0, limit)
	for _, i := range keep {
		out = append(out, records[i])
	}
	return out
}
