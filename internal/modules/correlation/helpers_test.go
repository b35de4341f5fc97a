package correlation

import (
	"context"
	"math/rand"
	"sync"

	"github.com/aristath/corrscope/internal/events"
)

func rec(ticker string, eps, sales float64) Record {
	return Record{Ticker: ticker, CorpName: ticker + " Corp", Sector: UnknownSector, FwdEpsCorr: eps, FwdSalesCorr: sales}
}

// scenarioRecords: corr(A,B)=1, corr(A,C)=0, corr(A,D)=0.9, corr(A,E)=0.5
func scenarioRecords() []Record {
	return []Record{
		rec("A", 0.5, 0.5),
		rec("B", 0.5, 0.5),
		rec("C", -0.5, -0.5),
		rec("D", 0.4, 0.4),
		rec("E", 0, 0),
	}
}

func randomRecords(n int, seed int64) []Record {
	r := rand.New(rand.NewSource(seed))
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			Ticker:        string(rune('A'+i%26)) + string(rune('A'+i/26)),
			Sector:        []string{"Technology", "Energy", "Healthcare"}[i%3],
			FwdEpsCorr:    r.Float64()*2 - 1,
			FwdSalesCorr:  r.Float64()*2 - 1,
			HighYieldCorr: r.Float64()*2 - 1,
			MarketCap:     float64(r.Intn(1000)),
		}
	}
	return out
}

func build(records []Record) *Snapshot {
	return BuildSnapshot(records, DefaultBuildOptions())
}

// fakeFetcher fails the first failures calls, then returns data
type fakeFetcher struct {
	mu       sync.Mutex
	data     []byte
	failures int
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeFetcher) Source() string { return "fake" }

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

func (r *recordingEmitter) EmitTyped(module string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
}

func (r *recordingEmitter) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}
