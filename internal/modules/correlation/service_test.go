package correlation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/modules/universe"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

type staticDirectory struct {
	dir universe.Directory
	err error
}

func (d staticDirectory) Directory() (universe.Directory, error) { return d.dir, d.err }

func newTestEngine(fetcher Fetcher, emitter EventEmitter, cfg EngineConfig) *Engine {
	dir := staticDirectory{dir: universe.NewDirectory(testingpkg.NewCompanyFixtures())}
	return NewEngine(fetcher, dir, emitter, cfg, zerolog.Nop())
}

func fastConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.Retry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}
	return cfg
}

func TestEngine_BeforeInitialize(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{}, nil, fastConfig())

	assert.False(t, engine.Initialized())
	assert.Nil(t, engine.CompanyCorrelation("AAPL"))
	assert.Empty(t, engine.FindLowCorrelationPairs(-1, 1))
	assert.Empty(t, engine.SectorCorrelation())
	assert.Empty(t, engine.Heatmap(nil).Tickers)
	assert.Empty(t, engine.Network(0.5).Nodes)
	assert.Empty(t, engine.CorrelationMatrix([]string{"AAPL"}).Tickers)
	assert.Empty(t, engine.FindSimilarStocks("AAPL", 5))
	assert.Equal(t, 0, engine.Statistics().Companies)
	assert.Equal(t, 0.0, engine.PairwiseCorrelation("AAPL", "MSFT").Correlation)

	clusters, err := engine.ClusterByCorrelation(KMeansOptions{K: 3})
	require.NoError(t, err)
	assert.Empty(t, clusters.Assignments)
}

func TestEngine_Initialize(t *testing.T) {
	emitter := &recordingEmitter{}
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, emitter, fastConfig())

	var observed *Snapshot
	engine.OnSnapshot(func(s *Snapshot) { observed = s })

	snap, err := engine.Initialize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.True(t, engine.Initialized())
	assert.Same(t, snap, engine.Snapshot())
	assert.Same(t, snap, observed)
	assert.Equal(t, 4, snap.Len())
	assert.Equal(t, []events.EventType{events.CorrelationSnapshotBuilt}, emitter.types())

	built := emitter.events[0].(*events.SnapshotBuiltData)
	assert.Equal(t, snap.ID, built.SnapshotID)
	assert.Equal(t, 6, built.Pairs)

	cc := engine.CompanyCorrelation("xom")
	require.NotNil(t, cc)
	assert.Equal(t, "Energy", cc.Record.Sector)
	assert.Equal(t, "Exxon Mobil Corporation", cc.Record.CompanyName)

	pw := engine.PairwiseCorrelation("aapl", "MSFT")
	assert.Equal(t, "AAPL", pw.Ticker1)
	assert.InDelta(t, 0.95, pw.Correlation, 1e-9)
	assert.Equal(t, "Very Strong Positive", pw.Interpretation)

	unknown := engine.PairwiseCorrelation("AAPL", "NOPE")
	assert.Equal(t, 0.0, unknown.Correlation)
}

func TestEngine_ListenersRunInOrderAndMayRegisterMore(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, nil, fastConfig())

	var calls []string
	engine.OnSnapshot(func(*Snapshot) {
		calls = append(calls, "first")
		engine.OnSnapshot(func(*Snapshot) { calls = append(calls, "late") })
	})
	engine.OnSnapshot(func(*Snapshot) { calls = append(calls, "second") })

	_, err := engine.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	_, err = engine.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "late"}, calls)
}

func TestEngine_FailedRefreshKeepsSnapshot(t *testing.T) {
	emitter := &recordingEmitter{}
	fetcher := &fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}
	engine := newTestEngine(fetcher, emitter, fastConfig())

	first, err := engine.Initialize(context.Background())
	require.NoError(t, err)

	fetcher.mu.Lock()
	fetcher.failures = 100
	fetcher.err = errors.New("upstream down")
	fetcher.mu.Unlock()

	_, err = engine.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Same(t, first, engine.Snapshot())

	types := emitter.types()
	require.Len(t, types, 2)
	assert.Equal(t, events.CorrelationRefreshFailed, types[1])
	failed := emitter.events[1].(*events.RefreshFailedData)
	assert.True(t, failed.DataUnavailable)
	assert.Equal(t, first.ID, failed.KeptSnapshotID)
}

func TestEngine_InitializeWithoutAnySnapshotFails(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{failures: 3, err: errors.New("timeout")}, nil, fastConfig())

	_, err := engine.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.False(t, engine.Initialized())
}

func TestEngine_DirectoryFailureAppliesDefaults(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}
	engine := NewEngine(fetcher, staticDirectory{err: errors.New("disk gone")}, nil, fastConfig(), zerolog.Nop())

	snap, err := engine.Initialize(context.Background())
	require.NoError(t, err)
	for _, r := range snap.Records() {
		assert.Equal(t, UnknownSector, r.Sector)
	}
}

func TestEngine_UniverseLimit(t *testing.T) {
	cfg := fastConfig()
	cfg.UniverseLimit = 2
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, nil, cfg)

	snap, err := engine.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, snap.Tickers())
}

func TestEngine_ConfiguredKMeansSeed(t *testing.T) {
	seed := int64(7)
	cfg := fastConfig()
	cfg.KMeansSeed = &seed
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, nil, cfg)
	_, err := engine.Initialize(context.Background())
	require.NoError(t, err)

	first, err := engine.ClusterByCorrelation(KMeansOptions{K: 2})
	require.NoError(t, err)
	second, err := engine.ClusterByCorrelation(KMeansOptions{K: 2})
	require.NoError(t, err)
	assert.Equal(t, first.Assignments, second.Assignments)
}

func TestEngine_PortfolioOperations(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, nil, fastConfig())
	_, err := engine.Initialize(context.Background())
	require.NoError(t, err)

	tickers := []string{"AAPL", "MSFT", "XOM", "JNJ"}

	p := engine.BuildDiversifiedPortfolio(tickers, 2)
	assert.Equal(t, []string{"AAPL", "XOM"}, p.Tickers)

	_, err = engine.PortfolioRisk(tickers, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	res, err := engine.OptimizePortfolio(tickers, Moderate)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(res.Weights), 1e-6)

	frontier, err := engine.EfficientFrontier(tickers, 3)
	require.NoError(t, err)
	assert.Len(t, frontier, 3)
}

func TestEngine_ConcurrentReadsDuringRefresh(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{data: []byte(testingpkg.FeedFixtureJSON)}, nil, fastConfig())
	_, err := engine.Initialize(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := engine.Snapshot()
				assert.Equal(t, snap.Index().Total(), snap.Len()*(snap.Len()-1)/2)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := engine.Initialize(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}
