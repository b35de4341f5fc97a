package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/corrscope/internal/database"
	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/metrics"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/internal/scheduler"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

type staticFetcher struct{ data []byte }

func (f staticFetcher) Fetch(ctx context.Context) ([]byte, error) { return f.data, nil }

func (f staticFetcher) Source() string { return "static" }

type fakeJobs struct {
	triggered []string
	err       error
}

func (f *fakeJobs) Jobs() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "refresh_correlations", Schedule: "0 0 6 * * *"}}
}

func (f *fakeJobs) Trigger(name string) error {
	if name != "refresh_correlations" {
		return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, name)
	}
	f.triggered = append(f.triggered, name)
	return f.err
}

type testEnv struct {
	server *Server
	engine *correlation.Engine
	bus    *events.Bus
	jobs   *fakeJobs
}

func newTestEnv(t *testing.T, dbs ...*database.DB) *testEnv {
	t.Helper()
	bus := events.NewBus(zerolog.Nop())
	manager := events.NewManager(bus, zerolog.Nop())
	engine := correlation.NewEngine(
		staticFetcher{data: []byte(testingpkg.FeedFixtureJSON)},
		nil,
		manager,
		correlation.DefaultEngineConfig(),
		zerolog.Nop(),
	)
	jobs := &fakeJobs{}
	m := metrics.New()
	engine.OnSnapshot(m.ObserveSnapshot)

	srv := New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		DevMode:   true,
		Engine:    engine,
		EventBus:  bus,
		Jobs:      jobs,
		Databases: dbs,
		Metrics:   m,
	})
	srv.systemHandlers.hostStats = func() (float64, float64) { return 12.5, 40 }

	return &testEnv{server: srv, engine: engine, bus: bus, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["initialized"])

	_, err := env.engine.Initialize(context.Background())
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["initialized"])
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var before SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Equal(t, "initializing", before.Status)
	assert.Nil(t, before.Snapshot)
	assert.Equal(t, 12.5, before.CPUPercent)
	assert.Equal(t, 40.0, before.RAMPercent)

	snap, err := env.engine.Initialize(context.Background())
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/system/status")
	var after SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, "healthy", after.Status)
	require.NotNil(t, after.Snapshot)
	assert.Equal(t, snap.ID, after.Snapshot.ID)
	assert.Equal(t, 4, after.Snapshot.Companies)
	assert.Equal(t, 6, after.Snapshot.Pairs)
}

func TestJobs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/system/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh_correlations")

	rec = env.do(t, http.MethodPost, "/api/system/jobs/refresh_correlations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	assert.Equal(t, []string{"refresh_correlations"}, env.jobs.triggered)

	rec = env.do(t, http.MethodPost, "/api/system/jobs/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.jobs.err = errors.New("feed down")
	rec = env.do(t, http.MethodPost, "/api/system/jobs/refresh_correlations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feed down")
}

func TestJobs_NoScheduler(t *testing.T) {
	h := NewSystemHandlers(nil, nil, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleTriggerJob(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleJobsStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))
	assert.JSONEq(t, `{"jobs":[]}`, rec.Body.String())
}

func TestDatabaseStats(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	env := newTestEnv(t, db)

	rec := env.do(t, http.MethodGet, "/api/system/database/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Databases []DatabaseStat `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Databases, 1)
	assert.Equal(t, "universe", body.Databases[0].Name)
	assert.Equal(t, db.Path(), body.Databases[0].Path)
}

func TestCorrelationRoutesMounted(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Initialize(context.Background())
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/correlation/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"companies":4`)
}

func TestUniverseRoutesMounted(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	repo := universe.NewCompanyRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.UpsertAll(testingpkg.NewCompanyFixtures()))

	srv := New(Config{
		Log:       zerolog.Nop(),
		Companies: repo,
		Directory: universe.NewDirectoryService(repo, "", zerolog.Nop()),
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/universe/companies/AAPL", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Apple Inc.")

	// without an engine the correlation routes are absent
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/correlation/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			}
		}
	}

	assert.Contains(t, nextData(), `"connected"`)

	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(events.CorrelationSnapshotBuilt) == 1
	}, time.Second, 10*time.Millisecond)

	_, err = env.engine.Initialize(context.Background())
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(nextData()), &event))
	assert.Equal(t, string(events.CorrelationSnapshotBuilt), event["type"])
	assert.Equal(t, "correlation", event["module"])
}

func TestEventsWebSocket(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=" + string(events.CorrelationSnapshotBuilt)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(events.CorrelationSnapshotBuilt) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, env.bus.SubscriberCount(events.CorrelationRefreshFailed))

	snap, err := env.engine.Initialize(context.Background())
	require.NoError(t, err)

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var event struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, string(events.CorrelationSnapshotBuilt), event.Type)
	assert.Equal(t, snap.ID, event.Data["snapshot_id"])
}

func TestParseTypesFilter(t *testing.T) {
	assert.Equal(t, events.AllEventTypes, parseTypesFilter(""))
	assert.Equal(t,
		[]events.EventType{events.CorrelationSnapshotBuilt, events.SnapshotArchived},
		parseTypesFilter("CORRELATION_SNAPSHOT_BUILT, SNAPSHOT_ARCHIVED,"),
	)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Initialize(context.Background())
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health").Code)

	rec := env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "corrscope_snapshot_companies 4")
	assert.Contains(t, body, `corrscope_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
