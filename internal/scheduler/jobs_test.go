package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/modules/correlation"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

type fakeInitializer struct {
	err      error
	deadline bool
}

func (f *fakeInitializer) Initialize(ctx context.Context) (*correlation.Snapshot, error) {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return correlation.BuildSnapshot([]correlation.Record{{Ticker: "A"}, {Ticker: "B"}}, correlation.DefaultBuildOptions()), nil
}

func TestRefreshCorrelationsJob(t *testing.T) {
	engine := &fakeInitializer{}
	job := NewRefreshCorrelationsJob(engine, time.Minute, zerolog.Nop())

	assert.Equal(t, "refresh_correlations", job.Name())
	require.NoError(t, job.Run())
	assert.True(t, engine.deadline)

	noDeadline := &fakeInitializer{}
	require.NoError(t, NewRefreshCorrelationsJob(noDeadline, 0, zerolog.Nop()).Run())
	assert.False(t, noDeadline.deadline)
}

func TestRefreshCorrelationsJob_PropagatesFailure(t *testing.T) {
	cause := errors.Join(correlation.ErrDataUnavailable, assert.AnError)
	job := NewRefreshCorrelationsJob(&fakeInitializer{err: cause}, time.Minute, zerolog.Nop())

	err := job.Run()
	assert.ErrorIs(t, err, correlation.ErrDataUnavailable)
}

func TestCheckWALCheckpointsJob(t *testing.T) {
	universeDB := testingpkg.NewTestDB(t, "universe")
	cacheDB := testingpkg.NewTestDB(t, "cache")

	job := NewCheckWALCheckpointsJob(zerolog.Nop(), universeDB, nil, cacheDB)
	assert.Equal(t, "check_wal_checkpoints", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckCoreDatabasesJob(t *testing.T) {
	universeDB := testingpkg.NewTestDB(t, "universe")
	cacheDB := testingpkg.NewTestDB(t, "cache")

	job := NewCheckCoreDatabasesJob(zerolog.Nop(), universeDB, cacheDB, nil)
	assert.Equal(t, "check_core_databases", job.Name())
	assert.NoError(t, job.Run())
}
