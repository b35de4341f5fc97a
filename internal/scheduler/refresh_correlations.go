package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/modules/correlation"
)

// Initializer rebuilds the correlation snapshot
type Initializer interface {
	Initialize(ctx context.Context) (*correlation.Snapshot, error)
}

// RefreshCorrelationsJob re-initializes the correlation engine from the feed
type RefreshCorrelationsJob struct {
	engine  Initializer
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshCorrelationsJob creates the job. timeout <= 0 means no deadline.
func NewRefreshCorrelationsJob(engine Initializer, timeout time.Duration, log zerolog.Logger) *RefreshCorrelationsJob {
	return &RefreshCorrelationsJob{
		engine:  engine,
		timeout: timeout,
		log:     log.With().Str("job", "refresh_correlations").Logger(),
	}
}

// Name returns the job name
func (j *RefreshCorrelationsJob) Name() string {
	return "refresh_correlations"
}

// Run rebuilds the snapshot. On failure the engine keeps serving the previous one.
func (j *RefreshCorrelationsJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	snap, err := j.engine.Initialize(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("snapshot_id", snap.ID).
		Int("companies", snap.Len()).
		Msg("Correlation snapshot refreshed")
	return nil
}
