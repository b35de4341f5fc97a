package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/clientdata"
	"github.com/aristath/corrscope/internal/config"
	"github.com/aristath/corrscope/internal/reliability"
	"github.com/aristath/corrscope/internal/scheduler"
)

// Maintenance schedules (six-field cron, with seconds)
const (
	clientDataCleanupSchedule = "0 15 * * * *"
	walCheckpointSchedule     = "0 */30 * * * *"
	integrityCheckSchedule    = "0 0 4 * * *"
)

// RegisterJobs creates the scheduler and registers every background job
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched
	instances := &JobInstances{}

	instances.RefreshCorrelations = scheduler.NewRefreshCorrelationsJob(container.Engine, cfg.Feed.FetchTimeout, log)
	instances.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	instances.CheckWALCheckpoints = scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...)
	instances.CheckCoreDatabases = scheduler.NewCheckCoreDatabasesJob(log, container.Databases()...)

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Feed.RefreshCron, instances.RefreshCorrelations},
		{clientDataCleanupSchedule, instances.ClientDataCleanup},
		{walCheckpointSchedule, instances.CheckWALCheckpoints},
		{integrityCheckSchedule, instances.CheckCoreDatabases},
	}

	if container.ArchiveService != nil {
		instances.ArchiveRotation = reliability.NewArchiveRotationJob(container.ArchiveService, cfg.Archive.RetentionDays, log)
		registrations = append(registrations, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Archive.RotationCron, instances.ArchiveRotation})
	}

	for _, reg := range registrations {
		if err := sched.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register job: %w", err)
		}
	}

	log.Info().Int("jobs", sched.Entries()).Msg("Jobs registered")
	return instances, nil
}
