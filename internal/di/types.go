/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance of the service. It is built by
 * Wire() and handed to the HTTP server and cmd/server.
 */
package di

import (
	"github.com/aristath/corrscope/internal/clientdata"
	"github.com/aristath/corrscope/internal/database"
	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/metrics"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/internal/reliability"
	"github.com/aristath/corrscope/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	UniverseDB *database.DB // company directory
	CacheDB    *database.DB // feed response cache

	// Repositories
	CompanyRepo    *universe.CompanyRepository
	ClientDataRepo *clientdata.Repository

	// Services
	DirectoryService *universe.DirectoryService
	FeedFetcher      correlation.Fetcher
	EventBus         *events.Bus
	EventManager     *events.Manager
	Engine           *correlation.Engine
	ArchiveService   *reliability.ArchiveService // nil when archiving is not configured
	Metrics          *metrics.Metrics

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered scheduled jobs
type JobInstances struct {
	RefreshCorrelations *scheduler.RefreshCorrelationsJob
	ClientDataCleanup   *clientdata.CleanupJob
	CheckWALCheckpoints *scheduler.CheckWALCheckpointsJob
	CheckCoreDatabases  *scheduler.CheckCoreDatabasesJob
	ArchiveRotation     *reliability.ArchiveRotationJob // nil when archiving is not configured
}

// Databases returns every open database
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.UniverseDB, c.CacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes every database
func (c *Container) Close() {
	for _, db := range c.Databases() {
		db.Close()
	}
}
