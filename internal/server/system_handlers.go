package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/corrscope/internal/database"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/scheduler"
)

// SnapshotSource exposes the current correlation snapshot
type SnapshotSource interface {
	Initialized() bool
	Snapshot() *correlation.Snapshot
}

// JobRunner lists and triggers scheduled jobs
type JobRunner interface {
	Jobs() []scheduler.JobStatus
	Trigger(name string) error
}

// SystemHandlers serves operational endpoints
type SystemHandlers struct {
	snapshots SnapshotSource
	jobs      JobRunner
	databases []*database.DB
	startedAt time.Time
	log       zerolog.Logger

	// hostStats returns CPU and RAM usage percentages
	hostStats func() (float64, float64)
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(snapshots SnapshotSource, jobs JobRunner, databases []*database.DB, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		snapshots: snapshots,
		jobs:      jobs,
		databases: databases,
		startedAt: time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
	h.hostStats = h.getSystemStats
	return h
}

// SnapshotStatus summarizes the published snapshot
type SnapshotStatus struct {
	ID         string    `json:"id"`
	BuiltAt    time.Time `json:"built_at"`
	AgeSeconds int64     `json:"age_seconds"`
	Companies  int       `json:"companies"`
	Pairs      int       `json:"pairs"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Snapshot      *SnapshotStatus `json:"snapshot,omitempty"`
	CPUPercent    float64         `json:"cpu_percent"`
	RAMPercent    float64         `json:"ram_percent"`
	LastUpdated   string          `json:"last_updated"`
}

// DatabaseStat describes one SQLite file
type DatabaseStat struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// HandleSystemStatus returns uptime, snapshot and host statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	uptime := now.Sub(h.startedAt)

	response := SystemStatusResponse{
		Status:        "initializing",
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		LastUpdated:   now.Format(time.RFC3339),
	}

	if h.snapshots != nil && h.snapshots.Initialized() {
		snap := h.snapshots.Snapshot()
		response.Status = "healthy"
		response.Snapshot = &SnapshotStatus{
			ID:         snap.ID,
			BuiltAt:    snap.BuiltAt,
			AgeSeconds: int64(now.Sub(snap.BuiltAt).Seconds()),
			Companies:  snap.Len(),
			Pairs:      snap.Index().Total(),
		}
	}

	response.CPUPercent, response.RAMPercent = h.hostStats()

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleJobsStatus lists scheduled jobs
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs}, h.log)
}

// HandleTriggerJob runs a scheduled job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
		return
	}

	if err := h.jobs.Trigger(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"job":     name,
			"message": err.Error(),
		}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	}, h.log)
}

// HandleDatabaseStats reports database file sizes
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]DatabaseStat, 0, len(h.databases))
	for _, db := range h.databases {
		stat := DatabaseStat{Name: db.Name(), Path: db.Path()}
		if info, err := os.Stat(db.Path()); err == nil {
			stat.SizeMB = float64(info.Size()) / 1024 / 1024
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to stat database file")
		}
		stats = append(stats, stat)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"databases": stats}, h.log)
}

// getSystemStats samples CPU over 100ms to keep the endpoint responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
