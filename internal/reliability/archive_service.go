package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/modules/correlation"
)

const (
	archiveTimestampLayout = "2006-01-02-150405"
	archiveSuffix          = ".json.gz"
	// minArchivesToKeep survive rotation regardless of age
	minArchivesToKeep = 3
)

// ObjectStore is the subset of the S3 API the archive needs
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Emitter publishes typed events
type Emitter interface {
	EmitTyped(module string, data events.EventData)
}

// SnapshotExport is the archived representation of a snapshot
type SnapshotExport struct {
	SnapshotID string                          `json:"snapshot_id"`
	BuiltAt    time.Time                       `json:"built_at"`
	ExportedAt time.Time                       `json:"exported_at"`
	Statistics correlation.Statistics          `json:"statistics"`
	Records    []correlation.Record            `json:"records"`
	Sectors    []correlation.SectorCorrelation `json:"sectors"`
	Heatmap    correlation.Heatmap             `json:"heatmap"`
}

// ArchiveInfo describes an archived snapshot
type ArchiveInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// ArchiveService uploads snapshot exports and rotates old ones
type ArchiveService struct {
	store   ObjectStore
	prefix  string
	emitter Emitter
	log     zerolog.Logger
	now     func() time.Time
}

// NewArchiveService creates an archive service. emitter may be nil.
func NewArchiveService(store ObjectStore, prefix string, emitter Emitter, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		store:   store,
		prefix:  prefix,
		emitter: emitter,
		log:     log.With().Str("service", "snapshot_archive").Logger(),
		now:     time.Now,
	}
}

// ArchiveSnapshot uploads a gzip-compressed JSON export of snap and returns its key
func (s *ArchiveService) ArchiveSnapshot(ctx context.Context, snap *correlation.Snapshot) (string, error) {
	startTime := s.now()

	export := SnapshotExport{
		SnapshotID: snap.ID,
		BuiltAt:    snap.BuiltAt,
		ExportedAt: startTime.UTC(),
		Statistics: snap.Statistics(),
		Records:    snap.Records(),
		Sectors:    snap.SectorCorrelation(),
		Heatmap:    snap.Heatmap(nil),
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(export); err != nil {
		return "", fmt.Errorf("failed to encode snapshot export: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to compress snapshot export: %w", err)
	}
	size := buf.Len()

	key := s.archiveKey(startTime, snap.ID)
	if err := s.store.Upload(ctx, key, &buf, "application/gzip"); err != nil {
		return "", err
	}

	s.log.Info().
		Str("key", key).
		Str("snapshot_id", snap.ID).
		Int("bytes", size).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Snapshot archived")

	if s.emitter != nil {
		s.emitter.EmitTyped("reliability", &events.SnapshotArchivedData{
			SnapshotID: snap.ID,
			Bucket:     s.store.Bucket(),
			Key:        key,
			Bytes:      size,
		})
	}
	return key, nil
}

func (s *ArchiveService) archiveKey(at time.Time, snapshotID string) string {
	id := snapshotID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s%s-%s%s", s.prefix, at.UTC().Format(archiveTimestampLayout), id, archiveSuffix)
}

// ListArchives returns archived snapshots, newest first
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	now := s.now()
	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		key := *obj.Key
		name := strings.TrimPrefix(key, s.prefix)
		if !strings.HasSuffix(name, archiveSuffix) || len(name) < len(archiveTimestampLayout) {
			continue
		}

		timestamp, err := time.Parse(archiveTimestampLayout, name[:len(archiveTimestampLayout)])
		if err != nil {
			s.log.Warn().Str("key", key).Msg("Failed to parse timestamp from archive key")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		archives = append(archives, ArchiveInfo{
			Key:       key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})
	return archives, nil
}

// RotateOldArchives deletes archives older than retentionDays, always keeping
// the newest few. retentionDays <= 0 keeps everything.
func (s *ArchiveService) RotateOldArchives(ctx context.Context, retentionDays int) (int, error) {
	archives, err := s.ListArchives(ctx)
	if err != nil {
		return 0, err
	}
	if retentionDays <= 0 || len(archives) <= minArchivesToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, archive := range archives[minArchivesToKeep:] {
		if !archive.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, archive.Key); err != nil {
			s.log.Error().Err(err).Str("key", archive.Key).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(archives)-deleted).
		Msg("Archive rotation completed")
	return deleted, nil
}

// Listener returns a snapshot callback that archives in the background
func (s *ArchiveService) Listener(timeout time.Duration) func(*correlation.Snapshot) {
	return func(snap *correlation.Snapshot) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if _, err := s.ArchiveSnapshot(ctx, snap); err != nil {
				s.log.Error().Err(err).Str("snapshot_id", snap.ID).Msg("Snapshot archive failed")
			}
		}()
	}
}
