package universe

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DirectoryService provides the current company directory. A JSON file, when
// configured, is the source of truth and is mirrored into the repository; otherwise
// the repository contents are served as-is.
type DirectoryService struct {
	repo     *CompanyRepository
	filePath string
	log      zerolog.Logger
}

// NewDirectoryService creates a new directory service. repo may be nil.
func NewDirectoryService(repo *CompanyRepository, filePath string, log zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		repo:     repo,
		filePath: filePath,
		log:      log.With().Str("service", "directory").Logger(),
	}
}

// Directory returns the company directory. A missing directory is not an error for
// enrichment purposes, so an empty Directory is returned when no source is configured.
func (s *DirectoryService) Directory() (Directory, error) {
	if s.filePath != "" {
		companies, err := LoadDirectoryFile(s.filePath)
		if err != nil {
			return nil, err
		}
		if s.repo != nil {
			if err := s.repo.UpsertAll(companies); err != nil {
				s.log.Warn().Err(err).Msg("Failed to mirror company directory")
			}
		}
		return NewDirectory(companies), nil
	}

	if s.repo == nil {
		s.log.Debug().Msg("No company directory configured")
		return Directory{}, nil
	}

	companies, err := s.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load company directory: %w", err)
	}
	return NewDirectory(companies), nil
}
