package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Leaders      []models.Leader `json:"leaders"`
	Families     []models.Family `json:"families"`
	Members      []models.Member `json:"members"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	leaderRepo   *repository.LeaderRepository
	familyRepo   *repository.FamilyRepository
	memberRepo   *repository.MemberRepository
	backupRepo   *repository.BackupRepository
	databaseType string
	log          zerolog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(leaderRepo *repository.LeaderRepository, familyRepo *repository.FamilyRepository, memberRepo *repository.MemberRepository, backupRepo *repository.BackupRepository, databaseType string, log zerolog.Logger) *BackupService {
	return &BackupService{
		leaderRepo:   leaderRepo,
		familyRepo:   familyRepo,
		memberRepo:   memberRepo,
		backupRepo:   backupRepo,
		databaseType: databaseType,
		log:          log.With().Str("service", "backup").Logger(),
	}
}

// Export writes every leader, family and member as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.databaseType,
	}

	var err error
	if backup.Leaders, err = s.leaderRepo.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to export leaders: %w", err)
	}
	if backup.Families, err = s.familyRepo.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	if backup.Members, err = s.memberRepo.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export members: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info().
		Int("leaders", len(backup.Leaders)).
		Int("families", len(backup.Families)).
		Int("members", len(backup.Members)).
		Msg("database exported")
	return backup, nil
}

// Import restores a backup in one transaction, keeping the exported IDs.
// With clear set, existing rows are deleted first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	s.log.Info().
		Str("version", backup.Version).
		Time("exported_at", backup.ExportedAt).
		Str("source", backup.DatabaseType).
		Msg("importing backup")

	if err := s.backupRepo.Restore(ctx, backup.Leaders, backup.Families, backup.Members, clear); err != nil {
		return nil, fmt.Errorf("failed to import backup: %w", err)
	}

	s.log.Info().
		Int("leaders", len(backup.Leaders)).
		Int("families", len(backup.Families)).
		Int("members", len(backup.Members)).
		Msg("database imported")
	return &backup, nil
}
