package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

var (
	ErrFamilyNotFound      = errors.New("family not found")
	ErrFamilyNameRequired  = errors.New("family name is required")
	ErrInvalidCoordinates  = errors.New("latitude and longitude must be set together and within range")
	ErrSameLeader          = errors.New("pilote and copilote must be different leaders")
	ErrUnknownFamilyLeader = errors.New("referenced leader does not exist")
)

// FamilyInput is the editable part of a family
type FamilyInput struct {
	Name       string
	Address    string
	Latitude   *float64
	Longitude  *float64
	PiloteID   *int64
	CopiloteID *int64
}

// FamilyOverview is a family with the members that could still join it
type FamilyOverview struct {
	Family           *models.FamilyDetails `json:"family"`
	AvailableMembers []models.Member       `json:"available_members"`
}

// FamilyService handles family business logic
type FamilyService struct {
	familyRepo *repository.FamilyRepository
	leaderRepo *repository.LeaderRepository
	memberRepo *repository.MemberRepository
	log        zerolog.Logger
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, leaderRepo *repository.LeaderRepository, memberRepo *repository.MemberRepository, log zerolog.Logger) *FamilyService {
	return &FamilyService{
		familyRepo: familyRepo,
		leaderRepo: leaderRepo,
		memberRepo: memberRepo,
		log:        log.With().Str("service", "family").Logger(),
	}
}

// Create validates and stores a new family
func (s *FamilyService) Create(ctx context.Context, input FamilyInput) (*models.Family, error) {
	family, err := s.buildFamily(ctx, input)
	if err != nil {
		return nil, err
	}

	created, err := s.familyRepo.Create(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.log.Info().Int64("family_id", created.ID).Str("name", created.Name).Msg("family created")
	return created, nil
}

// Update validates and overwrites an existing family
func (s *FamilyService) Update(ctx context.Context, id int64, input FamilyInput) (*models.Family, error) {
	family, err := s.buildFamily(ctx, input)
	if err != nil {
		return nil, err
	}
	family.ID = id

	if err := s.familyRepo.Update(ctx, family); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFamilyNotFound
		}
		return nil, fmt.Errorf("failed to update family: %w", err)
	}

	updated, err := s.familyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if updated == nil {
		return nil, ErrFamilyNotFound
	}
	return updated, nil
}

// Delete unassigns the family's members and removes it
func (s *FamilyService) Delete(ctx context.Context, id int64) error {
	if err := s.familyRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFamilyNotFound
		}
		return fmt.Errorf("failed to delete family: %w", err)
	}

	s.log.Info().Int64("family_id", id).Msg("family deleted")
	return nil
}

// List returns every family with leaders and members, ordered by name
func (s *FamilyService) List(ctx context.Context) ([]models.FamilyDetails, error) {
	families, err := s.familyRepo.ListDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return families, nil
}

// GetDetails returns the family and the unassigned members
func (s *FamilyService) GetDetails(ctx context.Context, id int64) (*FamilyOverview, error) {
	family, err := s.familyRepo.GetDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	available, err := s.memberRepo.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available members: %w", err)
	}

	return &FamilyOverview{Family: family, AvailableMembers: available}, nil
}

func (s *FamilyService) buildFamily(ctx context.Context, input FamilyInput) (*models.Family, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrFamilyNameRequired
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}
	if input.PiloteID != nil && input.CopiloteID != nil && *input.PiloteID == *input.CopiloteID {
		return nil, ErrSameLeader
	}

	var leaderIDs []int64
	for _, id := range []*int64{input.PiloteID, input.CopiloteID} {
		if id != nil {
			leaderIDs = append(leaderIDs, *id)
		}
	}
	leaders, err := s.leaderRepo.ListByIDs(ctx, leaderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check leaders: %w", err)
	}
	for _, id := range leaderIDs {
		if _, ok := leaders[id]; !ok {
			return nil, ErrUnknownFamilyLeader
		}
	}

	return &models.Family{
		Name:       name,
		Address:    strings.TrimSpace(input.Address),
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		PiloteID:   input.PiloteID,
		CopiloteID: input.CopiloteID,
	}, nil
}

// validateCoordinates accepts a missing pair or a complete, in-range one
func validateCoordinates(lat, lon *float64) error {
	if lat == nil && lon == nil {
		return nil
	}
	if lat == nil || lon == nil {
		return ErrInvalidCoordinates
	}
	if !(models.Coordinates{Latitude: *lat, Longitude: *lon}).Valid() {
		return ErrInvalidCoordinates
	}
	return nil
}
