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
	ErrLeaderNotFound     = errors.New("leader not found")
	ErrLeaderNameRequired = errors.New("leader first and last name are required")
)

// LeaderInput is the editable part of a leader
type LeaderInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Gender    string
}

// LeaderService handles leader business logic
type LeaderService struct {
	leaderRepo *repository.LeaderRepository
	log        zerolog.Logger
}

// NewLeaderService creates a new leader service
func NewLeaderService(leaderRepo *repository.LeaderRepository, log zerolog.Logger) *LeaderService {
	return &LeaderService{
		leaderRepo: leaderRepo,
		log:        log.With().Str("service", "leader").Logger(),
	}
}

// Create stores a new leader
func (s *LeaderService) Create(ctx context.Context, input LeaderInput) (*models.Leader, error) {
	leader, err := buildLeader(input)
	if err != nil {
		return nil, err
	}

	created, err := s.leaderRepo.Create(ctx, leader)
	if err != nil {
		return nil, fmt.Errorf("failed to create leader: %w", err)
	}

	s.log.Info().Int64("leader_id", created.ID).Msg("leader created")
	return created, nil
}

// Update overwrites a leader's contact details
func (s *LeaderService) Update(ctx context.Context, id int64, input LeaderInput) (*models.Leader, error) {
	leader, err := buildLeader(input)
	if err != nil {
		return nil, err
	}
	leader.ID = id

	if err := s.leaderRepo.Update(ctx, leader); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLeaderNotFound
		}
		return nil, fmt.Errorf("failed to update leader: %w", err)
	}

	updated, err := s.leaderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get leader: %w", err)
	}
	if updated == nil {
		return nil, ErrLeaderNotFound
	}
	return updated, nil
}

// Delete detaches the leader from its families and removes it
func (s *LeaderService) Delete(ctx context.Context, id int64) error {
	if err := s.leaderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLeaderNotFound
		}
		return fmt.Errorf("failed to delete leader: %w", err)
	}

	s.log.Info().Int64("leader_id", id).Msg("leader deleted")
	return nil
}

// List returns every leader ordered by last name
func (s *LeaderService) List(ctx context.Context) ([]models.Leader, error) {
	leaders, err := s.leaderRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaders: %w", err)
	}
	return leaders, nil
}

func buildLeader(input LeaderInput) (*models.Leader, error) {
	leader := &models.Leader{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Gender:    strings.TrimSpace(input.Gender),
	}
	if leader.FirstName == "" || leader.LastName == "" {
		return nil, ErrLeaderNameRequired
	}
	return leader, nil
}
