package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

// FollowUpService records whether a leader reached a newly assigned member
type FollowUpService struct {
	memberRepo *repository.MemberRepository
	now        func() time.Time
	log        zerolog.Logger
}

// NewFollowUpService creates a new follow-up service
func NewFollowUpService(memberRepo *repository.MemberRepository, log zerolog.Logger) *FollowUpService {
	return &FollowUpService{
		memberRepo: memberRepo,
		now:        time.Now,
		log:        log.With().Str("service", "follow_up").Logger(),
	}
}

// Get returns the member shown on the public follow-up page
func (s *FollowUpService) Get(ctx context.Context, memberID int64) (*models.MemberWithFamily, error) {
	member, err := s.memberRepo.GetWithFamily(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// Update stores the contact status. The contact date is set to now when the
// member was contacted and cleared otherwise.
func (s *FollowUpService) Update(ctx context.Context, memberID int64, isContacted bool, leaderNotes string) (*models.MemberWithFamily, error) {
	var contactDate *time.Time
	if isContacted {
		ts := s.now().UTC().Truncate(time.Second)
		contactDate = &ts
	}

	var notes *string
	if trimmed := strings.TrimSpace(leaderNotes); trimmed != "" {
		notes = &trimmed
	}

	if err := s.memberRepo.UpdateFollowUp(ctx, memberID, isContacted, notes, contactDate); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update follow-up: %w", err)
	}

	s.log.Info().Int64("member_id", memberID).Bool("contacted", isContacted).Msg("follow-up recorded")
	return s.Get(ctx, memberID)
}
