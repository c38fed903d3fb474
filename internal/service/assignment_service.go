package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"impactfamilies/internal/models"
	"impactfamilies/internal/repository"
)

// DefaultClosestLimit is the number of suggestions returned when no limit is given
const DefaultClosestLimit = 3

// Messages carried by a failed AssignmentResult
const (
	MsgFamilyNotFound     = "Family not found"
	MsgMemberNotFound     = "Member not found"
	MsgAddMemberFailed    = "Failed to add member"
	MsgRemoveMemberFailed = "Failed to remove member"
)

var ErrMemberNotFound = errors.New("member not found")

// MemberStore is the member persistence needed by assignments
type MemberStore interface {
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	SetFamily(ctx context.Context, memberID int64, familyID *int64) (*models.Member, error)
}

// FamilyStore is the family persistence needed by assignments
type FamilyStore interface {
	GetDetails(ctx context.Context, id int64) (*models.FamilyDetails, error)
	ListWithCoordinates(ctx context.Context) ([]models.FamilyDetails, error)
}

// AssignmentMailer notifies family leaders by e-mail
type AssignmentMailer interface {
	SendAssignmentEmail(ctx context.Context, family *models.FamilyDetails, member *models.Member, followUpURL string) error
}

var (
	_ MemberStore      = (*repository.MemberRepository)(nil)
	_ FamilyStore      = (*repository.FamilyRepository)(nil)
	_ AssignmentMailer = (*EmailService)(nil)
)

// FamilyCandidate is one suggested family and its distance from the member
type FamilyCandidate struct {
	Family     models.FamilyDetails `json:"family"`
	DistanceKm float64              `json:"distance_km"`
}

// ClosestFamilies is the member together with its ranked suggestions
type ClosestFamilies struct {
	Member     *models.Member    `json:"member"`
	Candidates []FamilyCandidate `json:"candidates"`
}

// AssignmentResult reports the outcome of an assignment change.
// Failures are described in Error; the operation never returns a Go error.
type AssignmentResult struct {
	Success  bool                `json:"success"`
	Error    string              `json:"error,omitempty"`
	Member   *models.Member      `json:"member,omitempty"`
	Pilote   *LeaderNotification `json:"pilote"`
	Copilote *LeaderNotification `json:"copilote"`
}

// AssignmentService suggests families for members and moves members between families
type AssignmentService struct {
	members  MemberStore
	families FamilyStore
	links    *LinkBuilder
	mailer   AssignmentMailer
	log      zerolog.Logger
}

// NewAssignmentService creates an assignment service. mailer may be nil.
func NewAssignmentService(members MemberStore, families FamilyStore, links *LinkBuilder, mailer AssignmentMailer, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		members:  members,
		families: families,
		links:    links,
		mailer:   mailer,
		log:      log.With().Str("service", "assignment").Logger(),
	}
}

// FindClosestFamilies ranks the geocoded families by distance from the member.
// A member without coordinates gets an empty list. Equal distances keep the
// store's order, which is ascending family ID.
func (s *AssignmentService) FindClosestFamilies(ctx context.Context, memberID int64, limit int) (*ClosestFamilies, error) {
	if limit <= 0 {
		limit = DefaultClosestLimit
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	result := &ClosestFamilies{Member: member, Candidates: []FamilyCandidate{}}
	origin, ok := member.Coordinates()
	if !ok {
		return result, nil
	}

	families, err := s.families.ListWithCoordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}

	candidates := make([]FamilyCandidate, 0, len(families))
	for _, family := range families {
		point, ok := family.Coordinates()
		if !ok {
			continue
		}
		candidates = append(candidates, FamilyCandidate{
			Family:     family,
			DistanceKm: HaversineKm(origin, point),
		})
	}

	slices.SortStableFunc(candidates, func(a, b FamilyCandidate) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result.Candidates = candidates
	return result, nil
}

// AssignMemberToFamily points the member at the family and prepares the
// leader notifications. A previous assignment is overwritten.
func (s *AssignmentService) AssignMemberToFamily(ctx context.Context, familyID, memberID int64) AssignmentResult {
	log := s.log.With().Int64("family_id", familyID).Int64("member_id", memberID).Logger()

	family, err := s.families.GetDetails(ctx, familyID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load family")
		return AssignmentResult{Error: MsgAddMemberFailed}
	}
	if family == nil {
		return AssignmentResult{Error: MsgFamilyNotFound}
	}

	member, err := s.members.SetFamily(ctx, memberID, &familyID)
	if errors.Is(err, repository.ErrNotFound) {
		return AssignmentResult{Error: MsgMemberNotFound}
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to assign member")
		return AssignmentResult{Error: MsgAddMemberFailed}
	}

	if reloaded, err := s.families.GetDetails(ctx, familyID); err != nil {
		log.Warn().Err(err).Msg("failed to reload family after assignment")
	} else if reloaded != nil {
		family = reloaded
	}

	result := AssignmentResult{
		Success:  true,
		Member:   member,
		Pilote:   s.links.LeaderNotification(family.Pilote, &family.Family, member),
		Copilote: s.links.LeaderNotification(family.Copilote, &family.Family, member),
	}

	if s.mailer != nil {
		if err := s.mailer.SendAssignmentEmail(ctx, family, member, s.links.FollowUpURL(member.ID)); err != nil {
			log.Warn().Err(err).Msg("failed to send assignment email")
		}
	}

	log.Info().
		Bool("pilote_link", result.Pilote != nil).
		Bool("copilote_link", result.Copilote != nil).
		Msg("member assigned")
	return result
}

// RemoveMemberFromFamily clears the member's assignment. Removing an
// unassigned member succeeds.
func (s *AssignmentService) RemoveMemberFromFamily(ctx context.Context, memberID int64) AssignmentResult {
	member, err := s.members.SetFamily(ctx, memberID, nil)
	if errors.Is(err, repository.ErrNotFound) {
		return AssignmentResult{Error: MsgMemberNotFound}
	}
	if err != nil {
		s.log.Error().Err(err).Int64("member_id", memberID).Msg("failed to remove member from family")
		return AssignmentResult{Error: MsgRemoveMemberFailed}
	}

	s.log.Info().Int64("member_id", memberID).Msg("member removed from family")
	return AssignmentResult{Success: true, Member: member}
}
