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

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrMemberNameRequired = errors.New("member first and last name are required")
	ErrBirthDateRequired  = errors.New("member date of birth is required")
)

// MemberInput is the editable part of a member registration
type MemberInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Gender      string
	DateOfBirth *time.Time
	Address     string
	ParentName  *string
	ParentPhone *string
	Notes       *string
	Latitude    *float64
	Longitude   *float64
}

// MemberFilter selects one page of members
type MemberFilter struct {
	Page      int
	PageSize  int
	Query     string
	Gender    string
	StartDate *time.Time
	EndDate   *time.Time
}

// PageMetadata describes where a page sits in the full result
type PageMetadata struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

// MemberPage is one page of members
type MemberPage struct {
	Members  []models.Member `json:"members"`
	Metadata PageMetadata    `json:"metadata"`
}

// MemberService handles member registration and browsing
type MemberService struct {
	memberRepo *repository.MemberRepository
	now        func() time.Time
	log        zerolog.Logger
}

// NewMemberService creates a new member service
func NewMemberService(memberRepo *repository.MemberRepository, log zerolog.Logger) *MemberService {
	return &MemberService{
		memberRepo: memberRepo,
		now:        time.Now,
		log:        log.With().Str("service", "member").Logger(),
	}
}

// Register creates an unassigned, not yet contacted member registered now
func (s *MemberService) Register(ctx context.Context, input MemberInput) (*models.Member, error) {
	if input.DateOfBirth == nil {
		return nil, ErrBirthDateRequired
	}
	member, err := buildMember(input)
	if err != nil {
		return nil, err
	}
	member.DateOfBirth = *input.DateOfBirth
	member.RegistrationDate = s.now().UTC().Truncate(time.Second)

	created, err := s.memberRepo.Create(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to register member: %w", err)
	}

	s.log.Info().Int64("member_id", created.ID).Msg("member registered")
	return created, nil
}

// Get returns a member with its family name
func (s *MemberService) Get(ctx context.Context, id int64) (*models.MemberWithFamily, error) {
	member, err := s.memberRepo.GetWithFamily(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// Update overwrites a member's registration details. The date of birth is
// kept when the input leaves it empty.
func (s *MemberService) Update(ctx context.Context, id int64, input MemberInput) (*models.Member, error) {
	existing, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if existing == nil {
		return nil, ErrMemberNotFound
	}

	member, err := buildMember(input)
	if err != nil {
		return nil, err
	}
	member.ID = id
	member.DateOfBirth = existing.DateOfBirth
	if input.DateOfBirth != nil {
		member.DateOfBirth = *input.DateOfBirth
	}

	if err := s.memberRepo.Update(ctx, member); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	updated, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if updated == nil {
		return nil, ErrMemberNotFound
	}
	return updated, nil
}

// Delete removes a member
func (s *MemberService) Delete(ctx context.Context, id int64) error {
	if err := s.memberRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to delete member: %w", err)
	}

	s.log.Info().Int64("member_id", id).Msg("member deleted")
	return nil
}

// List returns one page of members, newest registrations first
func (s *MemberService) List(ctx context.Context, filter MemberFilter) (*MemberPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	repoFilter := repository.MemberFilter{
		Query:     strings.TrimSpace(filter.Query),
		StartDate: filter.StartDate,
		Limit:     uint64(pageSize),
		Offset:    uint64((page - 1) * pageSize),
	}
	if gender := strings.TrimSpace(filter.Gender); gender != "" && gender != "all" {
		repoFilter.Gender = gender
	}
	if filter.EndDate != nil {
		end := endOfDay(*filter.EndDate)
		repoFilter.EndDate = &end
	}

	members, total, err := s.memberRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &MemberPage{
		Members: members,
		Metadata: PageMetadata{
			Total:       total,
			Page:        page,
			PageSize:    pageSize,
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

// Available returns the members that belong to no family
func (s *MemberService) Available(ctx context.Context) ([]models.Member, error) {
	members, err := s.memberRepo.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available members: %w", err)
	}
	return members, nil
}

func buildMember(input MemberInput) (*models.Member, error) {
	member := &models.Member{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       strings.TrimSpace(input.Email),
		Phone:       strings.TrimSpace(input.Phone),
		Gender:      strings.TrimSpace(input.Gender),
		Address:     strings.TrimSpace(input.Address),
		ParentName:  input.ParentName,
		ParentPhone: input.ParentPhone,
		Notes:       input.Notes,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	}
	if member.FirstName == "" || member.LastName == "" {
		return nil, ErrMemberNameRequired
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}
	return member, nil
}

// endOfDay is the last second of t's calendar day in UTC
func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
