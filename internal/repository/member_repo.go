package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"impactfamilies/internal/database"
	"impactfamilies/internal/models"
)

const memberColumns = `id, first_name, last_name, email, phone, gender, date_of_birth, registration_date,
	address, parent_name, parent_phone, notes, latitude, longitude, is_contacted, contact_date,
	leader_notes, family_id, created_at, updated_at`

// MemberRepository handles database operations for members
type MemberRepository struct {
	db *database.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// MemberFilter narrows member listings. Zero values mean "no filter".
type MemberFilter struct {
	Query     string
	Gender    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     uint64
	Offset    uint64
}

func (r *MemberRepository) buildQuery(filter MemberFilter, queryType QueryType) sq.SelectBuilder {
	var builder sq.SelectBuilder
	switch queryType {
	case QueryTypeCount:
		builder = psql.Select("COUNT(*)").From("members")
	default:
		builder = psql.Select(memberColumns).From("members")
	}

	if filter.Query != "" {
		like := r.db.Dialect.CaseInsensitiveLike()
		pattern := "%" + filter.Query + "%"
		builder = builder.Where(sq.Or{
			sq.Expr("first_name "+like+" ?", pattern),
			sq.Expr("last_name "+like+" ?", pattern),
			sq.Expr("email "+like+" ?", pattern),
			sq.Expr("phone "+like+" ?", pattern),
		})
	}
	if filter.Gender != "" {
		builder = builder.Where(sq.Eq{"gender": filter.Gender})
	}
	if filter.StartDate != nil {
		builder = builder.Where(sq.GtOrEq{"registration_date": filter.StartDate.UTC()})
	}
	if filter.EndDate != nil {
		builder = builder.Where(sq.LtOrEq{"registration_date": filter.EndDate.UTC()})
	}

	if queryType == QueryTypeSelect {
		builder = builder.OrderBy("registration_date DESC", "id DESC")
		if filter.Limit > 0 {
			builder = builder.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	return builder
}

// List returns one page of members matching the filter together with the total match count
func (r *MemberRepository) List(ctx context.Context, filter MemberFilter) ([]models.Member, int, error) {
	query, args, err := r.buildQuery(filter, QueryTypeCount).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	query, args, err = r.buildQuery(filter, QueryTypeSelect).ToSql()
	if err != nil {
		return nil, 0, err
	}
	members := []models.Member{}
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}

	return members, total, nil
}

// Count returns the number of members matching the filter
func (r *MemberRepository) Count(ctx context.Context, filter MemberFilter) (int, error) {
	query, args, err := r.buildQuery(filter, QueryTypeCount).ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return total, nil
}

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) (*models.Member, error) {
	ts := now()
	query := `
		INSERT INTO members (first_name, last_name, email, phone, gender, date_of_birth, registration_date,
			address, parent_name, parent_phone, notes, latitude, longitude, is_contacted, family_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		member.FirstName, member.LastName, member.Email, member.Phone, member.Gender,
		member.DateOfBirth.UTC(), member.RegistrationDate.UTC(), member.Address,
		member.ParentName, member.ParentPhone, member.Notes, member.Latitude, member.Longitude,
		member.IsContacted, member.FamilyID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	created := *member
	created.ID = id
	created.CreatedAt = ts
	created.UpdatedAt = ts
	return &created, nil
}

// GetByID retrieves a member by ID, or nil if it does not exist
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	member := &models.Member{}
	err := r.db.GetContext(ctx, member, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// GetWithFamily retrieves a member and the name of its family, or nil if it does not exist
func (r *MemberRepository) GetWithFamily(ctx context.Context, id int64) (*models.MemberWithFamily, error) {
	query, args, err := psql.
		Select(prefixColumns("m", memberColumns) + ", f.name AS family_name").
		From("members m").
		LeftJoin("families f ON f.id = m.family_id").
		Where(sq.Eq{"m.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	member := &models.MemberWithFamily{}
	err = r.db.GetContext(ctx, member, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member with family: %w", err)
	}
	return member, nil
}

// Update overwrites a member's registration details. Assignment and follow-up fields are left alone.
func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	query := `
		UPDATE members
		SET first_name = ?, last_name = ?, email = ?, phone = ?, gender = ?, date_of_birth = ?,
			address = ?, parent_name = ?, parent_phone = ?, notes = ?, latitude = ?, longitude = ?,
			updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		member.FirstName, member.LastName, member.Email, member.Phone, member.Gender,
		member.DateOfBirth.UTC(), member.Address, member.ParentName, member.ParentPhone, member.Notes,
		member.Latitude, member.Longitude, now(), member.ID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return checkAffected(result, "update member")
}

// SetFamily points the member at familyID (nil clears the assignment) and returns the updated row.
// The previous value is overwritten unconditionally.
func (r *MemberRepository) SetFamily(ctx context.Context, memberID int64, familyID *int64) (*models.Member, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE members SET family_id = ?, updated_at = ? WHERE id = ?", familyID, now(), memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to set member family: %w", err)
	}
	if err := checkAffected(result, "set member family"); err != nil {
		return nil, err
	}

	member, err := r.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("set member family: %w", ErrNotFound)
	}
	return member, nil
}

// UpdateFollowUp records the leader's contact status and notes
func (r *MemberRepository) UpdateFollowUp(ctx context.Context, memberID int64, isContacted bool, leaderNotes *string, contactDate *time.Time) error {
	query := "UPDATE members SET is_contacted = ?, leader_notes = ?, contact_date = ?, updated_at = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, isContacted, leaderNotes, contactDate, now(), memberID)
	if err != nil {
		return fmt.Errorf("failed to update follow-up: %w", err)
	}
	return checkAffected(result, "update follow-up")
}

// Delete removes a member
func (r *MemberRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return checkAffected(result, "delete member")
}

// ListUnassigned returns members without a family, ordered by last name
func (r *MemberRepository) ListUnassigned(ctx context.Context) ([]models.Member, error) {
	return listUnassignedMembers(ctx, r.db)
}

func listUnassignedMembers(ctx context.Context, db database.DBTX) ([]models.Member, error) {
	members := []models.Member{}
	query := "SELECT " + memberColumns + " FROM members WHERE family_id IS NULL ORDER BY last_name ASC, first_name ASC, id ASC"
	if err := db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("failed to list unassigned members: %w", err)
	}
	return members, nil
}

// ListRegistrations returns members registered in [from, to), either bound optional
func (r *MemberRepository) ListRegistrations(ctx context.Context, from, to *time.Time) ([]models.Member, error) {
	builder := psql.Select(memberColumns).From("members").OrderBy("registration_date ASC", "id ASC")
	if from != nil {
		builder = builder.Where(sq.GtOrEq{"registration_date": from.UTC()})
	}
	if to != nil {
		builder = builder.Where(sq.Lt{"registration_date": to.UTC()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	members := []models.Member{}
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return members, nil
}

// All returns every member ordered by ID
func (r *MemberRepository) All(ctx context.Context) ([]models.Member, error) {
	members := []models.Member{}
	if err := r.db.SelectContext(ctx, &members, "SELECT "+memberColumns+" FROM members ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func listMembersByFamily(ctx context.Context, db database.DBTX, familyIDs []int64) (map[int64][]models.Member, error) {
	byFamily := make(map[int64][]models.Member, len(familyIDs))
	if len(familyIDs) == 0 {
		return byFamily, nil
	}

	query, args, err := psql.Select(memberColumns).
		From("members").
		Where(sq.Eq{"family_id": familyIDs}).
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var members []models.Member
	if err := db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load family members: %w", err)
	}
	for _, member := range members {
		byFamily[*member.FamilyID] = append(byFamily[*member.FamilyID], member)
	}
	return byFamily, nil
}
