package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"impactfamilies/internal/database"
	"impactfamilies/internal/models"
)

const familyColumns = "id, name, address, latitude, longitude, pilote_id, copilote_id, created_at, updated_at"

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Create inserts a new family
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	ts := now()
	query := `
		INSERT INTO families (name, address, latitude, longitude, pilote_id, copilote_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		family.Name, family.Address, family.Latitude, family.Longitude,
		family.PiloteID, family.CopiloteID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	created := *family
	created.ID = id
	created.CreatedAt = ts
	created.UpdatedAt = ts
	return &created, nil
}

// GetByID retrieves a family by ID, or nil if it does not exist
func (r *FamilyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	family := &models.Family{}
	err := r.db.GetContext(ctx, family, "SELECT "+familyColumns+" FROM families WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetDetails retrieves a family with its leaders and members, or nil if it does not exist
func (r *FamilyRepository) GetDetails(ctx context.Context, id int64) (*models.FamilyDetails, error) {
	family, err := r.GetByID(ctx, id)
	if err != nil || family == nil {
		return nil, err
	}

	details, err := loadDetails(ctx, r.db, []models.Family{*family})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListDetails returns every family with leaders and members, ordered by name
func (r *FamilyRepository) ListDetails(ctx context.Context) ([]models.FamilyDetails, error) {
	families := []models.Family{}
	query := "SELECT " + familyColumns + " FROM families ORDER BY name ASC, id ASC"
	if err := r.db.SelectContext(ctx, &families, query); err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return loadDetails(ctx, r.db, families)
}

// ListWithCoordinates returns the geocoded families with leaders and members, ordered by ID
func (r *FamilyRepository) ListWithCoordinates(ctx context.Context) ([]models.FamilyDetails, error) {
	query, args, err := psql.Select(familyColumns).
		From("families").
		Where(sq.And{sq.NotEq{"latitude": nil}, sq.NotEq{"longitude": nil}}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	families := []models.Family{}
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list geocoded families: %w", err)
	}
	return loadDetails(ctx, r.db, families)
}

// All returns every family row ordered by ID
func (r *FamilyRepository) All(ctx context.Context) ([]models.Family, error) {
	families := []models.Family{}
	if err := r.db.SelectContext(ctx, &families, "SELECT "+familyColumns+" FROM families ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return families, nil
}

// Update overwrites a family's name, address, coordinates and leaders
func (r *FamilyRepository) Update(ctx context.Context, family *models.Family) error {
	query := `
		UPDATE families
		SET name = ?, address = ?, latitude = ?, longitude = ?, pilote_id = ?, copilote_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		family.Name, family.Address, family.Latitude, family.Longitude,
		family.PiloteID, family.CopiloteID, now(), family.ID)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return checkAffected(result, "update family")
}

// Delete unassigns the family's members and removes the family
func (r *FamilyRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE members SET family_id = NULL, updated_at = ? WHERE family_id = ?", now(), id); err != nil {
			return fmt.Errorf("failed to unassign members: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM families WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		}
		return checkAffected(result, "delete family")
	})
}

// loadDetails attaches leaders and members to families with one query per table
func loadDetails(ctx context.Context, db database.DBTX, families []models.Family) ([]models.FamilyDetails, error) {
	familyIDs := make([]int64, 0, len(families))
	leaderIDs := make([]int64, 0, 2*len(families))
	for _, family := range families {
		familyIDs = append(familyIDs, family.ID)
		if family.PiloteID != nil {
			leaderIDs = append(leaderIDs, *family.PiloteID)
		}
		if family.CopiloteID != nil {
			leaderIDs = append(leaderIDs, *family.CopiloteID)
		}
	}

	leaders, err := listLeadersByIDs(ctx, db, leaderIDs)
	if err != nil {
		return nil, err
	}
	members, err := listMembersByFamily(ctx, db, familyIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.FamilyDetails, 0, len(families))
	for _, family := range families {
		d := models.FamilyDetails{Family: family, Members: members[family.ID]}
		if d.Members == nil {
			d.Members = []models.Member{}
		}
		d.Pilote = leaderRef(leaders, family.PiloteID)
		d.Copilote = leaderRef(leaders, family.CopiloteID)
		details = append(details, d)
	}
	return details, nil
}

func leaderRef(leaders map[int64]models.Leader, id *int64) *models.Leader {
	if id == nil {
		return nil
	}
	leader, ok := leaders[*id]
	if !ok {
		return nil
	}
	return &leader
}
