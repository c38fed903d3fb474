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

const leaderColumns = "id, first_name, last_name, email, phone, gender, created_at, updated_at"

// LeaderRepository handles database operations for leaders
type LeaderRepository struct {
	db *database.DB
}

// NewLeaderRepository creates a new leader repository
func NewLeaderRepository(db *database.DB) *LeaderRepository {
	return &LeaderRepository{db: db}
}

// Create inserts a new leader
func (r *LeaderRepository) Create(ctx context.Context, leader *models.Leader) (*models.Leader, error) {
	ts := now()
	query := `
		INSERT INTO leaders (first_name, last_name, email, phone, gender, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		leader.FirstName, leader.LastName, leader.Email, leader.Phone, leader.Gender, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create leader: %w", err)
	}

	created := *leader
	created.ID = id
	created.CreatedAt = ts
	created.UpdatedAt = ts
	return &created, nil
}

// GetByID retrieves a leader by ID, or nil if it does not exist
func (r *LeaderRepository) GetByID(ctx context.Context, id int64) (*models.Leader, error) {
	leader := &models.Leader{}
	err := r.db.GetContext(ctx, leader, "SELECT "+leaderColumns+" FROM leaders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leader: %w", err)
	}
	return leader, nil
}

// List returns all leaders ordered by last name
func (r *LeaderRepository) List(ctx context.Context) ([]models.Leader, error) {
	leaders := []models.Leader{}
	query := "SELECT " + leaderColumns + " FROM leaders ORDER BY last_name ASC, first_name ASC, id ASC"
	if err := r.db.SelectContext(ctx, &leaders, query); err != nil {
		return nil, fmt.Errorf("failed to list leaders: %w", err)
	}
	return leaders, nil
}

// ListByIDs returns the leaders with the given IDs, keyed by ID
func (r *LeaderRepository) ListByIDs(ctx context.Context, ids []int64) (map[int64]models.Leader, error) {
	return listLeadersByIDs(ctx, r.db, ids)
}

func listLeadersByIDs(ctx context.Context, db database.DBTX, ids []int64) (map[int64]models.Leader, error) {
	byID := make(map[int64]models.Leader, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	query, args, err := psql.Select(leaderColumns).From("leaders").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}

	var leaders []models.Leader
	if err := db.SelectContext(ctx, &leaders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load leaders: %w", err)
	}
	for _, leader := range leaders {
		byID[leader.ID] = leader
	}
	return byID, nil
}

// Update overwrites a leader's contact details
func (r *LeaderRepository) Update(ctx context.Context, leader *models.Leader) error {
	query := `
		UPDATE leaders
		SET first_name = ?, last_name = ?, email = ?, phone = ?, gender = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		leader.FirstName, leader.LastName, leader.Email, leader.Phone, leader.Gender, now(), leader.ID)
	if err != nil {
		return fmt.Errorf("failed to update leader: %w", err)
	}
	return checkAffected(result, "update leader")
}

// Delete removes a leader after detaching it from every family it pilots or co-pilots
func (r *LeaderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		ts := now()
		if _, err := tx.ExecContext(ctx, "UPDATE families SET pilote_id = NULL, updated_at = ? WHERE pilote_id = ?", ts, id); err != nil {
			return fmt.Errorf("failed to detach pilote: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE families SET copilote_id = NULL, updated_at = ? WHERE copilote_id = ?", ts, id); err != nil {
			return fmt.Errorf("failed to detach copilote: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM leaders WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete leader: %w", err)
		}
		return checkAffected(result, "delete leader")
	})
}
