package repository

import (
	"context"
	"fmt"
	"time"

	"impactfamilies/internal/database"
	"impactfamilies/internal/models"
)

// restoreOrder lists tables parent first; clearing walks it backwards
var restoreOrder = []string{"leaders", "families", "members"}

// BackupRepository restores exported rows, keeping their IDs
type BackupRepository struct {
	db *database.DB
}

// NewBackupRepository creates a new backup repository
func NewBackupRepository(db *database.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Restore inserts the rows in a single transaction, optionally wiping the
// existing data first, then realigns the ID sequences.
func (r *BackupRepository) Restore(ctx context.Context, leaders []models.Leader, families []models.Family, members []models.Member, clear bool) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			for i := len(restoreOrder) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+restoreOrder[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", restoreOrder[i], err)
				}
			}
		}

		for _, l := range leaders {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO leaders (id, first_name, last_name, email, phone, gender, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Gender, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to restore leader %d: %w", l.ID, err)
			}
		}

		for _, f := range families {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO families (id, name, address, latitude, longitude, pilote_id, copilote_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.ID, f.Name, f.Address, f.Latitude, f.Longitude, f.PiloteID, f.CopiloteID, f.CreatedAt.UTC(), f.UpdatedAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to restore family %d: %w", f.ID, err)
			}
		}

		for _, m := range members {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO members (id, first_name, last_name, email, phone, gender, date_of_birth, registration_date,
					address, parent_name, parent_phone, notes, latitude, longitude, is_contacted, contact_date,
					leader_notes, family_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, m.FirstName, m.LastName, m.Email, m.Phone, m.Gender, m.DateOfBirth.UTC(), m.RegistrationDate.UTC(),
				m.Address, m.ParentName, m.ParentPhone, m.Notes, m.Latitude, m.Longitude, m.IsContacted, utcOrNil(m.ContactDate),
				m.LeaderNotes, m.FamilyID, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to restore member %d: %w", m.ID, err)
			}
		}

		for _, table := range restoreOrder {
			query := tx.GetDialect().ResetSequenceQuery(table)
			if query == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
