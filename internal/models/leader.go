package models

import "time"

// Leader is a volunteer who can be the pilote or copilote of families
type Leader struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Gender    string    `db:"gender" json:"gender"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns "First Last"
func (l *Leader) FullName() string {
	return l.FirstName + " " + l.LastName
}
