package models

import "time"

// Member is a person registered into the ministry
type Member struct {
	ID               int64      `db:"id" json:"id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	Gender           string     `db:"gender" json:"gender"`
	DateOfBirth      time.Time  `db:"date_of_birth" json:"date_of_birth"`
	RegistrationDate time.Time  `db:"registration_date" json:"registration_date"`
	Address          string     `db:"address" json:"address"`
	ParentName       *string    `db:"parent_name" json:"parent_name"`
	ParentPhone      *string    `db:"parent_phone" json:"parent_phone"`
	Notes            *string    `db:"notes" json:"notes"`
	Latitude         *float64   `db:"latitude" json:"latitude"`
	Longitude        *float64   `db:"longitude" json:"longitude"`
	IsContacted      bool       `db:"is_contacted" json:"is_contacted"`
	ContactDate      *time.Time `db:"contact_date" json:"contact_date"`
	LeaderNotes      *string    `db:"leader_notes" json:"leader_notes"`
	FamilyID         *int64     `db:"family_id" json:"family_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Coordinates returns the member location if the address was geocoded
func (m *Member) Coordinates() (Coordinates, bool) {
	return coordinatesFrom(m.Latitude, m.Longitude)
}

// IsAssigned reports whether the member belongs to a family
func (m *Member) IsAssigned() bool {
	return m.FamilyID != nil
}

// AgeAt returns the member's age in whole years at the given instant
func (m *Member) AgeAt(now time.Time) int {
	years := now.Year() - m.DateOfBirth.Year()
	if now.Month() < m.DateOfBirth.Month() ||
		(now.Month() == m.DateOfBirth.Month() && now.Day() < m.DateOfBirth.Day()) {
		years--
	}
	return years
}

// MemberWithFamily is a member plus the name of the family it belongs to
type MemberWithFamily struct {
	Member
	FamilyName *string `db:"family_name" json:"family_name"`
}
