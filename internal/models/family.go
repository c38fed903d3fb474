package models

import "time"

// Family is a small group led by a pilote and a copilote
type Family struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	Latitude   *float64  `db:"latitude" json:"latitude"`
	Longitude  *float64  `db:"longitude" json:"longitude"`
	PiloteID   *int64    `db:"pilote_id" json:"pilote_id"`
	CopiloteID *int64    `db:"copilote_id" json:"copilote_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Coordinates returns the family location if it was geocoded
func (f *Family) Coordinates() (Coordinates, bool) {
	return coordinatesFrom(f.Latitude, f.Longitude)
}

// FamilyDetails combines a family with its leaders and members
type FamilyDetails struct {
	Family
	Pilote   *Leader  `json:"pilote"`
	Copilote *Leader  `json:"copilote"`
	Members  []Member `json:"members"`
}

// MemberCount returns the family headcount
func (f *FamilyDetails) MemberCount() int {
	return len(f.Members)
}
