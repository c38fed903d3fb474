package handlers

import (
	"time"

	"impactfamilies/internal/service"
)

type memberRequest struct {
	FirstName   string   `json:"first_name" validate:"required,max=100"`
	LastName    string   `json:"last_name" validate:"required,max=100"`
	Email       string   `json:"email" validate:"omitempty,email,max=255"`
	Phone       string   `json:"phone" validate:"max=30"`
	Gender      string   `json:"gender" validate:"max=20"`
	DateOfBirth string   `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Address     string   `json:"address" validate:"max=255"`
	ParentName  *string  `json:"parent_name" validate:"omitempty,max=100"`
	ParentPhone *string  `json:"parent_phone" validate:"omitempty,max=30"`
	Notes       *string  `json:"notes" validate:"omitempty,max=2000"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (req memberRequest) toInput() service.MemberInput {
	input := service.MemberInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Gender:      req.Gender,
		Address:     req.Address,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
		Notes:       req.Notes,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	// already checked by the datetime rule
	if dob, err := time.Parse(dateLayout, req.DateOfBirth); err == nil {
		input.DateOfBirth = &dob
	}
	return input
}

type familyRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Address    string   `json:"address" validate:"max=255"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	PiloteID   *int64   `json:"pilote_id" validate:"omitempty,gt=0"`
	CopiloteID *int64   `json:"copilote_id" validate:"omitempty,gt=0"`
}

func (req familyRequest) toInput() service.FamilyInput {
	return service.FamilyInput{
		Name:       req.Name,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		PiloteID:   req.PiloteID,
		CopiloteID: req.CopiloteID,
	}
}

type leaderRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Phone     string `json:"phone" validate:"max=30"`
	Gender    string `json:"gender" validate:"max=20"`
}

func (req leaderRequest) toInput() service.LeaderInput {
	return service.LeaderInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Gender:    req.Gender,
	}
}

type assignMemberRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
}

type followUpRequest struct {
	IsContacted bool   `json:"is_contacted"`
	LeaderNotes string `json:"leader_notes" validate:"max=2000"`
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}
