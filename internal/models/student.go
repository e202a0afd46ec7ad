package models

import (
	"time"
)

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCheckedIn  RegistrationStatus = "checked_in"
)

// Student is an enrollment of a person in one session. It may link to a
// global student profile.
type Student struct {
	ID                 string             `json:"id" db:"id"`
	SessionID          string             `json:"session_id" db:"session_id"`
	ProfileID          *string            `json:"profile_id,omitempty" db:"profile_id"`
	FullName           string             `json:"full_name" db:"full_name"`
	Email              string             `json:"email" db:"email"`
	Program            string             `json:"program,omitempty" db:"program"`
	Year               string             `json:"year,omitempty" db:"year"`
	ProjectTitle       string             `json:"project_title,omitempty" db:"project_title"`
	RegistrationStatus RegistrationStatus `json:"registration_status" db:"registration_status"`
	QRVerified         bool               `json:"qr_verified" db:"qr_verified"`
	QRVerifiedAt       *time.Time         `json:"qr_verified_at,omitempty" db:"qr_verified_at"`
	TimeSlotStart      *time.Time         `json:"time_slot_start,omitempty" db:"time_slot_start"`
	TimeSlotEnd        *time.Time         `json:"time_slot_end,omitempty" db:"time_slot_end"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}
