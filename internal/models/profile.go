package models

import (
	"time"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleJury        Role = "jury"
	RoleStudent     Role = "student"
)

func (r Role) String() string {
	return string(r)
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleCoordinator, RoleJury, RoleStudent:
		return true
	default:
		return false
	}
}

type Profile struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	Department   string    `json:"department,omitempty" db:"department"`
	Expertise    string    `json:"expertise,omitempty" db:"expertise"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
