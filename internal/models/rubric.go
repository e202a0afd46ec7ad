package models

import (
	"time"
)

type Rubric struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	CreatedBy   string      `json:"created_by,omitempty" db:"created_by"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	UsageCount  int         `json:"usage_count" db:"usage_count"`
	Criteria    []Criterion `json:"criteria"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

type Criterion struct {
	ID          string    `json:"id" db:"id"`
	RubricID    string    `json:"rubric_id" db:"rubric_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	MaxPoints   int       `json:"max_points" db:"max_points"`
	OrderIndex  int       `json:"order_index" db:"order_index"`
	Levels      []Level   `json:"levels"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Level struct {
	ID          string    `json:"id" db:"id"`
	CriterionID string    `json:"criterion_id" db:"criterion_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Points      int       `json:"points" db:"points"`
	OrderIndex  int       `json:"order_index" db:"order_index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CriterionSpec describes a criterion before it is given an identity.
type CriterionSpec struct {
	Name        string      `json:"name" validate:"required,max=255"`
	Description string      `json:"description" validate:"max=1000"`
	Levels      []LevelSpec `json:"levels" validate:"required,min=1,dive"`
}

type LevelSpec struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Points      int    `json:"points" validate:"min=0"`
}

// Criterion returns the criterion with the given id, or nil.
func (r *Rubric) Criterion(id string) *Criterion {
	for i := range r.Criteria {
		if r.Criteria[i].ID == id {
			return &r.Criteria[i]
		}
	}
	return nil
}
