package models

import (
	"time"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) String() string {
	return string(s)
}

func IsValidSessionStatus(status string) bool {
	switch SessionStatus(status) {
	case SessionScheduled, SessionActive, SessionPaused, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// Open reports whether the session can still change, i.e. it is neither
// completed nor cancelled.
func (s SessionStatus) Open() bool {
	return s != SessionCompleted && s != SessionCancelled
}

type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
)

type Session struct {
	ID            string        `json:"id" db:"id"`
	Title         string        `json:"title" db:"title"`
	Description   string        `json:"description,omitempty" db:"description"`
	SessionDate   time.Time     `json:"session_date" db:"session_date"`
	StartTime     string        `json:"start_time" db:"start_time"`
	DurationHours float64       `json:"duration_hours" db:"duration_hours"`
	Location      string        `json:"location" db:"location"`
	CoordinatorID string        `json:"coordinator_id" db:"coordinator_id"`
	RubricID      *string       `json:"rubric_id,omitempty" db:"rubric_id"`
	Status        SessionStatus `json:"status" db:"status"`
	MaxStudents   int           `json:"max_students" db:"max_students"`
	QRCode        string        `json:"qr_code,omitempty" db:"qr_code"`
	CreatedBy     string        `json:"created_by,omitempty" db:"created_by"`
	IsActive      bool          `json:"is_active" db:"is_active"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`

	Participants []Participant `json:"participants"`
	Students     []Student     `json:"students"`
}

// SessionDetails is a session joined with the rows it references.
type SessionDetails struct {
	Session
	Rubric      *Rubric  `json:"rubric,omitempty"`
	Coordinator *Profile `json:"coordinator,omitempty"`
}

type Participant struct {
	ID         string            `json:"id" db:"id"`
	SessionID  string            `json:"session_id" db:"session_id"`
	JuryID     string            `json:"jury_id" db:"jury_id"`
	Status     ParticipantStatus `json:"status" db:"status"`
	InvitedAt  time.Time         `json:"invited_at" db:"invited_at"`
	AcceptedAt *time.Time        `json:"accepted_at,omitempty" db:"accepted_at"`
	Jury       *Profile          `json:"jury,omitempty"`
}

// SessionProgress is derived from evaluations; it never gates transitions.
type SessionProgress struct {
	SessionID            string  `json:"session_id"`
	EnrolledStudents     int     `json:"enrolled_students"`
	CompletedEvaluations int     `json:"completed_evaluations"`
	Ratio                float64 `json:"ratio"`
}
