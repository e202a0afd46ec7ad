package models

import "time"

// Data Transfer Objects

type SignUpRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FullName   string `json:"full_name" validate:"required,min=2,max=255"`
	Role       string `json:"role" validate:"required,oneof=admin coordinator jury student"`
	Department string `json:"department" validate:"max=255"`
	Expertise  string `json:"expertise" validate:"max=255"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Profile     *Profile  `json:"profile"`
}

type UpdateProfileRequest struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=255"`
	Department string `json:"department" validate:"max=255"`
	Expertise  string `json:"expertise" validate:"max=255"`
	Phone      string `json:"phone" validate:"max=50"`
}

type CreateRubricRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=255"`
	Description string          `json:"description" validate:"max=1000"`
	Criteria    []CriterionSpec `json:"criteria" validate:"required,min=1,dive"`
}

type UpdateRubricRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type CreateSessionRequest struct {
	Title         string   `json:"title" validate:"required,min=3,max=255"`
	Description   string   `json:"description" validate:"max=1000"`
	SessionDate   string   `json:"session_date" validate:"required,datetime=2006-01-02"`
	StartTime     string   `json:"start_time" validate:"required,datetime=15:04"`
	DurationHours float64  `json:"duration_hours" validate:"gt=0,lte=24"`
	Location      string   `json:"location" validate:"required,max=255"`
	CoordinatorID string   `json:"coordinator_id" validate:"omitempty,uuid"`
	RubricID      string   `json:"rubric_id" validate:"omitempty,uuid"`
	MaxStudents   int      `json:"max_students" validate:"required,min=1,max=1000"`
	JuryMembers   []string `json:"jury_members" validate:"omitempty,dive,uuid"`
}

type AttachRubricRequest struct {
	RubricID string `json:"rubric_id" validate:"required,uuid"`
}

type EnrollStudentRequest struct {
	FullName      string     `json:"full_name" validate:"required,min=2,max=255"`
	Email         string     `json:"email" validate:"required,email,max=255"`
	ProfileID     string     `json:"profile_id" validate:"omitempty,uuid"`
	Program       string     `json:"program" validate:"max=255"`
	Year          string     `json:"year" validate:"max=50"`
	ProjectTitle  string     `json:"project_title" validate:"max=255"`
	TimeSlotStart *time.Time `json:"time_slot_start"`
	TimeSlotEnd   *time.Time `json:"time_slot_end"`
}

type InviteJuryRequest struct {
	JuryID string `json:"jury_id" validate:"required,uuid"`
}

type VerifyQRRequest struct {
	Code string `json:"code" validate:"required"`
}

type OpenEvaluationRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	StudentID string `json:"student_id" validate:"required,uuid"`
}

type SelectLevelRequest struct {
	CriterionID string `json:"criterion_id" validate:"required,uuid"`
	Points      int    `json:"points" validate:"min=0"`
	Feedback    string `json:"feedback" validate:"max=2000"`
}

type UpdateFeedbackRequest struct {
	WrittenFeedback string `json:"written_feedback" validate:"max=10000"`
	AudioTranscript string `json:"audio_transcript" validate:"max=50000"`
}

type SessionFilter struct {
	Status        string
	CoordinatorID string
	JuryID        string
}

type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
