package models

import (
	"time"
)

type EvaluationStatus string

const (
	EvaluationPending    EvaluationStatus = "pending"
	EvaluationInProgress EvaluationStatus = "in_progress"
	EvaluationCompleted  EvaluationStatus = "completed"
)

func (s EvaluationStatus) String() string {
	return string(s)
}

type Evaluation struct {
	ID               string            `json:"id" db:"id"`
	SessionID        string            `json:"session_id" db:"session_id"`
	StudentID        string            `json:"student_id" db:"student_id"`
	JuryID           string            `json:"jury_id" db:"jury_id"`
	RubricID         string            `json:"rubric_id" db:"rubric_id"`
	Status           EvaluationStatus  `json:"status" db:"status"`
	TotalScore       int               `json:"total_score" db:"total_score"`
	MaxScore         int               `json:"max_score" db:"max_score"`
	WrittenFeedback  string            `json:"written_feedback,omitempty" db:"written_feedback"`
	AudioFeedbackURL string            `json:"audio_feedback_url,omitempty" db:"audio_feedback_url"`
	AudioTranscript  string            `json:"audio_transcript,omitempty" db:"audio_transcript"`
	AISummary        string            `json:"ai_summary,omitempty" db:"ai_summary"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
	Scores           []EvaluationScore `json:"scores"`
}

type EvaluationScore struct {
	ID           string    `json:"id" db:"id"`
	EvaluationID string    `json:"evaluation_id" db:"evaluation_id"`
	CriterionID  string    `json:"criterion_id" db:"criterion_id"`
	Score        int       `json:"score" db:"score"`
	Feedback     string    `json:"feedback,omitempty" db:"feedback"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Score returns the selection for a criterion, or nil.
func (e *Evaluation) Score(criterionID string) *EvaluationScore {
	for i := range e.Scores {
		if e.Scores[i].CriterionID == criterionID {
			return &e.Scores[i]
		}
	}
	return nil
}

type EvaluationSummary struct {
	TotalScore     int `json:"total_score"`
	MaxScore       int `json:"max_score"`
	Percentage     int `json:"percentage"`
	SelectedCount  int `json:"selected_count"`
	CriterionCount int `json:"criterion_count"`
}

type EvaluationWithSummary struct {
	Evaluation
	Summary EvaluationSummary `json:"summary"`
}

// StudentResult is what a student sees about one completed evaluation.
type StudentResult struct {
	EvaluationID    string     `json:"evaluation_id"`
	SessionID       string     `json:"session_id"`
	SessionTitle    string     `json:"session_title"`
	JuryName        string     `json:"jury_name"`
	TotalScore      int        `json:"total_score"`
	MaxScore        int        `json:"max_score"`
	Percentage      int        `json:"percentage"`
	WrittenFeedback string     `json:"written_feedback,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
}
