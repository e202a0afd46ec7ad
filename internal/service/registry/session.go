package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/service/scoring"
	"github.com/google/uuid"
)

// transitions lists, per target status, the statuses it may be entered from.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionActive:    {models.SessionScheduled, models.SessionPaused},
	models.SessionPaused:    {models.SessionActive},
	models.SessionCompleted: {models.SessionActive},
	models.SessionCancelled: {models.SessionScheduled, models.SessionActive},
}

type SessionSpec struct {
	Title         string
	Description   string
	SessionDate   time.Time
	StartTime     string
	DurationHours float64
	Location      string
	CoordinatorID string
	MaxStudents   int
	CreatedBy     string
}

// NewSession creates a scheduled session with its check-in code.
func NewSession(spec SessionSpec, now time.Time) (*models.Session, error) {
	var fields []models.FieldError
	if strings.TrimSpace(spec.Title) == "" {
		fields = append(fields, models.FieldError{Field: "title", Error: "required"})
	}
	if spec.MaxStudents < 1 {
		fields = append(fields, models.FieldError{Field: "max_students", Error: "must be at least 1"})
	}
	if spec.DurationHours <= 0 {
		fields = append(fields, models.FieldError{Field: "duration_hours", Error: "must be positive"})
	}
	if spec.CoordinatorID == "" {
		fields = append(fields, models.FieldError{Field: "coordinator_id", Error: "required"})
	}
	if len(fields) > 0 {
		return nil, models.NewValidationError("invalid session", fields...)
	}

	return &models.Session{
		ID:            uuid.New().String(),
		Title:         spec.Title,
		Description:   spec.Description,
		SessionDate:   spec.SessionDate,
		StartTime:     spec.StartTime,
		DurationHours: spec.DurationHours,
		Location:      spec.Location,
		CoordinatorID: spec.CoordinatorID,
		Status:        models.SessionScheduled,
		MaxStudents:   spec.MaxStudents,
		QRCode:        "QR-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12]),
		CreatedBy:     spec.CreatedBy,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func Start(s *models.Session, now time.Time) error {
	if s.Status != models.SessionScheduled {
		return transitionError(s, models.SessionActive)
	}
	return move(s, models.SessionActive, now)
}

func Pause(s *models.Session, now time.Time) error {
	return move(s, models.SessionPaused, now)
}

func Resume(s *models.Session, now time.Time) error {
	if s.Status != models.SessionPaused {
		return transitionError(s, models.SessionActive)
	}
	return move(s, models.SessionActive, now)
}

func Complete(s *models.Session, now time.Time) error {
	return move(s, models.SessionCompleted, now)
}

func Cancel(s *models.Session, now time.Time) error {
	return move(s, models.SessionCancelled, now)
}

// Transition applies the named lifecycle action.
func Transition(s *models.Session, action string, now time.Time) error {
	switch action {
	case "start":
		return Start(s, now)
	case "pause":
		return Pause(s, now)
	case "resume":
		return Resume(s, now)
	case "complete":
		return Complete(s, now)
	case "cancel":
		return Cancel(s, now)
	default:
		return models.NewValidationError("unknown session action",
			models.FieldError{Field: "action", Error: action})
	}
}

func move(s *models.Session, to models.SessionStatus, now time.Time) error {
	for _, from := range transitions[to] {
		if s.Status == from {
			s.Status = to
			s.UpdatedAt = now
			return nil
		}
	}
	return transitionError(s, to)
}

func transitionError(s *models.Session, to models.SessionStatus) error {
	return &models.TransitionError{Entity: "session", From: s.Status.String(), To: to.String()}
}

// AttachRubric binds a rubric to a session that has not started yet.
func AttachRubric(s *models.Session, rubric *models.Rubric, now time.Time) error {
	if s.Status != models.SessionScheduled {
		return fmt.Errorf("%w: rubric can only change while the session is scheduled", models.ErrInvalidTransition)
	}
	if err := scoring.Attachable(rubric); err != nil {
		return err
	}
	s.RubricID = &rubric.ID
	s.UpdatedAt = now
	return nil
}

// Enroll adds a student to the session, respecting max_students.
func Enroll(s *models.Session, student models.Student, now time.Time) (*models.Student, error) {
	if !s.Status.Open() {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, s.Status)
	}
	if len(s.Students)+1 > s.MaxStudents {
		return nil, fmt.Errorf("%w: %d of %d seats taken", models.ErrCapacityExceeded, len(s.Students), s.MaxStudents)
	}
	for _, existing := range s.Students {
		if strings.EqualFold(existing.Email, student.Email) {
			return nil, fmt.Errorf("%w: %s is already enrolled", models.ErrConflict, student.Email)
		}
	}

	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	student.SessionID = s.ID
	student.RegistrationStatus = models.RegistrationRegistered
	student.CreatedAt = now
	student.UpdatedAt = now

	s.Students = append(s.Students, student)
	return &s.Students[len(s.Students)-1], nil
}

// RemoveStudent withdraws an enrollment, freeing its seat.
func RemoveStudent(s *models.Session, studentID string) error {
	for i := range s.Students {
		if s.Students[i].ID == studentID {
			s.Students = append(s.Students[:i], s.Students[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("student %s: %w", studentID, models.ErrNotFound)
}

// InviteJury adds a participant for a jury profile. Inviting the same
// profile again is a no-op and returns the existing participant with
// added=false.
func InviteJury(s *models.Session, profile *models.Profile, now time.Time) (participant *models.Participant, added bool, err error) {
	if profile.Role != models.RoleJury {
		return nil, false, fmt.Errorf("%w: %s has role %s, expected %s", models.ErrRoleMismatch, profile.ID, profile.Role, models.RoleJury)
	}
	if !profile.IsActive {
		return nil, false, models.NewValidationError("jury profile is inactive",
			models.FieldError{Field: "jury_id", Error: "inactive"})
	}
	if p := FindParticipant(s, profile.ID); p != nil {
		return p, false, nil
	}
	if !s.Status.Open() {
		return nil, false, fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, s.Status)
	}

	s.Participants = append(s.Participants, models.Participant{
		ID:        uuid.New().String(),
		SessionID: s.ID,
		JuryID:    profile.ID,
		Status:    models.ParticipantInvited,
		InvitedAt: now,
		Jury:      profile,
	})
	return &s.Participants[len(s.Participants)-1], true, nil
}

func AcceptInvitation(s *models.Session, juryID string, now time.Time) (*models.Participant, error) {
	return respond(s, juryID, models.ParticipantAccepted, now)
}

func DeclineInvitation(s *models.Session, juryID string, now time.Time) (*models.Participant, error) {
	return respond(s, juryID, models.ParticipantDeclined, now)
}

func respond(s *models.Session, juryID string, to models.ParticipantStatus, now time.Time) (*models.Participant, error) {
	p := FindParticipant(s, juryID)
	if p == nil {
		return nil, fmt.Errorf("invitation for %s: %w", juryID, models.ErrNotFound)
	}
	if p.Status != models.ParticipantInvited {
		return nil, &models.TransitionError{Entity: "participant", From: string(p.Status), To: string(to)}
	}

	p.Status = to
	if to == models.ParticipantAccepted {
		p.AcceptedAt = &now
	}
	return p, nil
}

func FindParticipant(s *models.Session, juryID string) *models.Participant {
	for i := range s.Participants {
		if s.Participants[i].JuryID == juryID {
			return &s.Participants[i]
		}
	}
	return nil
}

func FindStudent(s *models.Session, studentID string) *models.Student {
	for i := range s.Students {
		if s.Students[i].ID == studentID {
			return &s.Students[i]
		}
	}
	return nil
}

// CanEvaluate reports whether the jury member may score students in s.
func CanEvaluate(s *models.Session, juryID string) bool {
	p := FindParticipant(s, juryID)
	return p != nil && p.Status != models.ParticipantDeclined
}

// VerifyQR checks a student in by comparing the presented code with the
// session's code.
func VerifyQR(s *models.Session, studentID, code string, now time.Time) (*models.Student, error) {
	student := FindStudent(s, studentID)
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", studentID, models.ErrNotFound)
	}
	if s.QRCode == "" || code != s.QRCode {
		return nil, models.NewValidationError("QR code does not match session",
			models.FieldError{Field: "code", Error: "mismatch"})
	}

	student.QRVerified = true
	student.QRVerifiedAt = &now
	student.RegistrationStatus = models.RegistrationCheckedIn
	student.UpdatedAt = now
	return student, nil
}

// Progress is completed evaluations over enrolled students. It is for display
// only.
func Progress(s *models.Session, completedEvaluations int) models.SessionProgress {
	progress := models.SessionProgress{
		SessionID:            s.ID,
		EnrolledStudents:     len(s.Students),
		CompletedEvaluations: completedEvaluations,
	}
	if progress.EnrolledStudents > 0 {
		progress.Ratio = float64(completedEvaluations) / float64(progress.EnrolledStudents)
	}
	return progress
}
