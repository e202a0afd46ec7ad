package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetAll(ctx context.Context, filter models.SessionFilter, limit, offset int) ([]models.Session, int, error)
	Update(ctx context.Context, session *models.Session) error
	SoftDelete(ctx context.Context, id string) error

	AddStudent(ctx context.Context, student *models.Student) error
	UpdateStudent(ctx context.Context, student *models.Student) error
	RemoveStudent(ctx context.Context, sessionID, studentID string) error

	AddParticipant(ctx context.Context, participant *models.Participant) error
	UpdateParticipant(ctx context.Context, participant *models.Participant) error
}

type sessionRepository struct {
	*PostgresRepository
}

func NewSessionRepository(db *sql.DB, logger zerolog.Logger) SessionRepository {
	return &sessionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const sessionColumns = `id, title, description, session_date, start_time, duration_hours, location,
	coordinator_id, rubric_id, status, max_students, qr_code, created_by, is_active, created_at, updated_at`

// Create stores the session together with the jury members invited at creation.
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sessions (` + sessionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		_, err := tx.ExecContext(ctx, query,
			session.ID,
			session.Title,
			session.Description,
			session.SessionDate,
			session.StartTime,
			session.DurationHours,
			session.Location,
			session.CoordinatorID,
			nullString(session.RubricID),
			session.Status,
			session.MaxStudents,
			session.QRCode,
			nullString(&session.CreatedBy),
			session.IsActive,
			session.CreatedAt,
			session.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for i := range session.Participants {
			if err := insertParticipant(ctx, tx, &session.Participants[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanSession(row rowScanner) (*models.Session, error) {
	s := &models.Session{}
	var rubricID, createdBy sql.NullString
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.SessionDate,
		&s.StartTime,
		&s.DurationHours,
		&s.Location,
		&s.CoordinatorID,
		&rubricID,
		&s.Status,
		&s.MaxStudents,
		&s.QRCode,
		&createdBy,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	s.RubricID = stringPtr(rubricID)
	s.CreatedBy = createdBy.String
	return s, err
}

// GetByID loads the session with its participants and enrolled students.
// Soft-deleted sessions are reported as missing.
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND is_active`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session.Participants, err = r.participants(ctx, session.ID); err != nil {
		return nil, err
	}
	if session.Students, err = r.students(ctx, session.ID); err != nil {
		return nil, err
	}

	return session, nil
}

func (r *sessionRepository) participants(ctx context.Context, sessionID string) ([]models.Participant, error) {
	query := `
		SELECT
			sp.id, sp.session_id, sp.jury_id, sp.status, sp.invited_at, sp.accepted_at,
			p.id, p.email, p.full_name, p.role, p.department, p.expertise, p.phone, p.password_hash,
			p.is_active, p.created_at, p.updated_at
		FROM session_participants sp
		JOIN profiles p ON p.id = sp.jury_id
		WHERE sp.session_id = $1
		ORDER BY sp.invited_at
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		var acceptedAt sql.NullTime
		jury := &models.Profile{}
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.JuryID, &p.Status, &p.InvitedAt, &acceptedAt,
			&jury.ID, &jury.Email, &jury.FullName, &jury.Role, &jury.Department, &jury.Expertise,
			&jury.Phone, &jury.PasswordHash, &jury.IsActive, &jury.CreatedAt, &jury.UpdatedAt,
		); err != nil {
			return nil, err
		}
		p.AcceptedAt = timePtr(acceptedAt)
		p.Jury = jury
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

const studentColumns = `id, session_id, profile_id, full_name, email, program, year, project_title,
	registration_status, qr_verified, qr_verified_at, time_slot_start, time_slot_end, created_at, updated_at`

func (r *sessionRepository) students(ctx context.Context, sessionID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE session_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var st models.Student
		var profileID sql.NullString
		var verifiedAt, slotStart, slotEnd sql.NullTime
		if err := rows.Scan(
			&st.ID, &st.SessionID, &profileID, &st.FullName, &st.Email, &st.Program, &st.Year,
			&st.ProjectTitle, &st.RegistrationStatus, &st.QRVerified, &verifiedAt, &slotStart, &slotEnd,
			&st.CreatedAt, &st.UpdatedAt,
		); err != nil {
			return nil, err
		}
		st.ProfileID = stringPtr(profileID)
		st.QRVerifiedAt = timePtr(verifiedAt)
		st.TimeSlotStart = timePtr(slotStart)
		st.TimeSlotEnd = timePtr(slotEnd)
		students = append(students, st)
	}

	return students, rows.Err()
}

// GetAll lists active sessions ordered by date. Participants and students are
// not loaded.
func (r *sessionRepository) GetAll(ctx context.Context, filter models.SessionFilter, limit, offset int) ([]models.Session, int, error) {
	conditions := []string{"is_active"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CoordinatorID != "" {
		args = append(args, filter.CoordinatorID)
		conditions = append(conditions, fmt.Sprintf("coordinator_id = $%d", len(args)))
	}
	if filter.JuryID != "" {
		args = append(args, filter.JuryID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM session_participants sp WHERE sp.session_id = sessions.id AND sp.jury_id = $%d)", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where +
		fmt.Sprintf(" ORDER BY session_date, start_time LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}

	return sessions, total, rows.Err()
}

func (r *sessionRepository) Update(ctx context.Context, session *models.Session) error {
	query := `
		UPDATE sessions
		SET title = $1, description = $2, session_date = $3, start_time = $4, duration_hours = $5,
			location = $6, rubric_id = $7, status = $8, max_students = $9, updated_at = $10
		WHERE id = $11
	`

	_, err := r.db.ExecContext(ctx, query,
		session.Title,
		session.Description,
		session.SessionDate,
		session.StartTime,
		session.DurationHours,
		session.Location,
		nullString(session.RubricID),
		session.Status,
		session.MaxStudents,
		session.UpdatedAt,
		session.ID,
	)

	return err
}

func (r *sessionRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE sessions SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

// AddStudent inserts the enrollment only while the session has a free seat.
// The session row stays locked until commit, so concurrent enrollments
// serialize on it and cannot overfill the session.
func (r *sessionRepository) AddStudent(ctx context.Context, student *models.Student) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var maxStudents int
		err := tx.QueryRowContext(ctx,
			`SELECT max_students FROM sessions WHERE id = $1 FOR UPDATE`,
			student.SessionID,
		).Scan(&maxStudents)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}

		var enrolled int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM students WHERE session_id = $1`,
			student.SessionID,
		).Scan(&enrolled); err != nil {
			return err
		}
		if enrolled >= maxStudents {
			return models.ErrCapacityExceeded
		}

		query := `
			INSERT INTO students (` + studentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err = tx.ExecContext(ctx, query,
			student.ID,
			student.SessionID,
			nullString(student.ProfileID),
			student.FullName,
			student.Email,
			student.Program,
			student.Year,
			student.ProjectTitle,
			student.RegistrationStatus,
			student.QRVerified,
			student.QRVerifiedAt,
			student.TimeSlotStart,
			student.TimeSlotEnd,
			student.CreatedAt,
			student.UpdatedAt,
		)
		return err
	})
}

func (r *sessionRepository) UpdateStudent(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET registration_status = $1, qr_verified = $2, qr_verified_at = $3,
			time_slot_start = $4, time_slot_end = $5, updated_at = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(ctx, query,
		student.RegistrationStatus,
		student.QRVerified,
		student.QRVerifiedAt,
		student.TimeSlotStart,
		student.TimeSlotEnd,
		student.UpdatedAt,
		student.ID,
	)

	return err
}

func (r *sessionRepository) RemoveStudent(ctx context.Context, sessionID, studentID string) error {
	query := `DELETE FROM students WHERE id = $1 AND session_id = $2`
	_, err := r.db.ExecContext(ctx, query, studentID, sessionID)
	return err
}

func insertParticipant(ctx context.Context, tx *sql.Tx, p *models.Participant) error {
	query := `
		INSERT INTO session_participants (id, session_id, jury_id, status, invited_at, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, jury_id) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, p.ID, p.SessionID, p.JuryID, p.Status, p.InvitedAt, p.AcceptedAt)
	return err
}

func (r *sessionRepository) AddParticipant(ctx context.Context, participant *models.Participant) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertParticipant(ctx, tx, participant)
	})
}

func (r *sessionRepository) UpdateParticipant(ctx context.Context, participant *models.Participant) error {
	query := `UPDATE session_participants SET status = $1, accepted_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, participant.Status, participant.AcceptedAt, participant.ID)
	return err
}
