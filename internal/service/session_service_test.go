package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/edujury/internal/models"
)

func TestCreateSession(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	rubric := e.createRubric(t)
	session := e.createSession(t, rubric.ID, 10, e.jury.ID, e.otherJury.ID)

	assert.Equal(t, models.SessionScheduled, session.Status)
	assert.Equal(t, e.coordinator.ID, session.CoordinatorID)
	require.NotNil(t, session.RubricID)
	assert.Equal(t, rubric.ID, *session.RubricID)
	assert.NotEmpty(t, session.QRCode)
	assert.Len(t, session.Participants, 2)
	assert.Equal(t, models.ParticipantInvited, session.Participants[0].Status)
	require.NotNil(t, session.Coordinator)
	assert.Equal(t, e.coordinator.Email, session.Coordinator.Email)
}

func TestCreateSessionCoordinatorRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	req := func(coordinatorID string) *models.CreateSessionRequest {
		return &models.CreateSessionRequest{
			Title:         "Thesis Defense",
			SessionDate:   "2026-04-02",
			StartTime:     "10:00",
			DurationHours: 2,
			Location:      "Hall A",
			CoordinatorID: coordinatorID,
			MaxStudents:   5,
		}
	}

	_, err := e.sessionSvc.CreateSession(ctx, e.actor(t, e.coordinator), req(e.admin.ID))
	assert.ErrorIs(t, err, models.ErrForbidden)

	session, err := e.sessionSvc.CreateSession(ctx, e.actor(t, e.admin), req(e.coordinator.ID))
	require.NoError(t, err)
	assert.Equal(t, e.coordinator.ID, session.CoordinatorID)
	assert.Equal(t, e.admin.ID, session.CreatedBy)

	_, err = e.sessionSvc.CreateSession(ctx, e.actor(t, e.admin), req(e.jury.ID))
	assert.ErrorIs(t, err, models.ErrRoleMismatch)

	bad := req("")
	bad.SessionDate = "14/03/2026"
	_, err = e.sessionSvc.CreateSession(ctx, e.actor(t, e.coordinator), bad)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateSessionRejectsNonJuryMembers(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	_, err := e.sessionSvc.CreateSession(context.Background(), e.actor(t, e.coordinator), &models.CreateSessionRequest{
		Title:         "Review",
		SessionDate:   "2026-03-14",
		StartTime:     "09:00",
		DurationHours: 1,
		Location:      "Lab",
		MaxStudents:   3,
		JuryMembers:   []string{e.student.ID},
	})
	assert.ErrorIs(t, err, models.ErrRoleMismatch)
	assert.Empty(t, e.sessions.sessions)
}

func TestSessionLifecyclePublishesEvents(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	coord := e.actor(t, e.coordinator)

	for _, step := range []struct {
		action string
		want   models.SessionStatus
	}{
		{"start", models.SessionActive},
		{"pause", models.SessionPaused},
		{"resume", models.SessionActive},
		{"complete", models.SessionCompleted},
	} {
		updated, err := e.sessionSvc.ChangeStatus(ctx, coord, session.ID, step.action)
		require.NoError(t, err, step.action)
		assert.Equal(t, step.want, updated.Status)
	}

	_, err := e.sessionSvc.ChangeStatus(ctx, coord, session.ID, "start")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.Len(t, e.publisher.statuses, 4)
	assert.Equal(t, "scheduled", e.publisher.statuses[0].From)
	assert.Equal(t, "active", e.publisher.statuses[0].To)
	assert.Equal(t, e.coordinator.ID, e.publisher.statuses[0].ActorID)
	assert.Equal(t, testNow.Unix(), e.publisher.statuses[0].Timestamp)
	assert.Equal(t, "completed", e.publisher.statuses[3].To)
}

func TestChangeStatusSurvivesPublisherFailure(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	e.publisher.fail = errBackend
	session := e.createSession(t, "", 5)

	updated, err := e.sessionSvc.ChangeStatus(context.Background(), e.actor(t, e.coordinator), session.ID, "cancel")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, updated.Status)

	stored, err := e.sessionSvc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, stored.Status)
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	other := newProfile(models.RoleCoordinator, "other@example.com")
	require.NoError(t, e.profiles.Create(ctx, &other))

	_, err := e.sessionSvc.ChangeStatus(ctx, e.actor(t, other), session.ID, "start")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = e.sessionSvc.ChangeStatus(ctx, e.actor(t, e.admin), session.ID, "start")
	assert.NoError(t, err)
}

func TestEnrollStudentCapacity(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 2)

	first := e.enroll(t, session.ID, "a@example.com", "")
	assert.Equal(t, models.RegistrationRegistered, first.RegistrationStatus)
	e.enroll(t, session.ID, "b@example.com", "")

	_, err := e.sessionSvc.EnrollStudent(ctx, e.actor(t, e.coordinator), session.ID, &models.EnrollStudentRequest{
		FullName: "Third", Email: "c@example.com",
	})
	assert.ErrorIs(t, err, models.ErrCapacityExceeded)

	// Removing frees the seat.
	require.NoError(t, e.sessionSvc.RemoveStudent(ctx, e.actor(t, e.coordinator), session.ID, first.ID))
	e.enroll(t, session.ID, "c@example.com", "")

	progress, err := e.sessionSvc.Progress(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.EnrolledStudents)
	assert.Zero(t, progress.CompletedEvaluations)
}

func TestEnrollStudentValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	coord := e.actor(t, e.coordinator)
	e.enroll(t, session.ID, "dup@example.com", "")

	_, err := e.sessionSvc.EnrollStudent(ctx, coord, session.ID, &models.EnrollStudentRequest{
		FullName: "Dup", Email: "DUP@example.com",
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = e.sessionSvc.EnrollStudent(ctx, coord, session.ID, &models.EnrollStudentRequest{
		FullName: "Linked", Email: "linked@example.com", ProfileID: e.jury.ID,
	})
	assert.ErrorIs(t, err, models.ErrRoleMismatch)

	start := testNow.Add(time.Hour)
	end := testNow
	_, err = e.sessionSvc.EnrollStudent(ctx, coord, session.ID, &models.EnrollStudentRequest{
		FullName: "Slot", Email: "slot@example.com", TimeSlotStart: &start, TimeSlotEnd: &end,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestVerifyQR(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	student := e.enroll(t, session.ID, "qr@example.com", "")
	coord := e.actor(t, e.coordinator)

	_, err := e.sessionSvc.VerifyQR(ctx, coord, session.ID, student.ID, "QR-WRONG")
	assert.ErrorIs(t, err, models.ErrValidation)

	checked, err := e.sessionSvc.VerifyQR(ctx, coord, session.ID, student.ID, session.QRCode)
	require.NoError(t, err)
	assert.True(t, checked.QRVerified)
	assert.Equal(t, models.RegistrationCheckedIn, checked.RegistrationStatus)
}

func TestJuryInvitations(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	coord := e.actor(t, e.coordinator)

	p, err := e.sessionSvc.InviteJury(ctx, coord, session.ID, e.jury.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantInvited, p.Status)

	again, err := e.sessionSvc.InviteJury(ctx, coord, session.ID, e.jury.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	accepted, err := e.sessionSvc.RespondInvitation(ctx, e.actor(t, e.jury), session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantAccepted, accepted.Status)

	_, err = e.sessionSvc.RespondInvitation(ctx, e.actor(t, e.jury), session.ID, false)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = e.sessionSvc.RespondInvitation(ctx, e.actor(t, e.otherJury), session.ID, true)
	assert.ErrorIs(t, err, models.ErrNotFound)

	stored, err := e.sessionSvc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Participants, 1)
}

func TestListSessionsScopesJury(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	e.createSession(t, "", 5, e.jury.ID)
	e.createSession(t, "", 5)

	all, err := e.sessionSvc.ListSessions(ctx, e.actor(t, e.coordinator), models.SessionFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	mine, err := e.sessionSvc.ListSessions(ctx, e.actor(t, e.jury), models.SessionFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)

	_, err = e.sessionSvc.ListSessions(ctx, e.actor(t, e.coordinator), models.SessionFilter{Status: "archived"}, 1, 20)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAttachRubricOnlyWhileScheduled(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	rubric := e.createRubric(t)
	session := e.createSession(t, "", 5)
	coord := e.actor(t, e.coordinator)

	updated, err := e.sessionSvc.AttachRubric(ctx, coord, session.ID, rubric.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.RubricID)

	_, err = e.sessionSvc.ChangeStatus(ctx, coord, session.ID, "start")
	require.NoError(t, err)

	_, err = e.sessionSvc.AttachRubric(ctx, coord, session.ID, rubric.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	session := e.createSession(t, "", 5)
	coord := e.actor(t, e.coordinator)

	_, err := e.sessionSvc.ChangeStatus(ctx, coord, session.ID, "start")
	require.NoError(t, err)
	assert.ErrorIs(t, e.sessionSvc.DeleteSession(ctx, coord, session.ID), models.ErrInvalidTransition)

	_, err = e.sessionSvc.ChangeStatus(ctx, coord, session.ID, "cancel")
	require.NoError(t, err)
	require.NoError(t, e.sessionSvc.DeleteSession(ctx, coord, session.ID))

	_, err = e.sessionSvc.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveStudentWithEvaluationsConflicts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	_, session, student := e.activeSession(t)
	coord := e.actor(t, e.coordinator)

	_, _, err := e.evaluationSvc.OpenEvaluation(ctx, e.actor(t, e.jury), &models.OpenEvaluationRequest{
		SessionID: session.ID, StudentID: student.ID,
	})
	require.NoError(t, err)

	err = e.sessionSvc.RemoveStudent(ctx, coord, session.ID, student.ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	details, err := e.sessionSvc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, details.Students, 1)

	other := e.enroll(t, session.ID, "unscored@example.com", "")
	require.NoError(t, e.sessionSvc.RemoveStudent(ctx, coord, session.ID, other.ID))
}
