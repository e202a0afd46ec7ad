package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func mustActor(t *testing.T, p models.Profile) rbac.Actor {
	t.Helper()
	a, err := rbac.NewActor(p.ID, p.Role)
	require.NoError(t, err)
	return a
}

func newProfile(role models.Role, email string) models.Profile {
	return models.Profile{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  email,
		Role:      role,
		IsActive:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func fourLevels() []models.LevelSpec {
	return []models.LevelSpec{
		{Name: "Excellent", Points: 4},
		{Name: "Good", Points: 3},
		{Name: "Fair", Points: 2},
		{Name: "Poor", Points: 1},
	}
}

func portfolioRequest() *models.CreateRubricRequest {
	return &models.CreateRubricRequest{
		Title: "Portfolio Assessment",
		Criteria: []models.CriterionSpec{
			{Name: "Content", Levels: fourLevels()},
			{Name: "Presentation", Levels: fourLevels()},
			{Name: "Technical depth", Levels: fourLevels()},
			{Name: "Q&A", Levels: fourLevels()},
		},
	}
}

// env wires every service over in-memory repositories.
type env struct {
	profiles    *fakeProfileRepo
	tokens      *fakeTokenRepo
	rubrics     *fakeRubricRepo
	sessions    *fakeSessionRepo
	evaluations *fakeEvaluationRepo
	artifacts   *fakeArtifacts
	publisher   *fakePublisher

	admin       models.Profile
	coordinator models.Profile
	jury        models.Profile
	otherJury   models.Profile
	student     models.Profile

	rubricSvc     *rubricService
	sessionSvc    *sessionService
	evaluationSvc *evaluationService
}

func newEnv(t *testing.T, opts EvaluationOptions) *env {
	t.Helper()

	e := &env{
		admin:       newProfile(models.RoleAdmin, "admin@example.com"),
		coordinator: newProfile(models.RoleCoordinator, "coord@example.com"),
		jury:        newProfile(models.RoleJury, "jury@example.com"),
		otherJury:   newProfile(models.RoleJury, "jury2@example.com"),
		student:     newProfile(models.RoleStudent, "student@example.com"),
		tokens:      newFakeTokenRepo(),
		rubrics:     newFakeRubricRepo(),
		sessions:    newFakeSessionRepo(),
		artifacts:   &fakeArtifacts{objects: map[string]int64{}},
		publisher:   &fakePublisher{},
	}
	e.profiles = newFakeProfileRepo(e.admin, e.coordinator, e.jury, e.otherJury, e.student)
	e.evaluations = newFakeEvaluationRepo(e.sessions)

	log := zerolog.Nop()
	e.rubricSvc = NewRubricService(e.rubrics, log).(*rubricService)
	e.rubricSvc.now = fixedClock
	e.sessionSvc = NewSessionService(e.sessions, e.rubrics, e.profiles, e.evaluations, e.publisher, log).(*sessionService)
	e.sessionSvc.now = fixedClock
	e.evaluationSvc = NewEvaluationService(e.evaluations, e.sessions, e.rubrics, e.artifacts, e.publisher, opts, log).(*evaluationService)
	e.evaluationSvc.now = fixedClock

	return e
}

func (e *env) actor(t *testing.T, p models.Profile) rbac.Actor {
	return mustActor(t, p)
}

func (e *env) createRubric(t *testing.T) *models.Rubric {
	t.Helper()
	rubric, err := e.rubricSvc.CreateRubric(context.Background(), e.actor(t, e.coordinator), portfolioRequest())
	require.NoError(t, err)
	return rubric
}

func (e *env) createSession(t *testing.T, rubricID string, maxStudents int, jury ...string) *models.SessionDetails {
	t.Helper()
	session, err := e.sessionSvc.CreateSession(context.Background(), e.actor(t, e.coordinator), &models.CreateSessionRequest{
		Title:         "Final Project Review",
		SessionDate:   "2026-03-14",
		StartTime:     "09:00",
		DurationHours: 3,
		Location:      "Room 204",
		RubricID:      rubricID,
		MaxStudents:   maxStudents,
		JuryMembers:   jury,
	})
	require.NoError(t, err)
	return session
}

func (e *env) enroll(t *testing.T, sessionID, email string, profileID string) *models.Student {
	t.Helper()
	student, err := e.sessionSvc.EnrollStudent(context.Background(), e.actor(t, e.coordinator), sessionID, &models.EnrollStudentRequest{
		FullName:  "Student " + email,
		Email:     email,
		ProfileID: profileID,
	})
	require.NoError(t, err)
	return student
}

// activeSession returns a started session with a rubric, one accepted jury
// member and one enrolled student linked to the student profile.
func (e *env) activeSession(t *testing.T) (*models.Rubric, *models.SessionDetails, *models.Student) {
	t.Helper()
	ctx := context.Background()

	rubric := e.createRubric(t)
	session := e.createSession(t, rubric.ID, 10, e.jury.ID)
	student := e.enroll(t, session.ID, "ada@example.com", e.student.ID)

	_, err := e.sessionSvc.RespondInvitation(ctx, e.actor(t, e.jury), session.ID, true)
	require.NoError(t, err)
	_, err = e.sessionSvc.ChangeStatus(ctx, e.actor(t, e.coordinator), session.ID, "start")
	require.NoError(t, err)

	return rubric, session, student
}

func TestPage(t *testing.T) {
	p, limit, offset := page(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, defaultPageLimit, limit)
	assert.Equal(t, 0, offset)

	p, limit, offset = page(3, 500)
	assert.Equal(t, 3, p)
	assert.Equal(t, maxPageLimit, limit)
	assert.Equal(t, 200, offset)
}
