package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/edujury/internal/models"
)

func TestCreateRubric(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	rubric := e.createRubric(t)

	assert.Equal(t, e.coordinator.ID, rubric.CreatedBy)
	assert.Len(t, rubric.Criteria, 4)

	stored, err := e.rubricSvc.GetRubric(context.Background(), rubric.ID)
	require.NoError(t, err)
	assert.Equal(t, rubric.Title, stored.Title)
	assert.Equal(t, 4, stored.Criteria[0].MaxPoints)
}

func TestCreateRubricRejectsEmptyCriterion(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	req := portfolioRequest()
	req.Criteria[1].Levels = nil

	_, err := e.rubricSvc.CreateRubric(context.Background(), e.actor(t, e.coordinator), req)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, e.rubrics.rubrics)
}

func TestGetRubricNotFound(t *testing.T) {
	e := newEnv(t, EvaluationOptions{})
	_, err := e.rubricSvc.GetRubric(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCriteriaEditsFrozenOnceReferenced(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	rubric := e.createRubric(t)

	updated, err := e.rubricSvc.AddCriterion(ctx, rubric.ID, models.CriterionSpec{Name: "Originality", Levels: fourLevels()})
	require.NoError(t, err)
	assert.Len(t, updated.Criteria, 5)

	updated, err = e.rubricSvc.RemoveCriterion(ctx, rubric.ID, updated.Criteria[4].ID)
	require.NoError(t, err)
	assert.Len(t, updated.Criteria, 4)

	e.rubrics.referenced[rubric.ID] = true

	_, err = e.rubricSvc.AddCriterion(ctx, rubric.ID, models.CriterionSpec{Name: "Originality", Levels: fourLevels()})
	assert.ErrorIs(t, err, models.ErrRubricInUse)
	_, err = e.rubricSvc.RemoveCriterion(ctx, rubric.ID, rubric.Criteria[0].ID)
	assert.ErrorIs(t, err, models.ErrRubricInUse)

	// Title edits stay allowed.
	renamed, err := e.rubricSvc.UpdateRubric(ctx, rubric.ID, &models.UpdateRubricRequest{Title: "Portfolio 2026"})
	require.NoError(t, err)
	assert.Equal(t, "Portfolio 2026", renamed.Title)
}

func TestDeactivateRubric(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	rubric := e.createRubric(t)

	e.rubrics.openCount[rubric.ID] = 2
	assert.ErrorIs(t, e.rubricSvc.DeactivateRubric(ctx, rubric.ID), models.ErrRubricInUse)

	e.rubrics.openCount[rubric.ID] = 0
	require.NoError(t, e.rubricSvc.DeactivateRubric(ctx, rubric.ID))

	rubrics, total, err := e.rubricSvc.ListRubrics(ctx, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rubrics)
}

func TestProfileService(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, EvaluationOptions{})
	svc := NewProfileService(e.profiles, zerolog.Nop())

	t.Run("self update", func(t *testing.T) {
		p, err := svc.UpdateProfile(ctx, e.actor(t, e.jury), e.jury.ID, &models.UpdateProfileRequest{
			FullName:  " Prof. Michael Rodriguez ",
			Expertise: "Distributed systems",
		})
		require.NoError(t, err)
		assert.Equal(t, "Prof. Michael Rodriguez", p.FullName)
	})

	t.Run("cannot edit others", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, e.actor(t, e.jury), e.student.ID, &models.UpdateProfileRequest{FullName: "Someone"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("role filter", func(t *testing.T) {
		profiles, total, err := svc.ListProfiles(ctx, "jury", 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, profiles, 2)

		_, _, err = svc.ListProfiles(ctx, "dean", 1, 10)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("deactivate", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeactivateProfile(ctx, e.actor(t, e.admin), e.admin.ID), models.ErrForbidden)
		require.NoError(t, svc.DeactivateProfile(ctx, e.actor(t, e.admin), e.otherJury.ID))

		p, err := svc.GetProfile(ctx, e.otherJury.ID)
		require.NoError(t, err)
		assert.False(t, p.IsActive)
	})
}
