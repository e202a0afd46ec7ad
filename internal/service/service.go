package service

import (
	"fmt"
	"time"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// page normalizes 1-based paging input into limit and offset.
func page(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

func collaborator(op string, err error) error {
	return models.NewCollaboratorError(op, err)
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", models.ErrForbidden, reason)
}

func isAdmin(actor rbac.Actor) bool {
	_, ok := actor.(rbac.Admin)
	return ok
}

type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
