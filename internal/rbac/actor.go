package rbac

import (
	"fmt"

	"github.com/RubachokBoss/edujury/internal/models"
)

// Actor is the authenticated caller. The concrete type is one of Admin,
// Coordinator, Jury or Student and is fixed when the request is authenticated.
type Actor interface {
	ID() string
	Role() models.Role
	Can(perm string) bool
	sealed()
}

type identity struct {
	id string
}

func (i identity) ID() string { return i.id }
func (identity) sealed() {}

type Admin struct{ identity }

func (Admin) Role() models.Role { return models.RoleAdmin }
func (Admin) Can(p string) bool { return allowed(models.RoleAdmin, p) }

type Coordinator struct{ identity }

func (Coordinator) Role() models.Role { return models.RoleCoordinator }
func (Coordinator) Can(p string) bool { return allowed(models.RoleCoordinator, p) }

type Jury struct{ identity }

func (Jury) Role() models.Role { return models.RoleJury }
func (Jury) Can(p string) bool { return allowed(models.RoleJury, p) }

type Student struct{ identity }

func (Student) Role() models.Role { return models.RoleStudent }
func (Student) Can(p string) bool { return allowed(models.RoleStudent, p) }

// NewActor picks the variant for a profile's role.
func NewActor(id string, role models.Role) (Actor, error) {
	base := identity{id: id}
	switch role {
	case models.RoleAdmin:
		return Admin{base}, nil
	case models.RoleCoordinator:
		return Coordinator{base}, nil
	case models.RoleJury:
		return Jury{base}, nil
	case models.RoleStudent:
		return Student{base}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrUnauthorized, role)
	}
}

// IsStaff reports whether the actor manages sessions and rubrics.
func IsStaff(a Actor) bool {
	switch a.(type) {
	case Admin, Coordinator:
		return true
	default:
		return false
	}
}
