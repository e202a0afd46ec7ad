package rbac

import (
	"strings"

	"github.com/RubachokBoss/edujury/internal/models"
)

const (
	PermProfilesRead    = "profiles:read"
	PermProfilesWrite   = "profiles:write"
	PermRubricsRead     = "rubrics:read"
	PermRubricsWrite    = "rubrics:write"
	PermSessionsRead    = "sessions:read"
	PermSessionsWrite   = "sessions:write"
	PermInvitesRespond  = "sessions:respond"
	PermEvaluationsRead = "evaluations:read"
	PermEvaluationsEdit = "evaluations:write"
	PermEvaluationsOpen = "evaluations:reopen"
	PermResultsRead     = "results:read"
)

// RolePermissions is the capability set of each role. A trailing "*" matches
// any permission with that prefix.
var RolePermissions = map[models.Role][]string{
	models.RoleAdmin: {"*"},
	models.RoleCoordinator: {
		PermProfilesRead,
		"rubrics:*",
		"sessions:*",
		PermEvaluationsRead,
		PermEvaluationsOpen,
		PermResultsRead,
	},
	models.RoleJury: {
		PermRubricsRead,
		PermSessionsRead,
		PermInvitesRespond,
		PermEvaluationsRead,
		PermEvaluationsEdit,
	},
	models.RoleStudent: {
		PermResultsRead,
	},
}

func allowed(role models.Role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
