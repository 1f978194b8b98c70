package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Permission ids checked by the API layer.
const (
	PermCandidateManage = "candidate.manage"
	PermChainEdit       = "chain.edit"
	PermInterviewBook   = "interview.book"
	PermOutcomeRecord   = "outcome.record"
	PermCandidateHire   = "candidate.hire"
	PermUserManage      = "user.manage"
	PermVacancyManage   = "vacancy.manage"
	PermEventsRead      = "events.read"
)

// rolePermissions maps the fixed roles to what they may do. Admin is
// handled separately and holds everything.
var rolePermissions = map[string]map[string]bool{
	"hr": {
		PermCandidateManage: true,
		PermChainEdit:       true,
		PermInterviewBook:   true,
		PermOutcomeRecord:   true,
		PermCandidateHire:   true,
		PermVacancyManage:   true,
		PermEventsRead:      true,
	},
	"interviewer": {
		PermInterviewBook: true,
		PermOutcomeRecord: true,
		PermEventsRead:    true,
	},
}

// Can reports whether a role grants a permission.
func Can(role, perm string) bool {
	if role == "admin" {
		return true
	}
	return rolePermissions[role][perm]
}

// Permissions lists the permission ids granted to a role.
func Permissions(role string) []string {
	if role == "admin" {
		return []string{
			PermCandidateManage, PermChainEdit, PermInterviewBook,
			PermOutcomeRecord, PermCandidateHire, PermUserManage,
			PermVacancyManage, PermEventsRead,
		}
	}
	perms := rolePermissions[role]
	out := make([]string, 0, len(perms))
	for _, p := range []string{
		PermCandidateManage, PermChainEdit, PermInterviewBook,
		PermOutcomeRecord, PermCandidateHire, PermUserManage,
		PermVacancyManage, PermEventsRead,
	} {
		if perms[p] {
			out = append(out, p)
		}
	}
	return out
}

// Service resolves actor roles from the users table.
type Service struct {
	DB *sql.DB
}

// ActorRole returns the role of a registered user, or "" when unknown.
func (s Service) ActorRole(ctx context.Context, actorID string) (string, error) {
	if actorID == "" {
		return "", nil
	}
	row := s.DB.QueryRowContext(ctx, `SELECT role FROM users WHERE id=?`, actorID)
	var role string
	err := row.Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// ActorHasPermission checks a registered actor against a permission id.
func (s Service) ActorHasPermission(ctx context.Context, actorID, perm string) (bool, error) {
	role, err := s.ActorRole(ctx, actorID)
	if err != nil {
		return false, err
	}
	return Can(role, perm), nil
}
