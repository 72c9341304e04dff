package selection

import (
	"errors"
	"strings"
)

const (
	ownerScopeUserConstant                  OwnerScope = "user"
	ownerScopeOrganizationConstant          OwnerScope = "org"
	selectionMissingMessageConstant                    = "repository selection required: provide repositories, a user, or an organization"
	selectionConflictMessageConstant                   = "conflicting repository selection: provide only one of repositories, user, or organization"
	teamRequiresOrganizationMessageConstant            = "team selection requires an organization"
)

// OwnerScope enumerates supported repository listing scopes.
type OwnerScope string

// UserOwnerScope identifies user-owned repository listings.
const UserOwnerScope OwnerScope = ownerScopeUserConstant

// OrganizationOwnerScope identifies organization-owned repository listings.
const OrganizationOwnerScope OwnerScope = ownerScopeOrganizationConstant

var (
	// ErrSelectionMissing indicates no selection input was provided.
	ErrSelectionMissing = errors.New(selectionMissingMessageConstant)
	// ErrSelectionConflict indicates multiple mutually exclusive selection inputs.
	ErrSelectionConflict = errors.New(selectionConflictMessageConstant)
	// ErrTeamRequiresOrganization indicates a team slug without an organization.
	ErrTeamRequiresOrganization = errors.New(teamRequiresOrganizationMessageConstant)
)

// SelectionCriteria captures which repositories a batch should target.
type SelectionCriteria struct {
	Repositories     []string
	UserName         string
	OrganizationName string
	TeamSlug         string
	SkipForks        bool
}

// Validate enforces that exactly one selection mode is active and that team
// slugs arrive together with an organization.
func (criteria SelectionCriteria) Validate() error {
	selectedModes := 0
	if len(criteria.Repositories) > 0 {
		selectedModes++
	}
	if len(strings.TrimSpace(criteria.UserName)) > 0 {
		selectedModes++
	}
	if len(strings.TrimSpace(criteria.OrganizationName)) > 0 {
		selectedModes++
	}

	switch {
	case selectedModes == 0:
		return ErrSelectionMissing
	case selectedModes > 1:
		return ErrSelectionConflict
	}

	if len(strings.TrimSpace(criteria.TeamSlug)) > 0 && len(strings.TrimSpace(criteria.OrganizationName)) == 0 {
		return ErrTeamRequiresOrganization
	}

	return nil
}

// OwnerScope reports which listing scope the criteria select. The boolean is
// false for explicit repository lists, which never trigger listing calls.
func (criteria SelectionCriteria) OwnerScope() (OwnerScope, bool) {
	if len(strings.TrimSpace(criteria.UserName)) > 0 {
		return UserOwnerScope, true
	}
	if len(strings.TrimSpace(criteria.OrganizationName)) > 0 {
		return OrganizationOwnerScope, true
	}
	return "", false
}
