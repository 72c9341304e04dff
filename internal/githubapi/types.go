package githubapi

import (
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/v66/github"
)

const (
	repositoryIdentifierSeparatorConstant       = "/"
	repositoryIdentifierTemplateConstant        = "%s/%s"
	invalidRepositoryIdentifierTemplateConstant = "repository identifier %q must use the owner/name form"
	repositoryIdentifierComponentCountConstant  = 2
	repositoryOwnerComponentIndexConstant       = 0
	repositoryNameComponentIndexConstant        = 1
)

// RepositoryIdentifier uniquely names a repository on the hosting service.
type RepositoryIdentifier struct {
	Owner string
	Name  string
}

// ParseRepositoryIdentifier interprets an owner/name literal.
func ParseRepositoryIdentifier(candidate string) (RepositoryIdentifier, error) {
	trimmedCandidate := strings.TrimSpace(candidate)
	components := strings.Split(trimmedCandidate, repositoryIdentifierSeparatorConstant)
	if len(components) != repositoryIdentifierComponentCountConstant {
		return RepositoryIdentifier{}, fmt.Errorf(invalidRepositoryIdentifierTemplateConstant, candidate)
	}

	ownerName := strings.TrimSpace(components[repositoryOwnerComponentIndexConstant])
	repositoryName := strings.TrimSpace(components[repositoryNameComponentIndexConstant])
	if len(ownerName) == 0 || len(repositoryName) == 0 {
		return RepositoryIdentifier{}, fmt.Errorf(invalidRepositoryIdentifierTemplateConstant, candidate)
	}

	return RepositoryIdentifier{Owner: ownerName, Name: repositoryName}, nil
}

// String renders the identifier in the owner/name form.
func (identifier RepositoryIdentifier) String() string {
	return fmt.Sprintf(repositoryIdentifierTemplateConstant, identifier.Owner, identifier.Name)
}

// PullRequest represents minimal pull request details consumed by migrations.
type PullRequest struct {
	Number     int
	Title      string
	BaseBranch string
}

// RepositoryMetadata contains key repository details resolved from GitHub.
type RepositoryMetadata struct {
	Identifier    RepositoryIdentifier
	DefaultBranch string
	IsFork        bool
	IsArchived    bool
}

// BranchProtectionRule carries a branch protection payload between a read on
// one branch and an equivalent write on another. Callers treat it as opaque.
type BranchProtectionRule struct {
	protection *gogithub.Protection
}
