package selection

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
)

const (
	repositoryFieldNameConstant              = "repository"
	archivedRepositorySkippedMessageConstant = "Skipping archived repository"
	forkRepositorySkippedMessageConstant     = "Skipping forked repository"
	loggerNotConfiguredMessageConstant       = "selection logger not configured"
	listerNotConfiguredMessageConstant       = "repository lister not configured"
)

// RepositoryLister enumerates repositories for a listing scope.
type RepositoryLister interface {
	ListRepositoriesForUser(executionContext context.Context, userName string) ([]githubapi.RepositoryMetadata, error)
	ListRepositoriesForOrganization(executionContext context.Context, organizationName string) ([]githubapi.RepositoryMetadata, error)
	ListRepositoriesForTeam(executionContext context.Context, organizationName string, teamSlug string) ([]githubapi.RepositoryMetadata, error)
}

var (
	// ErrLoggerNotConfigured indicates the resolver was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrRepositoryListerNotConfigured indicates the resolver was constructed without a lister.
	ErrRepositoryListerNotConfigured = errors.New(listerNotConfiguredMessageConstant)
)

// ResolverDependencies enumerates collaborators required by Resolver.
type ResolverDependencies struct {
	Logger           *zap.Logger
	RepositoryLister RepositoryLister
}

// Resolver translates selection criteria into the ordered repository
// identifiers a batch will process.
type Resolver struct {
	logger           *zap.Logger
	repositoryLister RepositoryLister
}

// NewResolver validates dependencies and constructs a Resolver.
func NewResolver(dependencies ResolverDependencies) (*Resolver, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.RepositoryLister == nil {
		return nil, ErrRepositoryListerNotConfigured
	}

	return &Resolver{logger: dependencies.Logger, repositoryLister: dependencies.RepositoryLister}, nil
}

// Resolve validates the criteria and produces repository identifiers in
// selection order. Explicit repository lists pass through unfiltered; listed
// scopes drop archived repositories and, when requested, forks.
func (resolver *Resolver) Resolve(executionContext context.Context, criteria SelectionCriteria) ([]githubapi.RepositoryIdentifier, error) {
	if validationError := criteria.Validate(); validationError != nil {
		return nil, validationError
	}

	if len(criteria.Repositories) > 0 {
		return parseExplicitRepositories(criteria.Repositories)
	}

	listedRepositories, listError := resolver.listRepositories(executionContext, criteria)
	if listError != nil {
		return nil, listError
	}

	return resolver.filterListedRepositories(listedRepositories, criteria), nil
}

func parseExplicitRepositories(repositoryLiterals []string) ([]githubapi.RepositoryIdentifier, error) {
	identifiers := make([]githubapi.RepositoryIdentifier, 0, len(repositoryLiterals))
	for _, repositoryLiteral := range repositoryLiterals {
		parsedIdentifier, parseError := githubapi.ParseRepositoryIdentifier(repositoryLiteral)
		if parseError != nil {
			return nil, parseError
		}
		identifiers = append(identifiers, parsedIdentifier)
	}
	return identifiers, nil
}

func (resolver *Resolver) listRepositories(executionContext context.Context, criteria SelectionCriteria) ([]githubapi.RepositoryMetadata, error) {
	ownerScope, scoped := criteria.OwnerScope()
	if !scoped {
		return nil, ErrSelectionMissing
	}

	if ownerScope == UserOwnerScope {
		return resolver.repositoryLister.ListRepositoriesForUser(executionContext, strings.TrimSpace(criteria.UserName))
	}

	trimmedOrganizationName := strings.TrimSpace(criteria.OrganizationName)
	trimmedTeamSlug := strings.TrimSpace(criteria.TeamSlug)
	if len(trimmedTeamSlug) > 0 {
		return resolver.repositoryLister.ListRepositoriesForTeam(executionContext, trimmedOrganizationName, trimmedTeamSlug)
	}
	return resolver.repositoryLister.ListRepositoriesForOrganization(executionContext, trimmedOrganizationName)
}

func (resolver *Resolver) filterListedRepositories(listedRepositories []githubapi.RepositoryMetadata, criteria SelectionCriteria) []githubapi.RepositoryIdentifier {
	identifiers := make([]githubapi.RepositoryIdentifier, 0, len(listedRepositories))
	for _, repositoryMetadata := range listedRepositories {
		if repositoryMetadata.IsArchived {
			resolver.logger.Warn(archivedRepositorySkippedMessageConstant, zap.String(repositoryFieldNameConstant, repositoryMetadata.Identifier.String()))
			continue
		}
		if criteria.SkipForks && repositoryMetadata.IsFork {
			resolver.logger.Info(forkRepositorySkippedMessageConstant, zap.String(repositoryFieldNameConstant, repositoryMetadata.Identifier.String()))
			continue
		}
		identifiers = append(identifiers, repositoryMetadata.Identifier)
	}
	return identifiers
}
