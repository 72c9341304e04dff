package githubapi

import (
	"context"
	"errors"
	"strings"

	gogithub "github.com/google/go-github/v66/github"
)

const (
	branchReferencePrefixConstant                     = "refs/heads/"
	pullRequestStateOpenConstant                      = "open"
	listPageSizeConstant                              = 100
	repositoryFieldNameConstant                       = "repository"
	branchNameFieldNameConstant                       = "branch_name"
	commitSHAFieldNameConstant                        = "commit_sha"
	pullRequestNumberFieldNameConstant                = "pull_request_number"
	protectionRuleFieldNameConstant                   = "protection_rule"
	userNameFieldNameConstant                         = "user_name"
	organizationNameFieldNameConstant                 = "organization_name"
	teamSlugFieldNameConstant                         = "team_slug"
	apiBaseURLFieldNameConstant                       = "api_base_url"
	requiredValueMessageConstant                      = "value required"
	positiveValueMessageConstant                      = "positive value required"
	resolveBranchHeadOperationNameConstant            = OperationName("ResolveBranchHead")
	createBranchOperationNameConstant                 = OperationName("CreateBranch")
	deleteBranchOperationNameConstant                 = OperationName("DeleteBranch")
	listPullRequestsOperationNameConstant             = OperationName("ListOpenPullRequests")
	retargetPullRequestOperationNameConstant          = OperationName("RetargetPullRequest")
	repositoryMetadataOperationNameConstant           = OperationName("ResolveRepositoryMetadata")
	setDefaultBranchOperationNameConstant             = OperationName("SetDefaultBranch")
	getBranchProtectionOperationNameConstant          = OperationName("GetBranchProtection")
	applyBranchProtectionOperationNameConstant        = OperationName("ApplyBranchProtection")
	listUserRepositoriesOperationNameConstant         = OperationName("ListUserRepositories")
	listOrganizationRepositoriesOperationNameConstant = OperationName("ListOrganizationRepositories")
	listTeamRepositoriesOperationNameConstant         = OperationName("ListTeamRepositories")
)

// ClientConfiguration describes how the GitHub API client is constructed.
type ClientConfiguration struct {
	Token      string
	APIBaseURL string
	UserAgent  string
}

// Client performs GitHub REST operations through go-github.
type Client struct {
	apiClient *gogithub.Client
}

// NewClient constructs a GitHub API client for the configured endpoint.
func NewClient(configuration ClientConfiguration) (*Client, error) {
	trimmedToken := strings.TrimSpace(configuration.Token)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenNotConfigured
	}

	apiClient := gogithub.NewClient(nil).WithAuthToken(trimmedToken)

	trimmedBaseURL := strings.TrimSpace(configuration.APIBaseURL)
	if len(trimmedBaseURL) > 0 {
		enterpriseClient, configurationError := apiClient.WithEnterpriseURLs(trimmedBaseURL, trimmedBaseURL)
		if configurationError != nil {
			return nil, InvalidInputError{FieldName: apiBaseURLFieldNameConstant, Message: configurationError.Error()}
		}
		apiClient = enterpriseClient
	}

	trimmedUserAgent := strings.TrimSpace(configuration.UserAgent)
	if len(trimmedUserAgent) > 0 {
		apiClient.UserAgent = trimmedUserAgent
	}

	return &Client{apiClient: apiClient}, nil
}

// GetBranchHead resolves the commit SHA a branch currently points at.
func (client *Client) GetBranchHead(executionContext context.Context, repository RepositoryIdentifier, branchName string) (string, error) {
	if validationError := validateRepository(repository); validationError != nil {
		return "", validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return "", validationError
	}

	branchReference, _, retrievalError := client.apiClient.Git.GetRef(executionContext, repository.Owner, repository.Name, qualifiedBranchReference(branchName))
	if retrievalError != nil {
		if IsNotFound(retrievalError) {
			return "", OperationError{Operation: resolveBranchHeadOperationNameConstant, Cause: ErrBranchNotFound}
		}
		return "", OperationError{Operation: resolveBranchHeadOperationNameConstant, Cause: retrievalError}
	}

	return branchReference.GetObject().GetSHA(), nil
}

// CreateBranch creates a branch reference pointing at the provided commit.
func (client *Client) CreateBranch(executionContext context.Context, repository RepositoryIdentifier, branchName string, commitSHA string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return validationError
	}
	if len(strings.TrimSpace(commitSHA)) == 0 {
		return InvalidInputError{FieldName: commitSHAFieldNameConstant, Message: requiredValueMessageConstant}
	}

	branchReference := &gogithub.Reference{
		Ref:    gogithub.String(qualifiedBranchReference(branchName)),
		Object: &gogithub.GitObject{SHA: gogithub.String(commitSHA)},
	}

	_, _, creationError := client.apiClient.Git.CreateRef(executionContext, repository.Owner, repository.Name, branchReference)
	if creationError != nil {
		if referenceAlreadyExists(creationError) {
			return OperationError{Operation: createBranchOperationNameConstant, Cause: ErrBranchAlreadyExists}
		}
		return OperationError{Operation: createBranchOperationNameConstant, Cause: creationError}
	}

	return nil
}

// DeleteBranch removes a branch reference.
func (client *Client) DeleteBranch(executionContext context.Context, repository RepositoryIdentifier, branchName string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return validationError
	}

	_, deletionError := client.apiClient.Git.DeleteRef(executionContext, repository.Owner, repository.Name, qualifiedBranchReference(branchName))
	if deletionError != nil {
		return OperationError{Operation: deleteBranchOperationNameConstant, Cause: deletionError}
	}

	return nil
}

// ListOpenPullRequests enumerates every open pull request in the repository.
func (client *Client) ListOpenPullRequests(executionContext context.Context, repository RepositoryIdentifier) ([]PullRequest, error) {
	if validationError := validateRepository(repository); validationError != nil {
		return nil, validationError
	}

	listOptions := &gogithub.PullRequestListOptions{
		State:       pullRequestStateOpenConstant,
		ListOptions: gogithub.ListOptions{PerPage: listPageSizeConstant},
	}

	var pullRequests []PullRequest
	for {
		pagePullRequests, pageResponse, listError := client.apiClient.PullRequests.List(executionContext, repository.Owner, repository.Name, listOptions)
		if listError != nil {
			return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: listError}
		}

		for _, pagePullRequest := range pagePullRequests {
			pullRequests = append(pullRequests, PullRequest{
				Number:     pagePullRequest.GetNumber(),
				Title:      pagePullRequest.GetTitle(),
				BaseBranch: pagePullRequest.GetBase().GetRef(),
			})
		}

		if pageResponse.NextPage == 0 {
			break
		}
		listOptions.Page = pageResponse.NextPage
	}

	return pullRequests, nil
}

// RetargetPullRequest points an open pull request at a new base branch.
func (client *Client) RetargetPullRequest(executionContext context.Context, repository RepositoryIdentifier, pullRequestNumber int, baseBranch string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if pullRequestNumber <= 0 {
		return InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveValueMessageConstant}
	}
	if validationError := validateBranchName(baseBranch); validationError != nil {
		return validationError
	}

	pullRequestUpdate := &gogithub.PullRequest{
		Base: &gogithub.PullRequestBranch{Ref: gogithub.String(baseBranch)},
	}

	_, _, updateError := client.apiClient.PullRequests.Edit(executionContext, repository.Owner, repository.Name, pullRequestNumber, pullRequestUpdate)
	if updateError != nil {
		return OperationError{Operation: retargetPullRequestOperationNameConstant, Cause: updateError}
	}

	return nil
}

// GetRepositoryMetadata resolves default branch, fork, and archive details.
func (client *Client) GetRepositoryMetadata(executionContext context.Context, repository RepositoryIdentifier) (RepositoryMetadata, error) {
	if validationError := validateRepository(repository); validationError != nil {
		return RepositoryMetadata{}, validationError
	}

	repositoryDetails, _, retrievalError := client.apiClient.Repositories.Get(executionContext, repository.Owner, repository.Name)
	if retrievalError != nil {
		return RepositoryMetadata{}, OperationError{Operation: repositoryMetadataOperationNameConstant, Cause: retrievalError}
	}

	return RepositoryMetadata{
		Identifier:    repository,
		DefaultBranch: repositoryDetails.GetDefaultBranch(),
		IsFork:        repositoryDetails.GetFork(),
		IsArchived:    repositoryDetails.GetArchived(),
	}, nil
}

// SetDefaultBranch updates the repository default branch pointer.
func (client *Client) SetDefaultBranch(executionContext context.Context, repository RepositoryIdentifier, branchName string) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return validationError
	}

	repositoryUpdate := &gogithub.Repository{DefaultBranch: gogithub.String(branchName)}
	_, _, updateError := client.apiClient.Repositories.Edit(executionContext, repository.Owner, repository.Name, repositoryUpdate)
	if updateError != nil {
		return OperationError{Operation: setDefaultBranchOperationNameConstant, Cause: updateError}
	}

	return nil
}

// GetBranchProtection reads the protection rule bound to a branch. A branch
// without protection yields a nil rule and no error.
func (client *Client) GetBranchProtection(executionContext context.Context, repository RepositoryIdentifier, branchName string) (*BranchProtectionRule, error) {
	if validationError := validateRepository(repository); validationError != nil {
		return nil, validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return nil, validationError
	}

	protection, _, retrievalError := client.apiClient.Repositories.GetBranchProtection(executionContext, repository.Owner, repository.Name, branchName)
	if retrievalError != nil {
		if errors.Is(retrievalError, gogithub.ErrBranchNotProtected) {
			return nil, nil
		}
		return nil, OperationError{Operation: getBranchProtectionOperationNameConstant, Cause: retrievalError}
	}

	return &BranchProtectionRule{protection: protection}, nil
}

// ApplyBranchProtection binds an equivalent protection rule to a branch.
func (client *Client) ApplyBranchProtection(executionContext context.Context, repository RepositoryIdentifier, branchName string, rule *BranchProtectionRule) error {
	if validationError := validateRepository(repository); validationError != nil {
		return validationError
	}
	if validationError := validateBranchName(branchName); validationError != nil {
		return validationError
	}
	if rule == nil || rule.protection == nil {
		return InvalidInputError{FieldName: protectionRuleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	protectionRequest := buildProtectionRequest(rule.protection)
	_, _, updateError := client.apiClient.Repositories.UpdateBranchProtection(executionContext, repository.Owner, repository.Name, branchName, protectionRequest)
	if updateError != nil {
		return OperationError{Operation: applyBranchProtectionOperationNameConstant, Cause: updateError}
	}

	return nil
}

// ListRepositoriesForUser enumerates repositories owned by a user account.
func (client *Client) ListRepositoriesForUser(executionContext context.Context, userName string) ([]RepositoryMetadata, error) {
	trimmedUserName := strings.TrimSpace(userName)
	if len(trimmedUserName) == 0 {
		return nil, InvalidInputError{FieldName: userNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	listOptions := &gogithub.RepositoryListByUserOptions{ListOptions: gogithub.ListOptions{PerPage: listPageSizeConstant}}

	var repositories []RepositoryMetadata
	for {
		pageRepositories, pageResponse, listError := client.apiClient.Repositories.ListByUser(executionContext, trimmedUserName, listOptions)
		if listError != nil {
			return nil, OperationError{Operation: listUserRepositoriesOperationNameConstant, Cause: listError}
		}

		repositories = append(repositories, convertRepositoryDetails(pageRepositories)...)

		if pageResponse.NextPage == 0 {
			break
		}
		listOptions.Page = pageResponse.NextPage
	}

	return repositories, nil
}

// ListRepositoriesForOrganization enumerates repositories owned by an organization.
func (client *Client) ListRepositoriesForOrganization(executionContext context.Context, organizationName string) ([]RepositoryMetadata, error) {
	trimmedOrganizationName := strings.TrimSpace(organizationName)
	if len(trimmedOrganizationName) == 0 {
		return nil, InvalidInputError{FieldName: organizationNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	listOptions := &gogithub.RepositoryListByOrgOptions{ListOptions: gogithub.ListOptions{PerPage: listPageSizeConstant}}

	var repositories []RepositoryMetadata
	for {
		pageRepositories, pageResponse, listError := client.apiClient.Repositories.ListByOrg(executionContext, trimmedOrganizationName, listOptions)
		if listError != nil {
			return nil, OperationError{Operation: listOrganizationRepositoriesOperationNameConstant, Cause: listError}
		}

		repositories = append(repositories, convertRepositoryDetails(pageRepositories)...)

		if pageResponse.NextPage == 0 {
			break
		}
		listOptions.Page = pageResponse.NextPage
	}

	return repositories, nil
}

// ListRepositoriesForTeam enumerates repositories accessible to an organization team.
func (client *Client) ListRepositoriesForTeam(executionContext context.Context, organizationName string, teamSlug string) ([]RepositoryMetadata, error) {
	trimmedOrganizationName := strings.TrimSpace(organizationName)
	if len(trimmedOrganizationName) == 0 {
		return nil, InvalidInputError{FieldName: organizationNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedTeamSlug := strings.TrimSpace(teamSlug)
	if len(trimmedTeamSlug) == 0 {
		return nil, InvalidInputError{FieldName: teamSlugFieldNameConstant, Message: requiredValueMessageConstant}
	}

	listOptions := &gogithub.ListOptions{PerPage: listPageSizeConstant}

	var repositories []RepositoryMetadata
	for {
		pageRepositories, pageResponse, listError := client.apiClient.Teams.ListTeamReposBySlug(executionContext, trimmedOrganizationName, trimmedTeamSlug, listOptions)
		if listError != nil {
			return nil, OperationError{Operation: listTeamRepositoriesOperationNameConstant, Cause: listError}
		}

		repositories = append(repositories, convertRepositoryDetails(pageRepositories)...)

		if pageResponse.NextPage == 0 {
			break
		}
		listOptions.Page = pageResponse.NextPage
	}

	return repositories, nil
}

func convertRepositoryDetails(repositoryDetails []*gogithub.Repository) []RepositoryMetadata {
	converted := make([]RepositoryMetadata, 0, len(repositoryDetails))
	for _, repositoryDetail := range repositoryDetails {
		converted = append(converted, RepositoryMetadata{
			Identifier: RepositoryIdentifier{
				Owner: repositoryDetail.GetOwner().GetLogin(),
				Name:  repositoryDetail.GetName(),
			},
			DefaultBranch: repositoryDetail.GetDefaultBranch(),
			IsFork:        repositoryDetail.GetFork(),
			IsArchived:    repositoryDetail.GetArchived(),
		})
	}
	return converted
}

func qualifiedBranchReference(branchName string) string {
	return branchReferencePrefixConstant + branchName
}

func validateRepository(repository RepositoryIdentifier) error {
	if len(strings.TrimSpace(repository.Owner)) == 0 || len(strings.TrimSpace(repository.Name)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

func validateBranchName(branchName string) error {
	if len(strings.TrimSpace(branchName)) == 0 {
		return InvalidInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
