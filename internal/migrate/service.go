package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
)

const (
	repositoryFieldNameConstant        = "repository"
	stepFieldNameConstant              = "step"
	sourceBranchFieldNameConstant      = "source_branch"
	targetBranchFieldNameConstant      = "target_branch"
	commitSHAFieldNameConstant         = "commit_sha"
	defaultBranchFieldNameConstant     = "default_branch"
	pullRequestFieldNameConstant       = "pull_request"
	pullRequestTitleFieldNameConstant  = "pull_request_title"
	baseBranchFieldNameConstant        = "base_branch"
	requiredValueMessageConstant       = "value required"
	distinctBranchesMessageConstant    = "source and target branches must differ"
	gitHubClientMissingMessageConstant = "GitHub client not configured"

	sourceBranchResolvedMessageConstant   = "Resolved source branch head"
	sourceBranchMissingMessageConstant    = "Source branch not found; skipping repository"
	targetBranchCreatedMessageConstant    = "Created target branch"
	targetBranchExistsMessageConstant     = "Target branch already exists; reusing it"
	pullRequestIgnoredMessageConstant     = "Pull request targets another base; leaving it"
	pullRequestRetargetedMessageConstant  = "Retargeted pull request"
	defaultBranchUpdatedMessageConstant   = "Updated default branch"
	defaultBranchMismatchMessageConstant  = "Default branch does not match source branch; leaving it unchanged"
	protectionSkippedMessageConstant      = "Branch protection migration disabled; leaving rules untouched"
	protectionAbsentMessageConstant       = "Source branch carries no protection rule"
	protectionMigratedMessageConstant     = "Applied branch protection to target branch"
	sourceBranchKeptMessageConstant       = "Keeping source branch"
	sourceBranchDeletedMessageConstant    = "Deleted source branch"
	migrationStepFailedMessageConstant    = "Migration step failed"
	dryRunCreateBranchMessageConstant     = "Dry run: would create target branch"
	dryRunRetargetMessageConstant         = "Dry run: would retarget pull request"
	dryRunDefaultBranchMessageConstant    = "Dry run: would update default branch"
	dryRunProtectionMessageConstant       = "Dry run: would apply branch protection to target branch"
	dryRunDeleteBranchMessageConstant     = "Dry run: would delete source branch"
	sourceBranchMissingReasonConstant     = "source branch not found"
	targetBranchExistsReasonConstant      = "target branch already exists"
	defaultBranchMismatchReasonConstant   = "default branch does not match source branch"
	protectionSkippedByFlagReasonConstant = "branch protection migration disabled"
	protectionAbsentReasonConstant        = "no protection rule configured"
	sourceBranchKeptReasonConstant        = "keeping source branch"

	resolveSourceBranchErrorTemplateConstant   = "unable to resolve source branch head: %w"
	createTargetBranchErrorTemplateConstant    = "unable to create target branch: %w"
	listPullRequestsErrorTemplateConstant      = "unable to list open pull requests: %w"
	retargetPullRequestErrorTemplateConstant   = "unable to retarget pull request #%d: %w"
	resolveMetadataErrorTemplateConstant       = "unable to resolve repository metadata: %w"
	updateDefaultBranchErrorTemplateConstant   = "unable to update default branch: %w"
	readBranchProtectionErrorTemplateConstant  = "unable to read branch protection: %w"
	applyBranchProtectionErrorTemplateConstant = "unable to apply branch protection: %w"
	deleteSourceBranchErrorTemplateConstant    = "unable to delete source branch: %w"

	branchAtCommitDetailTemplateConstant = "%s @ %s"
	retargetDetailTemplateConstant       = "#%d to %s"
	defaultBranchDetailTemplateConstant  = "%s to %s"
)

// GitHubOperations captures the GitHub interactions the migration sequence performs.
type GitHubOperations interface {
	GetBranchHead(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string) (string, error)
	CreateBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string, commitSHA string) error
	DeleteBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string) error
	ListOpenPullRequests(executionContext context.Context, repository githubapi.RepositoryIdentifier) ([]githubapi.PullRequest, error)
	RetargetPullRequest(executionContext context.Context, repository githubapi.RepositoryIdentifier, pullRequestNumber int, baseBranch string) error
	GetRepositoryMetadata(executionContext context.Context, repository githubapi.RepositoryIdentifier) (githubapi.RepositoryMetadata, error)
	SetDefaultBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string) error
	GetBranchProtection(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string) (*githubapi.BranchProtectionRule, error)
	ApplyBranchProtection(executionContext context.Context, repository githubapi.RepositoryIdentifier, branchName string, rule *githubapi.BranchProtectionRule) error
}

// ErrGitHubClientNotConfigured indicates the service was constructed without a GitHub client.
var ErrGitHubClientNotConfigured = errors.New(gitHubClientMissingMessageConstant)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger        *zap.Logger
	GitHubClient  GitHubOperations
	EventObserver MigrationEventObserver
}

// MigrationOptions configures one repository migration.
type MigrationOptions struct {
	SourceBranch         string
	TargetBranch         string
	DryRun               bool
	KeepSourceBranch     bool
	SkipBranchProtection bool
	Verbose              bool
}

// Service walks a repository through the migration sequence: resolve the
// source head, create the target branch, retarget open pull requests, update
// the default branch, migrate branch protection, and delete the source branch.
type Service struct {
	logger        *zap.Logger
	gitHubClient  GitHubOperations
	eventObserver MigrationEventObserver
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitHubClient == nil {
		return nil, ErrGitHubClientNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	eventObserver := dependencies.EventObserver
	if eventObserver == nil {
		eventObserver = noopMigrationEventObserver{}
	}

	return &Service{logger: logger, gitHubClient: dependencies.GitHubClient, eventObserver: eventObserver}, nil
}

// Execute migrates one repository and reports the terminal outcome. Remote
// failures surface inside the outcome; the returned error is non-nil only for
// invalid input or context cancellation, so batch callers can keep going.
func (service *Service) Execute(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions) (MigrationOutcome, error) {
	normalizedOptions, validationError := validateMigrationInputs(repository, options)
	if validationError != nil {
		return MigrationOutcome{}, validationError
	}

	logStepDetail := service.logger.Debug
	if normalizedOptions.Verbose {
		logStepDetail = service.logger.Info
	}

	outcome := MigrationOutcome{Repository: repository, Status: StatusMigrated}

	sourceCommitSHA, resolveError := service.gitHubClient.GetBranchHead(executionContext, repository, normalizedOptions.SourceBranch)
	if resolveError != nil {
		if githubapi.IsNotFound(resolveError) {
			service.logger.Info(sourceBranchMissingMessageConstant,
				zap.String(repositoryFieldNameConstant, repository.String()),
				zap.String(sourceBranchFieldNameConstant, normalizedOptions.SourceBranch),
			)
			service.eventObserver.MigrationStepSkipped(StepEvent{
				Repository: repository,
				Step:       StepResolveSourceBranch,
				Detail:     normalizedOptions.SourceBranch,
				DryRun:     normalizedOptions.DryRun,
			}, sourceBranchMissingReasonConstant)
			return MigrationOutcome{Repository: repository, Status: StatusSkippedMissingSourceBranch}, nil
		}
		return service.failStep(repository, StepResolveSourceBranch, fmt.Errorf(resolveSourceBranchErrorTemplateConstant, resolveError))
	}
	outcome.SourceCommitSHA = sourceCommitSHA
	logStepDetail(sourceBranchResolvedMessageConstant,
		zap.String(repositoryFieldNameConstant, repository.String()),
		zap.String(sourceBranchFieldNameConstant, normalizedOptions.SourceBranch),
		zap.String(commitSHAFieldNameConstant, sourceCommitSHA),
	)

	if failedOutcome, failed, failureError := service.createTargetBranch(executionContext, repository, normalizedOptions, sourceCommitSHA); failed {
		return failedOutcome, failureError
	}

	retargetedPullRequests, retargetOutcome, retargetFailed, retargetError := service.retargetPullRequests(executionContext, repository, normalizedOptions, logStepDetail)
	if retargetFailed {
		return retargetOutcome, retargetError
	}
	outcome.RetargetedPullRequests = retargetedPullRequests

	defaultBranchMatchesSource, defaultOutcome, defaultFailed, defaultError := service.updateDefaultBranch(executionContext, repository, normalizedOptions)
	if defaultFailed {
		return defaultOutcome, defaultError
	}

	if failedOutcome, failed, failureError := service.migrateBranchProtection(executionContext, repository, normalizedOptions, logStepDetail); failed {
		return failedOutcome, failureError
	}

	if failedOutcome, failed, failureError := service.deleteSourceBranch(executionContext, repository, normalizedOptions, logStepDetail); failed {
		return failedOutcome, failureError
	}

	if !defaultBranchMatchesSource {
		outcome.Status = StatusSkippedDefaultBranchMismatch
	}

	return outcome, nil
}

func (service *Service) createTargetBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions, sourceCommitSHA string) (MigrationOutcome, bool, error) {
	stepEvent := StepEvent{
		Repository: repository,
		Step:       StepCreateTargetBranch,
		Detail:     fmt.Sprintf(branchAtCommitDetailTemplateConstant, options.TargetBranch, sourceCommitSHA),
		DryRun:     options.DryRun,
	}

	if options.DryRun {
		service.logger.Info(dryRunCreateBranchMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
			zap.String(commitSHAFieldNameConstant, sourceCommitSHA),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		return MigrationOutcome{}, false, nil
	}

	creationError := service.gitHubClient.CreateBranch(executionContext, repository, options.TargetBranch, sourceCommitSHA)
	switch {
	case creationError == nil:
		service.logger.Info(targetBranchCreatedMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
			zap.String(commitSHAFieldNameConstant, sourceCommitSHA),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		return MigrationOutcome{}, false, nil
	case errors.Is(creationError, githubapi.ErrBranchAlreadyExists):
		service.logger.Info(targetBranchExistsMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
		)
		service.eventObserver.MigrationStepSkipped(stepEvent, targetBranchExistsReasonConstant)
		return MigrationOutcome{}, false, nil
	default:
		failedOutcome, failureError := service.failStep(repository, StepCreateTargetBranch, fmt.Errorf(createTargetBranchErrorTemplateConstant, creationError))
		return failedOutcome, true, failureError
	}
}

func (service *Service) retargetPullRequests(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions, logStepDetail func(string, ...zap.Field)) ([]int, MigrationOutcome, bool, error) {
	openPullRequests, listError := service.gitHubClient.ListOpenPullRequests(executionContext, repository)
	if listError != nil {
		failedOutcome, failureError := service.failStep(repository, StepRetargetPullRequests, fmt.Errorf(listPullRequestsErrorTemplateConstant, listError))
		return nil, failedOutcome, true, failureError
	}

	var retargetedPullRequests []int
	for _, openPullRequest := range openPullRequests {
		if openPullRequest.BaseBranch != options.SourceBranch {
			logStepDetail(pullRequestIgnoredMessageConstant,
				zap.String(repositoryFieldNameConstant, repository.String()),
				zap.Int(pullRequestFieldNameConstant, openPullRequest.Number),
				zap.String(baseBranchFieldNameConstant, openPullRequest.BaseBranch),
			)
			continue
		}

		stepEvent := StepEvent{
			Repository: repository,
			Step:       StepRetargetPullRequests,
			Detail:     fmt.Sprintf(retargetDetailTemplateConstant, openPullRequest.Number, options.TargetBranch),
			DryRun:     options.DryRun,
		}

		if options.DryRun {
			service.logger.Info(dryRunRetargetMessageConstant,
				zap.String(repositoryFieldNameConstant, repository.String()),
				zap.Int(pullRequestFieldNameConstant, openPullRequest.Number),
				zap.String(pullRequestTitleFieldNameConstant, openPullRequest.Title),
				zap.String(targetBranchFieldNameConstant, options.TargetBranch),
			)
			service.eventObserver.MigrationStepExecuted(stepEvent)
			retargetedPullRequests = append(retargetedPullRequests, openPullRequest.Number)
			continue
		}

		retargetError := service.gitHubClient.RetargetPullRequest(executionContext, repository, openPullRequest.Number, options.TargetBranch)
		if retargetError != nil {
			failedOutcome, failureError := service.failStep(repository, StepRetargetPullRequests, fmt.Errorf(retargetPullRequestErrorTemplateConstant, openPullRequest.Number, retargetError))
			return nil, failedOutcome, true, failureError
		}

		service.logger.Info(pullRequestRetargetedMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.Int(pullRequestFieldNameConstant, openPullRequest.Number),
			zap.String(pullRequestTitleFieldNameConstant, openPullRequest.Title),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		retargetedPullRequests = append(retargetedPullRequests, openPullRequest.Number)
	}

	return retargetedPullRequests, MigrationOutcome{}, false, nil
}

func (service *Service) updateDefaultBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions) (bool, MigrationOutcome, bool, error) {
	repositoryMetadata, metadataError := service.gitHubClient.GetRepositoryMetadata(executionContext, repository)
	if metadataError != nil {
		failedOutcome, failureError := service.failStep(repository, StepUpdateDefaultBranch, fmt.Errorf(resolveMetadataErrorTemplateConstant, metadataError))
		return false, failedOutcome, true, failureError
	}

	stepEvent := StepEvent{
		Repository: repository,
		Step:       StepUpdateDefaultBranch,
		Detail:     fmt.Sprintf(defaultBranchDetailTemplateConstant, repositoryMetadata.DefaultBranch, options.TargetBranch),
		DryRun:     options.DryRun,
	}

	if repositoryMetadata.DefaultBranch != options.SourceBranch {
		service.logger.Warn(defaultBranchMismatchMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(defaultBranchFieldNameConstant, repositoryMetadata.DefaultBranch),
			zap.String(sourceBranchFieldNameConstant, options.SourceBranch),
		)
		service.eventObserver.MigrationStepSkipped(stepEvent, defaultBranchMismatchReasonConstant)
		return false, MigrationOutcome{}, false, nil
	}

	if options.DryRun {
		service.logger.Info(dryRunDefaultBranchMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		return true, MigrationOutcome{}, false, nil
	}

	updateError := service.gitHubClient.SetDefaultBranch(executionContext, repository, options.TargetBranch)
	if updateError != nil {
		failedOutcome, failureError := service.failStep(repository, StepUpdateDefaultBranch, fmt.Errorf(updateDefaultBranchErrorTemplateConstant, updateError))
		return false, failedOutcome, true, failureError
	}

	service.logger.Info(defaultBranchUpdatedMessageConstant,
		zap.String(repositoryFieldNameConstant, repository.String()),
		zap.String(defaultBranchFieldNameConstant, options.TargetBranch),
	)
	service.eventObserver.MigrationStepExecuted(stepEvent)
	return true, MigrationOutcome{}, false, nil
}

func (service *Service) migrateBranchProtection(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions, logStepDetail func(string, ...zap.Field)) (MigrationOutcome, bool, error) {
	stepEvent := StepEvent{
		Repository: repository,
		Step:       StepMigrateBranchProtection,
		Detail:     options.TargetBranch,
		DryRun:     options.DryRun,
	}

	if options.SkipBranchProtection {
		logStepDetail(protectionSkippedMessageConstant, zap.String(repositoryFieldNameConstant, repository.String()))
		service.eventObserver.MigrationStepSkipped(stepEvent, protectionSkippedByFlagReasonConstant)
		return MigrationOutcome{}, false, nil
	}

	protectionRule, protectionError := service.gitHubClient.GetBranchProtection(executionContext, repository, options.SourceBranch)
	if protectionError != nil {
		failedOutcome, failureError := service.failStep(repository, StepMigrateBranchProtection, fmt.Errorf(readBranchProtectionErrorTemplateConstant, protectionError))
		return failedOutcome, true, failureError
	}

	if protectionRule == nil {
		logStepDetail(protectionAbsentMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(sourceBranchFieldNameConstant, options.SourceBranch),
		)
		service.eventObserver.MigrationStepSkipped(stepEvent, protectionAbsentReasonConstant)
		return MigrationOutcome{}, false, nil
	}

	if options.DryRun {
		service.logger.Info(dryRunProtectionMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(targetBranchFieldNameConstant, options.TargetBranch),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		return MigrationOutcome{}, false, nil
	}

	applyError := service.gitHubClient.ApplyBranchProtection(executionContext, repository, options.TargetBranch, protectionRule)
	if applyError != nil {
		failedOutcome, failureError := service.failStep(repository, StepMigrateBranchProtection, fmt.Errorf(applyBranchProtectionErrorTemplateConstant, applyError))
		return failedOutcome, true, failureError
	}

	service.logger.Info(protectionMigratedMessageConstant,
		zap.String(repositoryFieldNameConstant, repository.String()),
		zap.String(targetBranchFieldNameConstant, options.TargetBranch),
	)
	service.eventObserver.MigrationStepExecuted(stepEvent)
	return MigrationOutcome{}, false, nil
}

func (service *Service) deleteSourceBranch(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions, logStepDetail func(string, ...zap.Field)) (MigrationOutcome, bool, error) {
	stepEvent := StepEvent{
		Repository: repository,
		Step:       StepDeleteSourceBranch,
		Detail:     options.SourceBranch,
		DryRun:     options.DryRun,
	}

	if options.KeepSourceBranch {
		logStepDetail(sourceBranchKeptMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(sourceBranchFieldNameConstant, options.SourceBranch),
		)
		service.eventObserver.MigrationStepSkipped(stepEvent, sourceBranchKeptReasonConstant)
		return MigrationOutcome{}, false, nil
	}

	if options.DryRun {
		service.logger.Info(dryRunDeleteBranchMessageConstant,
			zap.String(repositoryFieldNameConstant, repository.String()),
			zap.String(sourceBranchFieldNameConstant, options.SourceBranch),
		)
		service.eventObserver.MigrationStepExecuted(stepEvent)
		return MigrationOutcome{}, false, nil
	}

	deletionError := service.gitHubClient.DeleteBranch(executionContext, repository, options.SourceBranch)
	if deletionError != nil {
		failedOutcome, failureError := service.failStep(repository, StepDeleteSourceBranch, fmt.Errorf(deleteSourceBranchErrorTemplateConstant, deletionError))
		return failedOutcome, true, failureError
	}

	service.logger.Info(sourceBranchDeletedMessageConstant,
		zap.String(repositoryFieldNameConstant, repository.String()),
		zap.String(sourceBranchFieldNameConstant, options.SourceBranch),
	)
	service.eventObserver.MigrationStepExecuted(stepEvent)
	return MigrationOutcome{}, false, nil
}

// failStep classifies a step failure. Context cancellation propagates as an
// error so batch callers stop; every other failure becomes a Failed outcome.
func (service *Service) failStep(repository githubapi.RepositoryIdentifier, step StepName, failure error) (MigrationOutcome, error) {
	if errors.Is(failure, context.Canceled) || errors.Is(failure, context.DeadlineExceeded) {
		return MigrationOutcome{}, failure
	}

	service.logger.Warn(migrationStepFailedMessageConstant,
		zap.String(repositoryFieldNameConstant, repository.String()),
		zap.String(stepFieldNameConstant, string(step)),
		zap.Error(failure),
	)
	service.eventObserver.MigrationStepFailed(StepEvent{Repository: repository, Step: step}, failure)

	return MigrationOutcome{Repository: repository, Status: StatusFailed, FailedStep: step, Cause: failure}, nil
}

func validateMigrationInputs(repository githubapi.RepositoryIdentifier, options MigrationOptions) (MigrationOptions, error) {
	if len(strings.TrimSpace(repository.Owner)) == 0 || len(strings.TrimSpace(repository.Name)) == 0 {
		return MigrationOptions{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	normalizedOptions := options
	normalizedOptions.SourceBranch = strings.TrimSpace(options.SourceBranch)
	normalizedOptions.TargetBranch = strings.TrimSpace(options.TargetBranch)

	if len(normalizedOptions.SourceBranch) == 0 {
		return MigrationOptions{}, InvalidInputError{FieldName: sourceBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(normalizedOptions.TargetBranch) == 0 {
		return MigrationOptions{}, InvalidInputError{FieldName: targetBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if normalizedOptions.SourceBranch == normalizedOptions.TargetBranch {
		return MigrationOptions{}, InvalidInputError{FieldName: targetBranchFieldNameConstant, Message: distinctBranchesMessageConstant}
	}

	return normalizedOptions, nil
}
