package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
	"github.com/marcohutzsch1234/github-default-branch/internal/migrate"
)

const (
	getBranchHeadOperationConstant       = "GetBranchHead"
	createBranchOperationConstant        = "CreateBranch"
	deleteBranchOperationConstant        = "DeleteBranch"
	listPullRequestsOperationConstant    = "ListOpenPullRequests"
	retargetPullRequestOperationConstant = "RetargetPullRequest"
	repositoryMetadataOperationConstant  = "GetRepositoryMetadata"
	setDefaultBranchOperationConstant    = "SetDefaultBranch"
	getProtectionOperationConstant       = "GetBranchProtection"
	applyProtectionOperationConstant     = "ApplyBranchProtection"

	sourceBranchNameConstant    = "master"
	targetBranchNameConstant    = "main"
	sourceCommitSHAConstant     = "abc123"
	repositoryOwnerNameConstant = "octo-org"
	repositoryNameConstant      = "widgets"
)

var testRepositoryIdentifier = githubapi.RepositoryIdentifier{Owner: repositoryOwnerNameConstant, Name: repositoryNameConstant}

type gitHubOperationsStub struct {
	branchHeads        map[string]string
	pullRequests       []githubapi.PullRequest
	repositoryMetadata githubapi.RepositoryMetadata
	protectionRule     *githubapi.BranchProtectionRule
	operationErrors    map[string]error

	recordedOperations []string
	createdBranches    []string
	retargetedNumbers  []int
	updatedDefaults    []string
	protectedBranches  []string
	deletedBranches    []string
}

func (stub *gitHubOperationsStub) injectedError(operationName string) error {
	if stub.operationErrors == nil {
		return nil
	}
	return stub.operationErrors[operationName]
}

func (stub *gitHubOperationsStub) GetBranchHead(_ context.Context, _ githubapi.RepositoryIdentifier, branchName string) (string, error) {
	stub.recordedOperations = append(stub.recordedOperations, getBranchHeadOperationConstant)
	if injectedError := stub.injectedError(getBranchHeadOperationConstant); injectedError != nil {
		return "", injectedError
	}
	commitSHA, branchExists := stub.branchHeads[branchName]
	if !branchExists {
		return "", githubapi.ErrBranchNotFound
	}
	return commitSHA, nil
}

func (stub *gitHubOperationsStub) CreateBranch(_ context.Context, _ githubapi.RepositoryIdentifier, branchName string, commitSHA string) error {
	stub.recordedOperations = append(stub.recordedOperations, createBranchOperationConstant)
	if injectedError := stub.injectedError(createBranchOperationConstant); injectedError != nil {
		return injectedError
	}
	stub.createdBranches = append(stub.createdBranches, fmt.Sprintf("%s@%s", branchName, commitSHA))
	return nil
}

func (stub *gitHubOperationsStub) DeleteBranch(_ context.Context, _ githubapi.RepositoryIdentifier, branchName string) error {
	stub.recordedOperations = append(stub.recordedOperations, deleteBranchOperationConstant)
	if injectedError := stub.injectedError(deleteBranchOperationConstant); injectedError != nil {
		return injectedError
	}
	stub.deletedBranches = append(stub.deletedBranches, branchName)
	return nil
}

func (stub *gitHubOperationsStub) ListOpenPullRequests(_ context.Context, _ githubapi.RepositoryIdentifier) ([]githubapi.PullRequest, error) {
	stub.recordedOperations = append(stub.recordedOperations, listPullRequestsOperationConstant)
	if injectedError := stub.injectedError(listPullRequestsOperationConstant); injectedError != nil {
		return nil, injectedError
	}
	return stub.pullRequests, nil
}

func (stub *gitHubOperationsStub) RetargetPullRequest(_ context.Context, _ githubapi.RepositoryIdentifier, pullRequestNumber int, _ string) error {
	stub.recordedOperations = append(stub.recordedOperations, retargetPullRequestOperationConstant)
	if injectedError := stub.injectedError(retargetPullRequestOperationConstant); injectedError != nil {
		return injectedError
	}
	stub.retargetedNumbers = append(stub.retargetedNumbers, pullRequestNumber)
	return nil
}

func (stub *gitHubOperationsStub) GetRepositoryMetadata(_ context.Context, _ githubapi.RepositoryIdentifier) (githubapi.RepositoryMetadata, error) {
	stub.recordedOperations = append(stub.recordedOperations, repositoryMetadataOperationConstant)
	if injectedError := stub.injectedError(repositoryMetadataOperationConstant); injectedError != nil {
		return githubapi.RepositoryMetadata{}, injectedError
	}
	return stub.repositoryMetadata, nil
}

func (stub *gitHubOperationsStub) SetDefaultBranch(_ context.Context, _ githubapi.RepositoryIdentifier, branchName string) error {
	stub.recordedOperations = append(stub.recordedOperations, setDefaultBranchOperationConstant)
	if injectedError := stub.injectedError(setDefaultBranchOperationConstant); injectedError != nil {
		return injectedError
	}
	stub.updatedDefaults = append(stub.updatedDefaults, branchName)
	return nil
}

func (stub *gitHubOperationsStub) GetBranchProtection(_ context.Context, _ githubapi.RepositoryIdentifier, _ string) (*githubapi.BranchProtectionRule, error) {
	stub.recordedOperations = append(stub.recordedOperations, getProtectionOperationConstant)
	if injectedError := stub.injectedError(getProtectionOperationConstant); injectedError != nil {
		return nil, injectedError
	}
	return stub.protectionRule, nil
}

func (stub *gitHubOperationsStub) ApplyBranchProtection(_ context.Context, _ githubapi.RepositoryIdentifier, branchName string, _ *githubapi.BranchProtectionRule) error {
	stub.recordedOperations = append(stub.recordedOperations, applyProtectionOperationConstant)
	if injectedError := stub.injectedError(applyProtectionOperationConstant); injectedError != nil {
		return injectedError
	}
	stub.protectedBranches = append(stub.protectedBranches, branchName)
	return nil
}

func (stub *gitHubOperationsStub) mutationCount() int {
	return len(stub.createdBranches) + len(stub.retargetedNumbers) + len(stub.updatedDefaults) + len(stub.protectedBranches) + len(stub.deletedBranches)
}

type recordedStepEvent struct {
	kind   string
	event  migrate.StepEvent
	reason string
}

type recordingEventObserver struct {
	events []recordedStepEvent
}

func (observerInstance *recordingEventObserver) MigrationStepExecuted(event migrate.StepEvent) {
	observerInstance.events = append(observerInstance.events, recordedStepEvent{kind: "executed", event: event})
}

func (observerInstance *recordingEventObserver) MigrationStepSkipped(event migrate.StepEvent, reason string) {
	observerInstance.events = append(observerInstance.events, recordedStepEvent{kind: "skipped", event: event, reason: reason})
}

func (observerInstance *recordingEventObserver) MigrationStepFailed(event migrate.StepEvent, failure error) {
	observerInstance.events = append(observerInstance.events, recordedStepEvent{kind: "failed", event: event, reason: failure.Error()})
}

func newFullyPopulatedStub() *gitHubOperationsStub {
	return &gitHubOperationsStub{
		branchHeads: map[string]string{sourceBranchNameConstant: sourceCommitSHAConstant},
		pullRequests: []githubapi.PullRequest{
			{Number: 7, Title: "Fix widget threading", BaseBranch: sourceBranchNameConstant},
			{Number: 8, Title: "Add gadget support", BaseBranch: "develop"},
		},
		repositoryMetadata: githubapi.RepositoryMetadata{
			Identifier:    testRepositoryIdentifier,
			DefaultBranch: sourceBranchNameConstant,
		},
		protectionRule: &githubapi.BranchProtectionRule{},
	}
}

func defaultMigrationOptions() migrate.MigrationOptions {
	return migrate.MigrationOptions{
		SourceBranch: sourceBranchNameConstant,
		TargetBranch: targetBranchNameConstant,
	}
}

func newServiceForStub(testInstance *testing.T, stub *gitHubOperationsStub, observerInstance migrate.MigrationEventObserver) (*migrate.Service, *observer.ObservedLogs) {
	observedCore, observedLogs := observer.New(zap.DebugLevel)
	service, creationError := migrate.NewService(migrate.ServiceDependencies{
		Logger:        zap.New(observedCore),
		GitHubClient:  stub,
		EventObserver: observerInstance,
	})
	require.NoError(testInstance, creationError)
	return service, observedLogs
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	service, creationError := migrate.NewService(migrate.ServiceDependencies{})
	require.ErrorIs(testInstance, creationError, migrate.ErrGitHubClientNotConfigured)
	require.Nil(testInstance, service)

	service, creationError = migrate.NewService(migrate.ServiceDependencies{GitHubClient: &gitHubOperationsStub{}})
	require.NoError(testInstance, creationError)
	require.NotNil(testInstance, service)
}

func TestExecuteValidatesInputs(testInstance *testing.T) {
	testCases := []struct {
		name       string
		repository githubapi.RepositoryIdentifier
		options    migrate.MigrationOptions
	}{
		{
			name:       "MissingRepositoryOwner",
			repository: githubapi.RepositoryIdentifier{Name: repositoryNameConstant},
			options:    defaultMigrationOptions(),
		},
		{
			name:       "MissingSourceBranch",
			repository: testRepositoryIdentifier,
			options:    migrate.MigrationOptions{TargetBranch: targetBranchNameConstant},
		},
		{
			name:       "MissingTargetBranch",
			repository: testRepositoryIdentifier,
			options:    migrate.MigrationOptions{SourceBranch: sourceBranchNameConstant},
		},
		{
			name:       "IdenticalBranches",
			repository: testRepositoryIdentifier,
			options:    migrate.MigrationOptions{SourceBranch: targetBranchNameConstant, TargetBranch: targetBranchNameConstant},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			stub := newFullyPopulatedStub()
			service, _ := newServiceForStub(subtest, stub, nil)

			_, executionError := service.Execute(context.Background(), testCase.repository, testCase.options)

			var invalidInput migrate.InvalidInputError
			require.ErrorAs(subtest, executionError, &invalidInput)
			require.Empty(subtest, stub.recordedOperations)
		})
	}
}

func TestExecuteMigratesRepository(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	eventObserver := &recordingEventObserver{}
	service, observedLogs := newServiceForStub(testInstance, stub, eventObserver)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.Equal(testInstance, sourceCommitSHAConstant, outcome.SourceCommitSHA)
	require.Equal(testInstance, []int{7}, outcome.RetargetedPullRequests)
	require.Equal(testInstance, testRepositoryIdentifier, outcome.Repository)

	require.Equal(testInstance, []string{fmt.Sprintf("%s@%s", targetBranchNameConstant, sourceCommitSHAConstant)}, stub.createdBranches)
	require.Equal(testInstance, []int{7}, stub.retargetedNumbers)
	require.Equal(testInstance, []string{targetBranchNameConstant}, stub.updatedDefaults)
	require.Equal(testInstance, []string{targetBranchNameConstant}, stub.protectedBranches)
	require.Equal(testInstance, []string{sourceBranchNameConstant}, stub.deletedBranches)

	expectedOperationOrder := []string{
		getBranchHeadOperationConstant,
		createBranchOperationConstant,
		listPullRequestsOperationConstant,
		retargetPullRequestOperationConstant,
		repositoryMetadataOperationConstant,
		setDefaultBranchOperationConstant,
		getProtectionOperationConstant,
		applyProtectionOperationConstant,
		deleteBranchOperationConstant,
	}
	require.Equal(testInstance, expectedOperationOrder, stub.recordedOperations)

	executedSteps := make([]migrate.StepName, 0, len(eventObserver.events))
	for _, recordedEvent := range eventObserver.events {
		require.Equal(testInstance, "executed", recordedEvent.kind)
		executedSteps = append(executedSteps, recordedEvent.event.Step)
	}
	require.Equal(testInstance, []migrate.StepName{
		migrate.StepCreateTargetBranch,
		migrate.StepRetargetPullRequests,
		migrate.StepUpdateDefaultBranch,
		migrate.StepMigrateBranchProtection,
		migrate.StepDeleteSourceBranch,
	}, executedSteps)

	require.Equal(testInstance, 1, observedLogs.FilterMessage("Updated default branch").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Deleted source branch").Len())
}

func TestExecuteDryRunPerformsNoWrites(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	service, observedLogs := newServiceForStub(testInstance, stub, nil)

	options := defaultMigrationOptions()
	options.DryRun = true

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, options)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.Equal(testInstance, []int{7}, outcome.RetargetedPullRequests)
	require.Zero(testInstance, stub.mutationCount())

	expectedReadOrder := []string{
		getBranchHeadOperationConstant,
		listPullRequestsOperationConstant,
		repositoryMetadataOperationConstant,
		getProtectionOperationConstant,
	}
	require.Equal(testInstance, expectedReadOrder, stub.recordedOperations)

	require.Equal(testInstance, 1, observedLogs.FilterMessage("Dry run: would create target branch").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Dry run: would retarget pull request").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Dry run: would update default branch").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Dry run: would apply branch protection to target branch").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Dry run: would delete source branch").Len())
}

func TestExecuteSkipsMissingSourceBranch(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.branchHeads = map[string]string{}
	eventObserver := &recordingEventObserver{}
	service, observedLogs := newServiceForStub(testInstance, stub, eventObserver)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusSkippedMissingSourceBranch, outcome.Status)
	require.Equal(testInstance, []string{getBranchHeadOperationConstant}, stub.recordedOperations)
	require.Zero(testInstance, stub.mutationCount())

	require.Len(testInstance, eventObserver.events, 1)
	require.Equal(testInstance, "skipped", eventObserver.events[0].kind)
	require.Equal(testInstance, migrate.StepResolveSourceBranch, eventObserver.events[0].event.Step)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Source branch not found; skipping repository").Len())
}

func TestExecuteReportsDefaultBranchMismatch(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.repositoryMetadata.DefaultBranch = "trunk"
	service, observedLogs := newServiceForStub(testInstance, stub, nil)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusSkippedDefaultBranchMismatch, outcome.Status)
	require.Empty(testInstance, stub.updatedDefaults)
	require.Equal(testInstance, []string{sourceBranchNameConstant}, stub.deletedBranches)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Default branch does not match source branch; leaving it unchanged").Len())
}

func TestExecuteKeepsSourceBranchWhenRequested(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	service, _ := newServiceForStub(testInstance, stub, nil)

	options := defaultMigrationOptions()
	options.KeepSourceBranch = true

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, options)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.Empty(testInstance, stub.deletedBranches)
	require.NotContains(testInstance, stub.recordedOperations, deleteBranchOperationConstant)
}

func TestExecuteSkipsBranchProtectionWhenRequested(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	service, _ := newServiceForStub(testInstance, stub, nil)

	options := defaultMigrationOptions()
	options.SkipBranchProtection = true

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, options)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.NotContains(testInstance, stub.recordedOperations, getProtectionOperationConstant)
	require.NotContains(testInstance, stub.recordedOperations, applyProtectionOperationConstant)
}

func TestExecuteToleratesUnprotectedSourceBranch(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.protectionRule = nil
	service, _ := newServiceForStub(testInstance, stub, nil)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.Contains(testInstance, stub.recordedOperations, getProtectionOperationConstant)
	require.NotContains(testInstance, stub.recordedOperations, applyProtectionOperationConstant)
	require.Empty(testInstance, stub.protectedBranches)
}

func TestExecuteReusesExistingTargetBranch(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.operationErrors = map[string]error{
		createBranchOperationConstant: githubapi.OperationError{
			Operation: githubapi.OperationName(createBranchOperationConstant),
			Cause:     githubapi.ErrBranchAlreadyExists,
		},
	}
	service, observedLogs := newServiceForStub(testInstance, stub, nil)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusMigrated, outcome.Status)
	require.Equal(testInstance, []string{targetBranchNameConstant}, stub.updatedDefaults)
	require.Equal(testInstance, []string{sourceBranchNameConstant}, stub.deletedBranches)
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Target branch already exists; reusing it").Len())
}

func TestExecuteCapturesStepFailures(testInstance *testing.T) {
	remoteFailure := errors.New("boom")

	testCases := []struct {
		name             string
		failingOperation string
		expectedStep     migrate.StepName
	}{
		{
			name:             "ResolveSourceBranch",
			failingOperation: getBranchHeadOperationConstant,
			expectedStep:     migrate.StepResolveSourceBranch,
		},
		{
			name:             "CreateTargetBranch",
			failingOperation: createBranchOperationConstant,
			expectedStep:     migrate.StepCreateTargetBranch,
		},
		{
			name:             "ListPullRequests",
			failingOperation: listPullRequestsOperationConstant,
			expectedStep:     migrate.StepRetargetPullRequests,
		},
		{
			name:             "RetargetPullRequest",
			failingOperation: retargetPullRequestOperationConstant,
			expectedStep:     migrate.StepRetargetPullRequests,
		},
		{
			name:             "ResolveRepositoryMetadata",
			failingOperation: repositoryMetadataOperationConstant,
			expectedStep:     migrate.StepUpdateDefaultBranch,
		},
		{
			name:             "SetDefaultBranch",
			failingOperation: setDefaultBranchOperationConstant,
			expectedStep:     migrate.StepUpdateDefaultBranch,
		},
		{
			name:             "ReadBranchProtection",
			failingOperation: getProtectionOperationConstant,
			expectedStep:     migrate.StepMigrateBranchProtection,
		},
		{
			name:             "ApplyBranchProtection",
			failingOperation: applyProtectionOperationConstant,
			expectedStep:     migrate.StepMigrateBranchProtection,
		},
		{
			name:             "DeleteSourceBranch",
			failingOperation: deleteBranchOperationConstant,
			expectedStep:     migrate.StepDeleteSourceBranch,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			stub := newFullyPopulatedStub()
			stub.operationErrors = map[string]error{testCase.failingOperation: remoteFailure}
			service, observedLogs := newServiceForStub(subtest, stub, nil)

			outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
			require.NoError(subtest, executionError)

			require.Equal(subtest, migrate.StatusFailed, outcome.Status)
			require.Equal(subtest, testCase.expectedStep, outcome.FailedStep)
			require.ErrorIs(subtest, outcome.Cause, remoteFailure)
			require.Equal(subtest, 1, observedLogs.FilterMessage("Migration step failed").Len())
		})
	}
}

func TestExecuteStopsSequenceAfterFailure(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.operationErrors = map[string]error{setDefaultBranchOperationConstant: errors.New("boom")}
	service, _ := newServiceForStub(testInstance, stub, nil)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, migrate.StatusFailed, outcome.Status)
	require.Equal(testInstance, migrate.StepUpdateDefaultBranch, outcome.FailedStep)
	require.NotContains(testInstance, stub.recordedOperations, getProtectionOperationConstant)
	require.NotContains(testInstance, stub.recordedOperations, deleteBranchOperationConstant)
	require.Empty(testInstance, stub.deletedBranches)
}

func TestExecutePropagatesContextCancellation(testInstance *testing.T) {
	stub := newFullyPopulatedStub()
	stub.operationErrors = map[string]error{setDefaultBranchOperationConstant: context.Canceled}
	service, _ := newServiceForStub(testInstance, stub, nil)

	outcome, executionError := service.Execute(context.Background(), testRepositoryIdentifier, defaultMigrationOptions())
	require.ErrorIs(testInstance, executionError, context.Canceled)
	require.Equal(testInstance, migrate.MigrationOutcome{}, outcome)
}
