package migrate

import (
	"fmt"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
)

const (
	migratedSummaryTemplateConstant              = "%s: migrated"
	missingSourceBranchSummaryTemplateConstant   = "%s: skipped (source branch not found)"
	defaultBranchMismatchSummaryTemplateConstant = "%s: completed (default branch left unchanged)"
	failedSummaryTemplateConstant                = "%s: failed at %s: %s"
	unknownStatusSummaryTemplateConstant         = "%s: %s"
)

// StepName identifies one step of the migration sequence.
type StepName string

// Migration steps in execution order.
const (
	StepResolveSourceBranch     StepName = "resolve-source-branch"
	StepCreateTargetBranch      StepName = "create-target-branch"
	StepRetargetPullRequests    StepName = "retarget-pull-requests"
	StepUpdateDefaultBranch     StepName = "update-default-branch"
	StepMigrateBranchProtection StepName = "migrate-branch-protection"
	StepDeleteSourceBranch      StepName = "delete-source-branch"
)

// OutcomeStatus classifies the terminal state of one repository migration.
type OutcomeStatus string

// Terminal migration states.
const (
	StatusMigrated                     OutcomeStatus = "migrated"
	StatusSkippedMissingSourceBranch   OutcomeStatus = "skipped-missing-source-branch"
	StatusSkippedDefaultBranchMismatch OutcomeStatus = "skipped-default-branch-mismatch"
	StatusFailed                       OutcomeStatus = "failed"
)

// MigrationOutcome captures what one repository migration accomplished.
// FailedStep and Cause are populated only for StatusFailed.
type MigrationOutcome struct {
	Repository             githubapi.RepositoryIdentifier
	Status                 OutcomeStatus
	FailedStep             StepName
	Cause                  error
	SourceCommitSHA        string
	RetargetedPullRequests []int
}

// SummaryLine renders the single-line report entry for the outcome.
func (outcome MigrationOutcome) SummaryLine() string {
	switch outcome.Status {
	case StatusMigrated:
		return fmt.Sprintf(migratedSummaryTemplateConstant, outcome.Repository.String())
	case StatusSkippedMissingSourceBranch:
		return fmt.Sprintf(missingSourceBranchSummaryTemplateConstant, outcome.Repository.String())
	case StatusSkippedDefaultBranchMismatch:
		return fmt.Sprintf(defaultBranchMismatchSummaryTemplateConstant, outcome.Repository.String())
	case StatusFailed:
		return fmt.Sprintf(failedSummaryTemplateConstant, outcome.Repository.String(), outcome.FailedStep, outcome.Cause)
	default:
		return fmt.Sprintf(unknownStatusSummaryTemplateConstant, outcome.Repository.String(), outcome.Status)
	}
}

// BatchSummary aggregates outcome counts across a migration batch.
type BatchSummary struct {
	Total    int
	Migrated int
	Skipped  int
	Failed   int
}

// Record folds one outcome into the summary counts.
func (summary *BatchSummary) Record(outcome MigrationOutcome) {
	summary.Total++
	switch outcome.Status {
	case StatusMigrated:
		summary.Migrated++
	case StatusFailed:
		summary.Failed++
	default:
		summary.Skipped++
	}
}
