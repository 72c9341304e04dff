package migrate

import "github.com/marcohutzsch1234/github-default-branch/internal/githubapi"

// StepEvent describes one migration step as it executes, previews, or skips.
type StepEvent struct {
	Repository githubapi.RepositoryIdentifier
	Step       StepName
	Detail     string
	DryRun     bool
}

// MigrationEventObserver receives notifications as migration steps progress.
type MigrationEventObserver interface {
	// MigrationStepExecuted notifies observers that a step ran or, in dry-run mode, would have run.
	MigrationStepExecuted(event StepEvent)
	// MigrationStepSkipped notifies observers that a step was bypassed and supplies the reason.
	MigrationStepSkipped(event StepEvent, reason string)
	// MigrationStepFailed reports a step whose remote operation failed.
	MigrationStepFailed(event StepEvent, failure error)
}

// noopMigrationEventObserver discards all migration events.
type noopMigrationEventObserver struct{}

// MigrationStepExecuted implements MigrationEventObserver for the no-op observer.
func (noopMigrationEventObserver) MigrationStepExecuted(StepEvent) {}

// MigrationStepSkipped implements MigrationEventObserver for the no-op observer.
func (noopMigrationEventObserver) MigrationStepSkipped(StepEvent, string) {}

// MigrationStepFailed implements MigrationEventObserver for the no-op observer.
func (noopMigrationEventObserver) MigrationStepFailed(StepEvent, error) {}
