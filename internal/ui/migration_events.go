package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marcohutzsch1234/github-default-branch/internal/migrate"
)

const (
	stepCompletedMessageTemplateConstant = "Completed %s"
	stepPreviewedMessageTemplateConstant = "Would execute %s"
	stepSkippedMessageTemplateConstant   = "Skipped %s: %s"
	stepFailedMessageTemplateConstant    = "%s failed: %s"
	stepLabelTemplateConstant            = "%s in %s"
	stepDetailSuffixTemplateConstant     = " (%s)"
	unknownFailureMessageConstant        = "unknown error"
	unknownReasonMessageConstant         = "no reason given"
	emptyStringConstant                  = ""
)

// MigrationEventFormatter builds human-readable messages for migration step events.
type MigrationEventFormatter struct{}

// BuildExecutedMessage formats the message describing a completed or previewed step.
func (formatter MigrationEventFormatter) BuildExecutedMessage(event migrate.StepEvent) string {
	messageTemplate := stepCompletedMessageTemplateConstant
	if event.DryRun {
		messageTemplate = stepPreviewedMessageTemplateConstant
	}
	return fmt.Sprintf(messageTemplate, formatter.formatStepLabel(event))
}

// BuildSkippedMessage formats the message describing a bypassed step.
func (formatter MigrationEventFormatter) BuildSkippedMessage(event migrate.StepEvent, reason string) string {
	trimmedReason := strings.TrimSpace(reason)
	if len(trimmedReason) == 0 {
		trimmedReason = unknownReasonMessageConstant
	}
	return fmt.Sprintf(stepSkippedMessageTemplateConstant, formatter.formatStepLabel(event), trimmedReason)
}

// BuildFailureMessage formats the message describing a failed step.
func (formatter MigrationEventFormatter) BuildFailureMessage(event migrate.StepEvent, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(stepFailedMessageTemplateConstant, formatter.formatStepLabel(event), failureMessage)
}

func (formatter MigrationEventFormatter) formatStepLabel(event migrate.StepEvent) string {
	stepLabel := fmt.Sprintf(stepLabelTemplateConstant, event.Step, event.Repository.String())
	return stepLabel + formatter.formatDetailSuffix(event)
}

func (formatter MigrationEventFormatter) formatDetailSuffix(event migrate.StepEvent) string {
	trimmedDetail := strings.TrimSpace(event.Detail)
	if len(trimmedDetail) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(stepDetailSuffixTemplateConstant, trimmedDetail)
}

// ConsoleMigrationEventLogger renders migration step events using a zap logger configured for human-readable output.
type ConsoleMigrationEventLogger struct {
	logger    *zap.Logger
	formatter MigrationEventFormatter
}

// NewConsoleMigrationEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleMigrationEventLogger(logger *zap.Logger) *ConsoleMigrationEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMigrationEventLogger{logger: logger, formatter: MigrationEventFormatter{}}
}

// MigrationStepExecuted implements migrate.MigrationEventObserver by logging executed and previewed steps.
func (eventLogger *ConsoleMigrationEventLogger) MigrationStepExecuted(event migrate.StepEvent) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildExecutedMessage(event))
}

// MigrationStepSkipped implements migrate.MigrationEventObserver by logging bypassed steps.
func (eventLogger *ConsoleMigrationEventLogger) MigrationStepSkipped(event migrate.StepEvent, reason string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildSkippedMessage(event, reason))
}

// MigrationStepFailed implements migrate.MigrationEventObserver by logging failed steps.
func (eventLogger *ConsoleMigrationEventLogger) MigrationStepFailed(event migrate.StepEvent, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildFailureMessage(event, failure))
}
