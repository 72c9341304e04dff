package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
	"github.com/marcohutzsch1234/github-default-branch/internal/githubauth"
	"github.com/marcohutzsch1234/github-default-branch/internal/selection"
	"github.com/marcohutzsch1234/github-default-branch/internal/utils"
	flagutils "github.com/marcohutzsch1234/github-default-branch/internal/utils/flags"
)

const (
	commandUseConstant              = "migrate"
	commandShortDescriptionConstant = "Rename the default branch across GitHub repositories"
	commandLongDescriptionConstant  = "migrate renames the default branch entirely through the GitHub API: it creates the target branch at the source head, retargets open pull requests, updates the default branch pointer, migrates branch protection, and deletes the source branch."
	commandUserAgentConstant        = "github-default-branch"

	sourceBranchFlagNameConstant          = "from"
	sourceBranchFlagUsageConstant         = "Branch to migrate away from"
	targetBranchFlagNameConstant          = "to"
	targetBranchFlagUsageConstant         = "Branch to migrate to"
	keepSourceBranchFlagNameConstant      = "keep-old"
	keepSourceBranchFlagUsageConstant     = "Keep the old branch instead of deleting it"
	skipBranchProtectionFlagNameConstant  = "skip-branch-protection"
	skipBranchProtectionFlagUsageConstant = "Leave branch protection rules untouched"
	skipForksFlagNameConstant             = "skip-forks"
	skipForksFlagUsageConstant            = "Exclude forks from user, organization, and team selections"
	verboseFlagNameConstant               = "verbose"
	verboseFlagUsageConstant              = "Log the concrete values each step reads and writes"
	tokenFlagNameConstant                 = "token"
	tokenFlagUsageConstant                = "Token source such as env:GH_TOKEN or file:/path/to/token"
	apiBaseURLFlagNameConstant            = "api-url"
	apiBaseURLFlagUsageConstant           = "GitHub API base URL for GitHub Enterprise deployments"

	configurationFileInUseMessageConstant = "Using configuration file"
	tokenNotFoundMessageConstant          = "github token not found: set GH_TOKEN, GITHUB_TOKEN, or GITHUB_API_TOKEN, or pass --token"
	gatewayCreationErrorTemplateConstant  = "unable to construct GitHub client: %w"
	selectionErrorTemplateConstant        = "repository selection failed: %w"
	selectionFailedMessageConstant        = "Repository selection failed"
	noRepositoriesSelectedMessageConstant = "No repositories selected; nothing to do"
	migrationDeclinedMessageConstant      = "Migration not confirmed; nothing changed"
	batchCompletedMessageConstant         = "Branch migration batch completed"
	confirmationPromptTemplateConstant    = "Rename %q to %q in %d repositories? [y/N]: "
	dryRunReportHeaderConstant            = "Dry run: no changes were made."
	reportTotalsTemplateConstant          = "Processed %d repositories: %d migrated, %d skipped, %d failed.\n"

	totalRepositoriesFieldNameConstant    = "total"
	migratedRepositoriesFieldNameConstant = "migrated"
	skippedRepositoriesFieldNameConstant  = "skipped"
	failedRepositoriesFieldNameConstant   = "failed"
	configurationFileFieldNameConstant    = "config_file"
)

// errTokenNotFound reports that no usable token was resolved from flags, configuration, or the environment.
var errTokenNotFound = errors.New(tokenNotFoundMessageConstant)

// GitHubGateway aggregates the remote operations the migrate command performs.
type GitHubGateway interface {
	GitHubOperations
	selection.RepositoryLister
}

// GatewayProvider constructs the GitHub gateway for resolved client configuration.
type GatewayProvider func(clientConfiguration githubapi.ClientConfiguration) (GitHubGateway, error)

// MigrationExecutor runs one repository migration.
type MigrationExecutor interface {
	Execute(executionContext context.Context, repository githubapi.RepositoryIdentifier, options MigrationOptions) (MigrationOutcome, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// MigrationEventObserverProvider supplies the observer step events are sent to.
type MigrationEventObserverProvider func() MigrationEventObserver

type commandOptions struct {
	migration   MigrationOptions
	selection   selection.SelectionCriteria
	tokenSource string
	apiBaseURL  string
	assumeYes   bool
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	GatewayProvider       GatewayProvider
	ServiceProvider       ServiceProvider
	Prompter              ConfirmationPrompter
	EventObserverProvider MigrationEventObserverProvider
	EnvironmentLookup     githubauth.EnvironmentLookup
	FileReader            githubauth.FileReader

	selectionFlagValues *flagutils.SelectionFlagValues
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	defaults := DefaultCommandConfiguration()
	flagSet := command.Flags()
	flagSet.String(sourceBranchFlagNameConstant, defaults.SourceBranch, sourceBranchFlagUsageConstant)
	flagSet.String(targetBranchFlagNameConstant, defaults.TargetBranch, targetBranchFlagUsageConstant)
	flagSet.String(tokenFlagNameConstant, defaults.TokenSource, tokenFlagUsageConstant)
	flagSet.String(apiBaseURLFlagNameConstant, defaults.Remote.APIBaseURL, apiBaseURLFlagUsageConstant)

	builder.selectionFlagValues = flagutils.BindSelectionFlags(command, flagutils.SelectionFlagValues{})

	flagutils.AddToggleFlag(flagSet, nil, flagutils.DryRunFlagName, "", defaults.DryRun, flagutils.DryRunFlagUsage)
	flagutils.AddToggleFlag(flagSet, nil, keepSourceBranchFlagNameConstant, "", defaults.KeepSourceBranch, keepSourceBranchFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, nil, skipBranchProtectionFlagNameConstant, "", defaults.SkipBranchProtection, skipBranchProtectionFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, nil, skipForksFlagNameConstant, "", defaults.SkipForks, skipForksFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, nil, verboseFlagNameConstant, "", defaults.Verbose, verboseFlagUsageConstant)
	flagutils.AddToggleFlag(flagSet, nil, flagutils.AssumeYesFlagName, flagutils.AssumeYesFlagShorthand, defaults.AssumeYes, flagutils.AssumeYesFlagUsage)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, _ []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	contextAccessor := utils.NewCommandContextAccessor()
	if configurationFilePath, available := contextAccessor.ConfigurationFilePath(command.Context()); available && len(configurationFilePath) > 0 {
		logger.Debug(configurationFileInUseMessageConstant, zap.String(configurationFileFieldNameConstant, configurationFilePath))
	}

	token, tokenError := builder.resolveToken(command.Context(), options.tokenSource)
	if tokenError != nil {
		return tokenError
	}

	gateway, gatewayError := builder.resolveGateway(githubapi.ClientConfiguration{
		Token:      token,
		APIBaseURL: options.apiBaseURL,
		UserAgent:  commandUserAgentConstant,
	})
	if gatewayError != nil {
		return fmt.Errorf(gatewayCreationErrorTemplateConstant, gatewayError)
	}

	resolver, resolverError := selection.NewResolver(selection.ResolverDependencies{Logger: logger, RepositoryLister: gateway})
	if resolverError != nil {
		return resolverError
	}

	repositories, selectionError := resolver.Resolve(command.Context(), options.selection)
	if selectionError != nil {
		logger.Error(selectionFailedMessageConstant, zap.Error(selectionError))
		return fmt.Errorf(selectionErrorTemplateConstant, selectionError)
	}
	if len(repositories) == 0 {
		logger.Info(noRepositoriesSelectedMessageConstant)
		return nil
	}

	if !options.assumeYes && !options.migration.DryRun {
		prompt := fmt.Sprintf(confirmationPromptTemplateConstant, options.migration.SourceBranch, options.migration.TargetBranch, len(repositories))
		confirmed, confirmationError := builder.resolvePrompter(command).Confirm(prompt)
		if confirmationError != nil {
			return confirmationError
		}
		if !confirmed {
			logger.Info(migrationDeclinedMessageConstant)
			return nil
		}
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:        logger,
		GitHubClient:  gateway,
		EventObserver: builder.resolveEventObserver(),
	})
	if serviceError != nil {
		return serviceError
	}

	summary := BatchSummary{}
	outcomes := make([]MigrationOutcome, 0, len(repositories))
	for _, repository := range repositories {
		outcome, executionError := service.Execute(command.Context(), repository, options.migration)
		if executionError != nil {
			return executionError
		}
		outcomes = append(outcomes, outcome)
		summary.Record(outcome)
	}

	builder.writeReport(command, options.migration, outcomes, summary)
	logger.Info(batchCompletedMessageConstant,
		zap.Int(totalRepositoriesFieldNameConstant, summary.Total),
		zap.Int(migratedRepositoriesFieldNameConstant, summary.Migrated),
		zap.Int(skippedRepositoriesFieldNameConstant, summary.Skipped),
		zap.Int(failedRepositoriesFieldNameConstant, summary.Failed),
	)

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	sourceBranch := configuration.SourceBranch
	targetBranch := configuration.TargetBranch
	tokenSource := configuration.TokenSource
	apiBaseURL := configuration.Remote.APIBaseURL
	dryRun := configuration.DryRun
	keepSourceBranch := configuration.KeepSourceBranch
	skipBranchProtection := configuration.SkipBranchProtection
	skipForks := configuration.SkipForks
	assumeYes := configuration.AssumeYes
	verbose := configuration.Verbose

	criteria := selection.SelectionCriteria{
		Repositories:     configuration.Repositories,
		UserName:         configuration.UserName,
		OrganizationName: configuration.OrganizationName,
		TeamSlug:         configuration.TeamSlug,
	}

	if command != nil {
		flagSet := command.Flags()
		if flagSet.Changed(sourceBranchFlagNameConstant) {
			flagValue, _ := flagSet.GetString(sourceBranchFlagNameConstant)
			sourceBranch = strings.TrimSpace(flagValue)
		}
		if flagSet.Changed(targetBranchFlagNameConstant) {
			flagValue, _ := flagSet.GetString(targetBranchFlagNameConstant)
			targetBranch = strings.TrimSpace(flagValue)
		}
		if flagSet.Changed(tokenFlagNameConstant) {
			flagValue, _ := flagSet.GetString(tokenFlagNameConstant)
			tokenSource = strings.TrimSpace(flagValue)
		}
		if flagSet.Changed(apiBaseURLFlagNameConstant) {
			flagValue, _ := flagSet.GetString(apiBaseURLFlagNameConstant)
			apiBaseURL = strings.TrimSpace(flagValue)
		}
		if flagSet.Changed(flagutils.DryRunFlagName) {
			dryRun, _ = flagSet.GetBool(flagutils.DryRunFlagName)
		}
		if flagSet.Changed(keepSourceBranchFlagNameConstant) {
			keepSourceBranch, _ = flagSet.GetBool(keepSourceBranchFlagNameConstant)
		}
		if flagSet.Changed(skipBranchProtectionFlagNameConstant) {
			skipBranchProtection, _ = flagSet.GetBool(skipBranchProtectionFlagNameConstant)
		}
		if flagSet.Changed(skipForksFlagNameConstant) {
			skipForks, _ = flagSet.GetBool(skipForksFlagNameConstant)
		}
		if flagSet.Changed(flagutils.AssumeYesFlagName) {
			assumeYes, _ = flagSet.GetBool(flagutils.AssumeYesFlagName)
		}
		if flagSet.Changed(verboseFlagNameConstant) {
			verbose, _ = flagSet.GetBool(verboseFlagNameConstant)
		}

		if builder.selectionFlagValues != nil {
			if flagSet.Changed(flagutils.RepositoryFlagName) {
				criteria.Repositories = builder.selectionFlagValues.Repositories
			}
			if flagSet.Changed(flagutils.UserFlagName) {
				criteria.UserName = builder.selectionFlagValues.User
			}
			if flagSet.Changed(flagutils.OrganizationFlagName) {
				criteria.OrganizationName = builder.selectionFlagValues.Organization
			}
			if flagSet.Changed(flagutils.TeamFlagName) {
				criteria.TeamSlug = builder.selectionFlagValues.Team
			}
		}

		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			if strings.EqualFold(logLevel, string(utils.LogLevelDebug)) {
				verbose = true
			}
		}
	}

	criteria.Repositories = selection.SanitizeRepositoryList(criteria.Repositories)
	criteria.SkipForks = skipForks

	migrationOptions := MigrationOptions{
		SourceBranch:         strings.TrimSpace(sourceBranch),
		TargetBranch:         strings.TrimSpace(targetBranch),
		DryRun:               dryRun,
		KeepSourceBranch:     keepSourceBranch,
		SkipBranchProtection: skipBranchProtection,
		Verbose:              verbose,
	}

	if len(migrationOptions.SourceBranch) == 0 {
		return commandOptions{}, InvalidInputError{FieldName: sourceBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(migrationOptions.TargetBranch) == 0 {
		return commandOptions{}, InvalidInputError{FieldName: targetBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if migrationOptions.SourceBranch == migrationOptions.TargetBranch {
		return commandOptions{}, InvalidInputError{FieldName: targetBranchFieldNameConstant, Message: distinctBranchesMessageConstant}
	}
	if validationError := criteria.Validate(); validationError != nil {
		return commandOptions{}, validationError
	}

	return commandOptions{
		migration:   migrationOptions,
		selection:   criteria,
		tokenSource: tokenSource,
		apiBaseURL:  apiBaseURL,
		assumeYes:   assumeYes,
	}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

// resolveToken prefers an explicit token source and falls back to the
// conventional GitHub environment variables.
func (builder *CommandBuilder) resolveToken(executionContext context.Context, tokenSource string) (string, error) {
	trimmedTokenSource := strings.TrimSpace(tokenSource)
	if len(trimmedTokenSource) > 0 {
		sourceConfiguration, parseError := githubauth.ParseTokenSource(trimmedTokenSource)
		if parseError != nil {
			return "", parseError
		}
		tokenResolver := githubauth.NewTokenResolver(builder.EnvironmentLookup, builder.FileReader)
		return tokenResolver.ResolveToken(executionContext, sourceConfiguration)
	}

	if resolvedToken, tokenFound := githubauth.ResolveToken(builder.EnvironmentLookup); tokenFound {
		return resolvedToken, nil
	}

	return "", errTokenNotFound
}

func (builder *CommandBuilder) resolveGateway(clientConfiguration githubapi.ClientConfiguration) (GitHubGateway, error) {
	if builder.GatewayProvider != nil {
		return builder.GatewayProvider(clientConfiguration)
	}
	return githubapi.NewClient(clientConfiguration)
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolvePrompter(command *cobra.Command) ConfirmationPrompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	return NewIOConfirmationPrompter(command.InOrStdin(), utils.NewFlushingWriter(command.OutOrStdout()))
}

func (builder *CommandBuilder) resolveEventObserver() MigrationEventObserver {
	if builder.EventObserverProvider == nil {
		return nil
	}
	return builder.EventObserverProvider()
}

func (builder *CommandBuilder) writeReport(command *cobra.Command, options MigrationOptions, outcomes []MigrationOutcome, summary BatchSummary) {
	outputWriter := command.OutOrStdout()
	if options.DryRun {
		fmt.Fprintln(outputWriter, dryRunReportHeaderConstant)
	}
	for _, outcome := range outcomes {
		fmt.Fprintln(outputWriter, outcome.SummaryLine())
	}
	fmt.Fprintf(outputWriter, reportTotalsTemplateConstant, summary.Total, summary.Migrated, summary.Skipped, summary.Failed)
}
