package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/marcohutzsch1234/github-default-branch/internal/migrate"
	"github.com/marcohutzsch1234/github-default-branch/internal/ui"
	"github.com/marcohutzsch1234/github-default-branch/internal/utils"
	flagutils "github.com/marcohutzsch1234/github-default-branch/internal/utils/flags"
)

const (
	applicationNameConstant                 = "github-default-branch"
	applicationShortDescriptionConstant     = "Command-line interface for GitHub default branch migrations"
	applicationLongDescriptionConstant      = "github-default-branch renames the default branch across GitHub repositories entirely through the GitHub API, without cloning or touching local checkouts."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagDescriptionConstant         = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagDescriptionConstant        = "Override the configured log format."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	migrateConfigurationKeyConstant         = "migrate"
	environmentPrefixConstant               = "GITHUB_DEFAULT_BRANCH"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "github-default-branch CLI executed"
	rootCommandDebugMessageConstant         = "github-default-branch CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	versionTemplateConstant                 = "{{.Name}} version: {{.Version}}\n"
	defaultApplicationVersionConstant       = "dev"
	developmentModuleVersionConstant        = "(devel)"

	initializeFlagNameConstant                  = "init"
	initializeFlagDescriptionConstant           = "Write the embedded default configuration file and exit."
	forceFlagNameConstant                       = "force"
	forceFlagUsageConstant                      = "Overwrite an existing configuration file when initializing"
	initializeScopeLocalConstant                = "local"
	initializeScopeUserConstant                 = "user"
	userConfigurationDirectoryNameConstant      = ".github-default-branch"
	configurationFileNameConstant               = configurationNameConstant + "." + configurationTypeConstant
	configurationFileWrittenMessageConstant     = "Configuration file written"
	configurationExistsErrorTemplateConstant    = "configuration file already exists at %s (use --force to overwrite)"
	unknownInitializeScopeErrorTemplateConstant = "unknown --init scope %q: valid scopes are local and user"
	homeDirectoryErrorTemplateConstant          = "unable to resolve home directory: %w"
	configurationDirectoryErrorTemplateConstant = "unable to create configuration directory: %w"
	configurationWriteErrorTemplateConstant     = "unable to write configuration file: %w"
)

const (
	configurationFilePermissionsConstant      os.FileMode = 0o644
	configurationDirectoryPermissionsConstant os.FileMode = 0o755
)

// applicationVersion is overridable at build time via -ldflags.
var applicationVersion = defaultApplicationVersionConstant

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration `mapstructure:"common"`
	Migrate migrate.CommandConfiguration   `mapstructure:"migrate"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand              *cobra.Command
	configurationLoader      *utils.ConfigurationLoader
	loggerFactory            *utils.LoggerFactory
	logger                   *zap.Logger
	configuration            ApplicationConfiguration
	configurationMetadata    utils.LoadedConfiguration
	configurationFilePath    string
	logLevelFlagValue        string
	logFormatFlagValue       string
	initializeScopeFlagValue string
	forceOverwriteFlagValue  bool
	commandContextAccessor   utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(utils.LoaderSettings{
		ConfigurationName: configurationNameConstant,
		ConfigurationType: configurationTypeConstant,
		EnvironmentPrefix: environmentPrefixConstant,
		SearchPaths:       configurationSearchPaths(),
	})
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       resolveApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	logLevelFlagUsage := flagutils.FormatChoiceUsage(string(utils.LogLevelInfo), []string{
		string(utils.LogLevelDebug),
		string(utils.LogLevelInfo),
		string(utils.LogLevelWarn),
		string(utils.LogLevelError),
	}, logLevelFlagDescriptionConstant)
	logFormatFlagUsage := flagutils.FormatChoiceUsage(string(utils.LogFormatStructured), []string{
		string(utils.LogFormatStructured),
		string(utils.LogFormatConsole),
	}, logFormatFlagDescriptionConstant)
	initializeFlagUsage := flagutils.FormatChoiceUsage(initializeScopeLocalConstant, []string{
		initializeScopeLocalConstant,
		initializeScopeUserConstant,
	}, initializeFlagDescriptionConstant)

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetVersionTemplate(versionTemplateConstant)
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsage)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsage)

	cobraCommand.Flags().StringVar(&application.initializeScopeFlagValue, initializeFlagNameConstant, "", initializeFlagUsage)
	if initializeFlag := cobraCommand.Flags().Lookup(initializeFlagNameConstant); initializeFlag != nil {
		initializeFlag.NoOptDefVal = initializeScopeLocalConstant
	}
	flagutils.AddToggleFlag(cobraCommand.Flags(), &application.forceOverwriteFlagValue, forceFlagNameConstant, "", false, forceFlagUsageConstant)

	migrateBuilder := migrate.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return application.configuration.Migrate
		},
		EventObserverProvider: func() migrate.MigrationEventObserver {
			if application.humanReadableLoggingEnabled() {
				return ui.NewConsoleMigrationEventLogger(application.logger)
			}
			return nil
		},
	}
	migrateCommand, migrateBuildError := migrateBuilder.Build()
	if migrateBuildError == nil {
		cobraCommand.AddCommand(migrateCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
// Interrupt and termination signals cancel the command context so in-flight
// migrations stop between steps instead of being killed mid-request.
func (application *Application) Execute() error {
	executionContext, stopSignalNotifications := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalNotifications()

	application.rootCommand.SetArgs(flagutils.NormalizeToggleArguments(os.Args[1:]))
	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range migrate.DefaultConfigurationValues(migrateConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	parsedLogLevel, logLevelParseError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if logLevelParseError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelParseError)
	}
	parsedLogFormat, logFormatParseError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if logFormatParseError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatParseError)
	}

	application.configuration.Common.LogLevel = string(parsedLogLevel)
	application.configuration.Common.LogFormat = string(parsedLogFormat)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(parsedLogLevel, parsedLogFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithLogLevel(
			updatedContext,
			application.configuration.Common.LogLevel,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if command.Flags().Changed(initializeFlagNameConstant) {
		return application.initializeDefaultConfigurationFile()
	}

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

// initializeDefaultConfigurationFile writes the embedded default configuration
// to the scope requested through --init.
func (application *Application) initializeDefaultConfigurationFile() error {
	targetPath, resolveError := resolveConfigurationScopePath(application.initializeScopeFlagValue)
	if resolveError != nil {
		return resolveError
	}

	if writeError := writeDefaultConfigurationFile(targetPath, application.forceOverwriteFlagValue); writeError != nil {
		return writeError
	}

	application.logger.Info(
		configurationFileWrittenMessageConstant,
		zap.String(configurationFileFieldConstant, targetPath),
	)

	return nil
}

// resolveConfigurationScopePath maps an --init scope to the configuration file it manages.
func resolveConfigurationScopePath(scope string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "", initializeScopeLocalConstant:
		return configurationFileNameConstant, nil
	case initializeScopeUserConstant:
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return "", fmt.Errorf(homeDirectoryErrorTemplateConstant, homeError)
		}
		return filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant, configurationFileNameConstant), nil
	default:
		return "", fmt.Errorf(unknownInitializeScopeErrorTemplateConstant, scope)
	}
}

// writeDefaultConfigurationFile writes the embedded defaults to targetPath,
// refusing to overwrite an existing file unless forced.
func writeDefaultConfigurationFile(targetPath string, forceOverwrite bool) error {
	if _, statError := os.Stat(targetPath); statError == nil && !forceOverwrite {
		return fmt.Errorf(configurationExistsErrorTemplateConstant, targetPath)
	}

	configurationDirectory := filepath.Dir(targetPath)
	if configurationDirectory != defaultConfigurationSearchPathConstant {
		if directoryError := os.MkdirAll(configurationDirectory, configurationDirectoryPermissionsConstant); directoryError != nil {
			return fmt.Errorf(configurationDirectoryErrorTemplateConstant, directoryError)
		}
	}

	configurationData, _ := EmbeddedDefaultConfiguration()
	if writeError := os.WriteFile(targetPath, configurationData, configurationFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(configurationWriteErrorTemplateConstant, writeError)
	}

	return nil
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

// configurationSearchPaths lists the directories scanned for config.yaml:
// the working directory first, then the per-user configuration directory.
func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

// resolveApplicationVersion prefers the ldflags-provided version and falls back
// to module build metadata for go install builds.
func resolveApplicationVersion() string {
	if applicationVersion != defaultApplicationVersionConstant {
		return applicationVersion
	}

	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && len(buildInfo.Main.Version) > 0 && buildInfo.Main.Version != developmentModuleVersionConstant {
		return buildInfo.Main.Version
	}

	return applicationVersion
}
