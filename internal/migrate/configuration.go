package migrate

import (
	"strings"

	"github.com/marcohutzsch1234/github-default-branch/internal/selection"
)

const (
	defaultSourceBranchNameConstant = "master"
	defaultTargetBranchNameConstant = "main"

	configurationSourceBranchKeyConstant         = "from"
	configurationTargetBranchKeyConstant         = "to"
	configurationRepositoriesKeyConstant         = "repositories"
	configurationUserKeyConstant                 = "user"
	configurationOrganizationKeyConstant         = "org"
	configurationTeamKeyConstant                 = "team"
	configurationDryRunKeyConstant               = "dry_run"
	configurationKeepSourceBranchKeyConstant     = "keep_old"
	configurationSkipBranchProtectionKeyConstant = "skip_branch_protection"
	configurationSkipForksKeyConstant            = "skip_forks"
	configurationAssumeYesKeyConstant            = "assume_yes"
	configurationVerboseKeyConstant              = "verbose"
	configurationTokenKeyConstant                = "token"
	configurationRemoteKeyConstant               = "remote"
	configurationAPIBaseURLKeyConstant           = "api_base_url"
)

// RemoteConfiguration captures GitHub endpoint overrides.
type RemoteConfiguration struct {
	APIBaseURL string `mapstructure:"api_base_url"`
}

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	SourceBranch         string              `mapstructure:"from"`
	TargetBranch         string              `mapstructure:"to"`
	Repositories         []string            `mapstructure:"repositories"`
	UserName             string              `mapstructure:"user"`
	OrganizationName     string              `mapstructure:"org"`
	TeamSlug             string              `mapstructure:"team"`
	DryRun               bool                `mapstructure:"dry_run"`
	KeepSourceBranch     bool                `mapstructure:"keep_old"`
	SkipBranchProtection bool                `mapstructure:"skip_branch_protection"`
	SkipForks            bool                `mapstructure:"skip_forks"`
	AssumeYes            bool                `mapstructure:"assume_yes"`
	Verbose              bool                `mapstructure:"verbose"`
	TokenSource          string              `mapstructure:"token"`
	Remote               RemoteConfiguration `mapstructure:"remote"`
}

// DefaultCommandConfiguration returns baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SourceBranch: defaultSourceBranchNameConstant,
		TargetBranch: defaultTargetBranchNameConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the migrate command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationSourceBranchKeyConstant:                                      defaults.SourceBranch,
		rootKey + "." + configurationTargetBranchKeyConstant:                                      defaults.TargetBranch,
		rootKey + "." + configurationRepositoriesKeyConstant:                                      defaults.Repositories,
		rootKey + "." + configurationUserKeyConstant:                                              defaults.UserName,
		rootKey + "." + configurationOrganizationKeyConstant:                                      defaults.OrganizationName,
		rootKey + "." + configurationTeamKeyConstant:                                              defaults.TeamSlug,
		rootKey + "." + configurationDryRunKeyConstant:                                            defaults.DryRun,
		rootKey + "." + configurationKeepSourceBranchKeyConstant:                                  defaults.KeepSourceBranch,
		rootKey + "." + configurationSkipBranchProtectionKeyConstant:                              defaults.SkipBranchProtection,
		rootKey + "." + configurationSkipForksKeyConstant:                                         defaults.SkipForks,
		rootKey + "." + configurationAssumeYesKeyConstant:                                         defaults.AssumeYes,
		rootKey + "." + configurationVerboseKeyConstant:                                           defaults.Verbose,
		rootKey + "." + configurationTokenKeyConstant:                                             defaults.TokenSource,
		rootKey + "." + configurationRemoteKeyConstant + "." + configurationAPIBaseURLKeyConstant: defaults.Remote.APIBaseURL,
	}
}

// Sanitize trims configured values and drops empty repository entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.SourceBranch = strings.TrimSpace(configuration.SourceBranch)
	sanitized.TargetBranch = strings.TrimSpace(configuration.TargetBranch)
	sanitized.Repositories = selection.SanitizeRepositoryList(configuration.Repositories)
	sanitized.UserName = strings.TrimSpace(configuration.UserName)
	sanitized.OrganizationName = strings.TrimSpace(configuration.OrganizationName)
	sanitized.TeamSlug = strings.TrimSpace(configuration.TeamSlug)
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	sanitized.Remote.APIBaseURL = strings.TrimSpace(configuration.Remote.APIBaseURL)
	return sanitized
}
