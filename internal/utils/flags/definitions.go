// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Preview operations without making changes"
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Automatically confirm prompts"
	// RepositoryFlagName exposes the shared repository selection flag name.
	RepositoryFlagName = "repo"
	// RepositoryFlagUsage describes the shared repository selection flag purpose.
	RepositoryFlagUsage = "Repository to process as owner/name (repeatable)"
	// UserFlagName exposes the shared user selection flag name.
	UserFlagName = "user"
	// UserFlagUsage describes the shared user selection flag purpose.
	UserFlagUsage = "Process every repository owned by the named user"
	// OrganizationFlagName exposes the shared organization selection flag name.
	OrganizationFlagName = "org"
	// OrganizationFlagUsage describes the shared organization selection flag purpose.
	OrganizationFlagUsage = "Process every repository owned by the named organization"
	// TeamFlagName exposes the shared team selection flag name.
	TeamFlagName = "team"
	// TeamFlagUsage describes the shared team selection flag purpose.
	TeamFlagUsage = "Restrict the organization listing to the named team slug"
)

// SelectionFlagValues stores repository selection flag values.
type SelectionFlagValues struct {
	Repositories []string
	User         string
	Organization string
	Team         string
}

// BindSelectionFlags attaches repository selection flags to the provided command.
func BindSelectionFlags(command *cobra.Command, defaults SelectionFlagValues) *SelectionFlagValues {
	values := SelectionFlagValues{
		Repositories: append([]string{}, defaults.Repositories...),
		User:         defaults.User,
		Organization: defaults.Organization,
		Team:         defaults.Team,
	}
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	flagSet.StringSliceVar(&values.Repositories, RepositoryFlagName, values.Repositories, RepositoryFlagUsage)
	flagSet.StringVar(&values.User, UserFlagName, defaults.User, UserFlagUsage)
	flagSet.StringVar(&values.Organization, OrganizationFlagName, defaults.Organization, OrganizationFlagUsage)
	flagSet.StringVar(&values.Team, TeamFlagName, defaults.Team, TeamFlagUsage)

	return &values
}
