package githubauth

import (
	"os"
	"strings"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// ResolveToken returns the first non-empty GitHub authentication token reported
// by the provided lookup, consulting GH_TOKEN, GITHUB_TOKEN, and
// GITHUB_API_TOKEN in that order. A nil lookup reads the process environment.
func ResolveToken(environmentLookup EnvironmentLookup) (string, bool) {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}

	for _, environmentVariableName := range tokenPreference {
		value, exists := environmentLookup(environmentVariableName)
		if !exists {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}

	return "", false
}
