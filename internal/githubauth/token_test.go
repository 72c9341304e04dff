package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubauth"
)

func TestResolveTokenHonorsPreferenceOrder(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		expectedToken string
		expectFound   bool
	}{
		{
			name:          "CLITokenPreferred",
			environment:   map[string]string{githubauth.EnvGitHubCLIToken: "cli-token", githubauth.EnvGitHubToken: "plain-token"},
			expectedToken: "cli-token",
			expectFound:   true,
		},
		{
			name:          "FallbackToGitHubToken",
			environment:   map[string]string{githubauth.EnvGitHubToken: "plain-token"},
			expectedToken: "plain-token",
			expectFound:   true,
		},
		{
			name:          "WhitespaceValueSkipped",
			environment:   map[string]string{githubauth.EnvGitHubCLIToken: "   ", githubauth.EnvGitHubAPIToken: "api-token"},
			expectedToken: "api-token",
			expectFound:   true,
		},
		{
			name:        "NoTokenAvailable",
			environment: map[string]string{},
			expectFound: false,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			environmentLookup := func(key string) (string, bool) {
				value, exists := testCase.environment[key]
				return value, exists
			}

			resolvedToken, tokenFound := githubauth.ResolveToken(environmentLookup)
			require.Equal(testInstance, testCase.expectFound, tokenFound)
			require.Equal(testInstance, testCase.expectedToken, resolvedToken)
		})
	}
}

func TestResolveTokenDefaultsToProcessEnvironment(testInstance *testing.T) {
	for _, variableName := range []string{githubauth.EnvGitHubCLIToken, githubauth.EnvGitHubToken, githubauth.EnvGitHubAPIToken} {
		testInstance.Setenv(variableName, "")
	}
	testInstance.Setenv(githubauth.EnvGitHubAPIToken, "process-token")

	resolvedToken, tokenFound := githubauth.ResolveToken(nil)
	require.True(testInstance, tokenFound)
	require.Equal(testInstance, "process-token", resolvedToken)
}
