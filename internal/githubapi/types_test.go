package githubapi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marcohutzsch1234/github-default-branch/internal/githubapi"
)

func TestParseRepositoryIdentifier(testInstance *testing.T) {
	testCases := []struct {
		name               string
		candidate          string
		expectedIdentifier githubapi.RepositoryIdentifier
		expectError        bool
	}{
		{
			name:               "ValidIdentifier",
			candidate:          "octo-org/widgets",
			expectedIdentifier: githubapi.RepositoryIdentifier{Owner: "octo-org", Name: "widgets"},
		},
		{
			name:               "SurroundingWhitespaceTrimmed",
			candidate:          "  octo-org/widgets  ",
			expectedIdentifier: githubapi.RepositoryIdentifier{Owner: "octo-org", Name: "widgets"},
		},
		{
			name:        "MissingSeparator",
			candidate:   "widgets",
			expectError: true,
		},
		{
			name:        "EmptyOwner",
			candidate:   "/widgets",
			expectError: true,
		},
		{
			name:        "EmptyName",
			candidate:   "octo-org/",
			expectError: true,
		},
		{
			name:        "ExtraSeparator",
			candidate:   "octo-org/widgets/extra",
			expectError: true,
		},
		{
			name:        "BlankValue",
			candidate:   "   ",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedIdentifier, parseError := githubapi.ParseRepositoryIdentifier(testCase.candidate)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedIdentifier, parsedIdentifier)
		})
	}
}

func TestRepositoryIdentifierString(testInstance *testing.T) {
	identifier := githubapi.RepositoryIdentifier{Owner: "octo-org", Name: "widgets"}
	require.Equal(testInstance, "octo-org/widgets", identifier.String())
}
