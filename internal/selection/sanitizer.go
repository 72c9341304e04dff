package selection

import "strings"

// SanitizeRepositoryList trims whitespace, drops empty entries, and removes
// duplicates while preserving the original order.
func SanitizeRepositoryList(candidateRepositories []string) []string {
	sanitizedRepositories := make([]string, 0, len(candidateRepositories))
	seenRepositories := make(map[string]struct{}, len(candidateRepositories))

	for candidateIndex := range candidateRepositories {
		trimmedCandidate := strings.TrimSpace(candidateRepositories[candidateIndex])
		if len(trimmedCandidate) == 0 {
			continue
		}
		if _, alreadySeen := seenRepositories[trimmedCandidate]; alreadySeen {
			continue
		}

		seenRepositories[trimmedCandidate] = struct{}{}
		sanitizedRepositories = append(sanitizedRepositories, trimmedCandidate)
	}

	if len(sanitizedRepositories) == 0 {
		return nil
	}

	return sanitizedRepositories
}
