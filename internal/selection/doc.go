// Package selection resolves which repositories a migration batch targets.
//
// It validates selection criteria (explicit repository lists, a user scope,
// or an organization scope with an optional team), lists repositories through
// the GitHub gateway, and applies the archived and fork filters before the
// sequencer ever sees a repository.
package selection
