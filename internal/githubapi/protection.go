package githubapi

import (
	gogithub "github.com/google/go-github/v66/github"
)

// buildProtectionRequest converts the protection payload returned by a read
// into the payload the update endpoint accepts. The two representations
// differ field by field: enumerated users, teams, and apps collapse to login
// and slug lists, enabled wrappers collapse to booleans, and optional toggles
// become pointer booleans. Status checks prefer the checks list over the
// deprecated contexts list when both are present.
func buildProtectionRequest(protection *gogithub.Protection) *gogithub.ProtectionRequest {
	protectionRequest := &gogithub.ProtectionRequest{
		RequiredStatusChecks:       buildStatusChecksRequest(protection.RequiredStatusChecks),
		RequiredPullRequestReviews: buildReviewEnforcementRequest(protection.RequiredPullRequestReviews),
		EnforceAdmins:              protection.EnforceAdmins != nil && protection.EnforceAdmins.Enabled,
		Restrictions:               buildRestrictionsRequest(protection.Restrictions),
	}

	if protection.RequireLinearHistory != nil {
		protectionRequest.RequireLinearHistory = gogithub.Bool(protection.RequireLinearHistory.Enabled)
	}
	if protection.AllowForcePushes != nil {
		protectionRequest.AllowForcePushes = gogithub.Bool(protection.AllowForcePushes.Enabled)
	}
	if protection.AllowDeletions != nil {
		protectionRequest.AllowDeletions = gogithub.Bool(protection.AllowDeletions.Enabled)
	}
	if protection.RequiredConversationResolution != nil {
		protectionRequest.RequiredConversationResolution = gogithub.Bool(protection.RequiredConversationResolution.Enabled)
	}
	if protection.BlockCreations != nil {
		protectionRequest.BlockCreations = protection.BlockCreations.Enabled
	}
	if protection.LockBranch != nil {
		protectionRequest.LockBranch = protection.LockBranch.Enabled
	}
	if protection.AllowForkSyncing != nil {
		protectionRequest.AllowForkSyncing = protection.AllowForkSyncing.Enabled
	}

	return protectionRequest
}

func buildStatusChecksRequest(statusChecks *gogithub.RequiredStatusChecks) *gogithub.RequiredStatusChecks {
	if statusChecks == nil {
		return nil
	}

	statusChecksRequest := &gogithub.RequiredStatusChecks{Strict: statusChecks.Strict}
	if statusChecks.Checks != nil {
		statusChecksRequest.Checks = statusChecks.Checks
		return statusChecksRequest
	}
	statusChecksRequest.Contexts = statusChecks.Contexts
	return statusChecksRequest
}

func buildReviewEnforcementRequest(reviewEnforcement *gogithub.PullRequestReviewsEnforcement) *gogithub.PullRequestReviewsEnforcementRequest {
	if reviewEnforcement == nil {
		return nil
	}

	enforcementRequest := &gogithub.PullRequestReviewsEnforcementRequest{
		DismissStaleReviews:          reviewEnforcement.DismissStaleReviews,
		RequireCodeOwnerReviews:      reviewEnforcement.RequireCodeOwnerReviews,
		RequiredApprovingReviewCount: reviewEnforcement.RequiredApprovingReviewCount,
		RequireLastPushApproval:      gogithub.Bool(reviewEnforcement.RequireLastPushApproval),
	}

	if reviewEnforcement.DismissalRestrictions != nil {
		userLogins := collectUserLogins(reviewEnforcement.DismissalRestrictions.Users)
		teamSlugs := collectTeamSlugs(reviewEnforcement.DismissalRestrictions.Teams)
		dismissalRequest := &gogithub.DismissalRestrictionsRequest{
			Users: &userLogins,
			Teams: &teamSlugs,
		}
		if reviewEnforcement.DismissalRestrictions.Apps != nil {
			appSlugs := collectAppSlugs(reviewEnforcement.DismissalRestrictions.Apps)
			dismissalRequest.Apps = &appSlugs
		}
		enforcementRequest.DismissalRestrictionsRequest = dismissalRequest
	}

	if reviewEnforcement.BypassPullRequestAllowances != nil {
		enforcementRequest.BypassPullRequestAllowancesRequest = &gogithub.BypassPullRequestAllowancesRequest{
			Users: collectUserLogins(reviewEnforcement.BypassPullRequestAllowances.Users),
			Teams: collectTeamSlugs(reviewEnforcement.BypassPullRequestAllowances.Teams),
			Apps:  collectAppSlugs(reviewEnforcement.BypassPullRequestAllowances.Apps),
		}
	}

	return enforcementRequest
}

func buildRestrictionsRequest(restrictions *gogithub.BranchRestrictions) *gogithub.BranchRestrictionsRequest {
	if restrictions == nil {
		return nil
	}

	return &gogithub.BranchRestrictionsRequest{
		Users: collectUserLogins(restrictions.Users),
		Teams: collectTeamSlugs(restrictions.Teams),
		Apps:  collectAppSlugs(restrictions.Apps),
	}
}

func collectUserLogins(users []*gogithub.User) []string {
	logins := make([]string, 0, len(users))
	for _, user := range users {
		logins = append(logins, user.GetLogin())
	}
	return logins
}

func collectTeamSlugs(teams []*gogithub.Team) []string {
	slugs := make([]string, 0, len(teams))
	for _, team := range teams {
		slugs = append(slugs, team.GetSlug())
	}
	return slugs
}

func collectAppSlugs(apps []*gogithub.App) []string {
	slugs := make([]string, 0, len(apps))
	for _, app := range apps {
		slugs = append(slugs, app.GetSlug())
	}
	return slugs
}
