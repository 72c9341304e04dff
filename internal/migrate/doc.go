// Package migrate implements the default branch migration workflow: it moves
// a repository from one default branch name to another entirely through the
// GitHub API, carrying open pull requests and branch protection along.
package migrate
