// Package githubapi gates every GitHub REST interaction of the application.
//
// It layers typed repository, pull request, and branch protection values over
// google/go-github, classifies remote failures into typed operation errors,
// and follows pagination to exhaustion so callers always observe fully
// materialized listings.
package githubapi
