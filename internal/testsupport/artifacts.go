package testsupport

import (
	"testing"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/model"
)

// SeedIssues writes an issues artifact stamped at and returns its path.
func SeedIssues(t testing.TB, dir string, at time.Time, records []model.IssueRecord) string {
	t.Helper()

	path := artifact.Issues.Path(dir, at)
	if err := artifact.WriteIssues(path, records); err != nil {
		t.Fatalf("write issues: %v", err)
	}
	return path
}

// SeedSummaries writes a summaries artifact stamped at and returns its path.
func SeedSummaries(t testing.TB, dir string, at time.Time, summaries []model.Summary) string {
	t.Helper()

	path := artifact.Summaries.Path(dir, at)
	if err := artifact.WriteSummaries(path, summaries); err != nil {
		t.Fatalf("write summaries: %v", err)
	}
	return path
}

// SeedAssessments writes an assessments artifact stamped at and returns its
// path.
func SeedAssessments(t testing.TB, dir string, at time.Time, assessments []model.Assessment) string {
	t.Helper()

	path := artifact.Assessments.Path(dir, at)
	if err := artifact.WriteAssessments(path, assessments); err != nil {
		t.Fatalf("write assessments: %v", err)
	}
	return path
}
