package main

import (
	"testing"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/testsupport"
)

func TestStatusWithoutArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "0 of 4 present")
	requireContains(t, out, "collect:")
	requireContains(t, out, "[WARN]")
	requireContains(t, out, "lock:")
}

func TestStatusCountsLatestArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Paths.OutputDir
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	testsupport.SeedIssues(t, dir, at, []model.IssueRecord{
		{WCAGCode: "1.1.1", Tier: model.TierA, IssueID: "1", Title: "One"},
		{WCAGCode: "1.1.1", Tier: model.TierA, IssueID: "2", Title: "Two"},
	})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "drupal_issues_2025-06-01_08-00.csv")
	requireContains(t, out, "1 of 4 present")
	requireContains(t, out, "summarize:")
	requireContains(t, out, "[OK] ready")
}
