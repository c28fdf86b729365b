package services_test

import (
	"context"
	"testing"

	"github.com/CivicActions/Drupal-ACR/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "collect")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithCriterion(ctx, "1.4.3")

	if stage, ok := services.StageFromContext(ctx); !ok || stage != "collect" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if code, ok := services.CriterionFromContext(ctx); !ok || code != "1.4.3" {
		t.Fatalf("unexpected criterion: %v %v", code, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithCriterion(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.CriterionFromContext(ctx); ok {
		t.Fatal("expected no criterion value")
	}
}
