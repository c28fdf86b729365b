package logging

import (
	"context"
	"log/slog"

	"github.com/CivicActions/Drupal-ACR/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldRunID is the standardized structured logging key for stage invocation identifiers.
	FieldRunID = "run_id"
	// FieldCriterion is the standardized structured logging key for criterion codes.
	FieldCriterion = "criterion"
	// FieldIssueID is the standardized structured logging key for tracker issue identifiers.
	FieldIssueID = "issue_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if code, ok := services.CriterionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCriterion, code))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
