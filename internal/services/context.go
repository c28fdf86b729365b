package services

import "context"

type contextKey string

const (
	stageKey     contextKey = "stage"
	runIDKey     contextKey = "run_id"
	criterionKey contextKey = "criterion"
)

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of one stage invocation.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the stage invocation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCriterion annotates context with the criterion code being processed.
func WithCriterion(ctx context.Context, code string) context.Context {
	if code == "" {
		return ctx
	}
	return context.WithValue(ctx, criterionKey, code)
}

// CriterionFromContext returns the criterion code if present.
func CriterionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(criterionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
