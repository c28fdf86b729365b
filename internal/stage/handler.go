package stage

import (
	"context"
	"log/slog"
)

// Names of the pipeline stages in execution order.
const (
	Collect   = "collect"
	Summarize = "summarize"
	Aggregate = "aggregate"
	Render    = "render"
)

// Order lists the stage names in execution order.
var Order = []string{Collect, Summarize, Aggregate, Render}

// Handler describes the contract the pipeline needs from each stage.
type Handler interface {
	Name() string
	Run(context.Context) (Result, error)
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that accept a stage-scoped logger
// before they run.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
