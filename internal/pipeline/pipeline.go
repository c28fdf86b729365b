package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/notifications"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/stageexec"
)

// Factory builds the handler for a stage name. It is called only for stages
// that will run, so stages that need credentials fail only when selected.
type Factory func(name string) (stage.Handler, error)

// Options selects stages and carries the shared execution concerns.
type Options struct {
	// From starts the run at the named stage.
	From string
	// Only runs the named stage alone.
	Only string
	// Skip omits the named stages.
	Skip []string

	Logger   *slog.Logger
	Notifier notifications.Service
	LockDir  string
	Now      func() time.Time
}

// Select resolves the stage names to run, in pipeline order.
func Select(from, only string, skip []string) ([]string, error) {
	from = strings.TrimSpace(strings.ToLower(from))
	only = strings.TrimSpace(strings.ToLower(only))
	if from != "" && only != "" {
		return nil, configError("--from and --only cannot be combined")
	}
	for _, name := range append([]string{from, only}, skip...) {
		if name != "" && !known(strings.ToLower(strings.TrimSpace(name))) {
			return nil, configError(fmt.Sprintf("unknown stage %q (want one of %s)", name, strings.Join(stage.Order, ", ")))
		}
	}
	if only != "" {
		return []string{only}, nil
	}

	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var out []string
	started := from == ""
	for _, name := range stage.Order {
		if name == from {
			started = true
		}
		if started && !skipped[name] {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, configError("no stages selected")
	}
	return out, nil
}

func known(name string) bool {
	for _, s := range stage.Order {
		if s == name {
			return true
		}
	}
	return false
}

func configError(message string) error {
	return services.Wrap(services.ErrConfiguration, "pipeline", "select stages", message, nil)
}

// Run executes the selected stages in order. Each stage discovers its input
// as the latest artifact of the previous one. The first failing stage stops
// the run; results of the stages that completed are returned with the error.
func Run(ctx context.Context, factory Factory, opts Options) ([]stage.Result, error) {
	if factory == nil {
		return nil, fmt.Errorf("stage factory is required")
	}
	names, err := Select(opts.From, opts.Only, opts.Skip)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	started := now()
	logger.Info("pipeline started", logging.String("stages", strings.Join(names, ",")))
	results := make([]stage.Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		handler, err := factory(name)
		if err != nil {
			return results, err
		}
		result, err := stageexec.Run(ctx, stageexec.Options{
			Logger:   logger,
			Notifier: opts.Notifier,
			Handler:  handler,
			LockDir:  opts.LockDir,
			Now:      now,
		})
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	elapsed := now().Sub(started)
	last := results[len(results)-1]
	logger.Info("pipeline completed",
		logging.String("output", last.Output),
		logging.Duration("duration", elapsed),
	)
	if opts.Notifier != nil && last.Stage == stage.Render {
		if err := opts.Notifier.Publish(ctx, notifications.EventPipelineCompleted, notifications.Payload{
			"output":   last.Output,
			"duration": elapsed,
		}); err != nil {
			logger.Debug("pipeline notification failed", logging.Error(err))
		}
	}
	return results, nil
}
