package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/notifications"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
)

// Options controls a single stage execution.
type Options struct {
	Logger   *slog.Logger
	Notifier notifications.Service
	Handler  stage.Handler
	// LockDir is locked for the duration of the stage when set.
	LockDir string
	// RunID correlates log lines; a new id is generated when empty.
	RunID string
	// Now is the clock used for durations.
	Now func() time.Time
}

// Run executes one stage under the directory lock with a stage-scoped logger,
// logs its tally, and publishes a completion or failure notification.
func Run(ctx context.Context, opts Options) (stage.Result, error) {
	if opts.Handler == nil {
		return stage.Result{}, fmt.Errorf("stage handler unavailable")
	}
	name := opts.Handler.Name()
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	stageCtx := services.WithRunID(services.WithStage(ctx, name), runID)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if opts.LockDir != "" {
		lock, err := artifact.AcquireLock(opts.LockDir)
		if err != nil {
			return stage.Result{Stage: name}, handleFailure(stageCtx, stageLogger, opts.Notifier, name, err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				stageLogger.Warn("release directory lock", logging.Error(err))
			}
		}()
	}

	started := now()
	stageLogger.Info("stage started")
	if health := opts.Handler.HealthCheck(stageCtx); !health.Ready {
		stageLogger.Debug("stage not reporting ready", logging.String("health", health.String()))
	}

	result, err := opts.Handler.Run(stageCtx)
	if result.Stage == "" {
		result.Stage = name
	}
	if err != nil {
		return result, handleFailure(stageCtx, stageLogger, opts.Notifier, name, err)
	}

	elapsed := now().Sub(started)
	stageLogger.Info("stage completed",
		logging.String("output", result.Output),
		logging.Int("rows", result.Rows),
		logging.Int("succeeded", result.Tally.Succeeded),
		logging.Int("failed", result.Tally.Failed),
		logging.Int("placeholder", result.Tally.Placeholder),
		logging.Int("unresolved", result.Tally.Unresolved),
		logging.Duration("duration", elapsed),
	)
	if opts.Notifier != nil {
		if err := opts.Notifier.Publish(stageCtx, notifications.EventStageCompleted, notifications.Payload{
			"stage":  name,
			"tally":  result.Tally.String(),
			"output": result.Output,
		}); err != nil {
			stageLogger.Debug("stage completion notification failed", logging.Error(err))
		}
	}
	return result, nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, notifier notifications.Service, name string, stageErr error) error {
	canceled := errors.Is(stageErr, context.Canceled)
	logger.Error("stage failed",
		logging.Bool("fatal", services.IsFatal(stageErr)),
		logging.Bool("canceled", canceled),
		logging.Error(stageErr),
	)
	if notifier != nil && !canceled {
		if err := notifier.Publish(context.WithoutCancel(ctx), notifications.EventStageFailed, notifications.Payload{
			"stage": name,
			"error": stageErr,
		}); err != nil {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}
