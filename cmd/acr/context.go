package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/CivicActions/Drupal-ACR/internal/aggregator"
	"github.com/CivicActions/Drupal-ACR/internal/collector"
	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/llm"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/notifications"
	"github.com/CivicActions/Drupal-ACR/internal/pipeline"
	"github.com/CivicActions/Drupal-ACR/internal/renderer"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/summarizer"
	"github.com/CivicActions/Drupal-ACR/internal/tracker"
)

type commandContext struct {
	configFlag    *string
	outputDirFlag *string
	logLevelFlag  *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	metrics *metrics.Registry
}

func newCommandContext(configFlag, outputDirFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		outputDirFlag: outputDirFlag,
		logLevelFlag:  logLevelFlag,
		metrics:       metrics.NewRegistry(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if dir := flagValue(c.outputDirFlag); dir != "" {
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --output-dir: %w", err)
				return
			}
			cfg.Paths.OutputDir = expanded
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) notifier() notifications.Service {
	cfg, _ := c.ensureConfig()
	return notifications.NewService(cfg)
}

// stageInputs carries the per-command flags and positional paths that the
// stage factory threads into each handler.
type stageInputs struct {
	codes           []string
	limit           int
	issuesPath      string
	summariesPath   string
	assessmentsPath string
	reportPath      string
}

// stageFactory builds handlers lazily so credentials are only required by the
// AI stages that actually run.
func (c *commandContext) stageFactory(inputs stageInputs) pipeline.Factory {
	return func(name string) (stage.Handler, error) {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		logger, err := c.ensureLogger()
		if err != nil {
			return nil, err
		}
		outputDir := cfg.Paths.OutputDir

		switch name {
		case stage.Collect:
			selected, unknown := criteria.Select(inputs.codes)
			if len(unknown) > 0 {
				return nil, services.Wrap(services.ErrConfiguration, stage.Collect, "select criteria",
					fmt.Sprintf("unknown criterion codes: %s", strings.Join(unknown, ", ")), nil)
			}
			session, err := c.newSession(cfg, logger)
			if err != nil {
				return nil, err
			}
			return collector.New(session, outputDir, selected, collector.Options{
				MaxPages:       cfg.Tracker.MaxPages,
				CriteriaDelay:  seconds(cfg.Tracker.CriteriaDelaySeconds),
				CooldownEvery:  cfg.Tracker.CooldownEvery,
				Cooldown:       seconds(cfg.Tracker.CooldownSeconds),
				BlockedBackoff: cfg.Tracker.BlockedBackoffSteps,
			}, logger, collector.WithMetrics(c.metrics)), nil

		case stage.Summarize:
			provider, err := c.newProvider(cfg)
			if err != nil {
				return nil, err
			}
			session, err := c.newSession(cfg, logger)
			if err != nil {
				return nil, err
			}
			return summarizer.New(session, provider, outputDir, summarizer.Options{
				InputPath:  inputs.issuesPath,
				Limit:      inputs.limit,
				CallDelay:  seconds(cfg.LLM.CallDelaySeconds),
				CallJitter: seconds(cfg.LLM.CallJitterSeconds),
			}, logger, summarizer.WithMetrics(c.metrics)), nil

		case stage.Aggregate:
			provider, err := c.newProvider(cfg)
			if err != nil {
				return nil, err
			}
			return aggregator.New(provider, outputDir, aggregator.Options{
				IssuesPath:       inputs.issuesPath,
				SummariesPath:    inputs.summariesPath,
				OverloadCooldown: seconds(cfg.Aggregator.OverloadCooldownSeconds),
				CallDelay:        seconds(cfg.LLM.CallDelaySeconds),
				CallJitter:       seconds(cfg.LLM.CallJitterSeconds),
			}, logger, aggregator.WithMetrics(c.metrics)), nil

		case stage.Render:
			return renderer.New(outputDir, renderer.Options{
				InputPath:      inputs.assessmentsPath,
				OutputPath:     inputs.reportPath,
				HeaderPath:     cfg.Renderer.HeaderPath,
				ProductName:    cfg.Renderer.ProductName,
				ProductVersion: cfg.Renderer.ProductVersion,
			}, logger, renderer.WithMetrics(c.metrics)), nil

		default:
			return nil, services.Wrap(services.ErrConfiguration, "cli", "build stage",
				fmt.Sprintf("unknown stage %q", name), nil)
		}
	}
}

func (c *commandContext) newSession(cfg *config.Config, logger *slog.Logger) (*tracker.Session, error) {
	return tracker.NewSession(cfg.Tracker.BaseURL,
		tracker.WithDelays(
			time.Duration(cfg.Tracker.MinDelayMillis)*time.Millisecond,
			time.Duration(cfg.Tracker.MaxDelayMillis)*time.Millisecond,
		),
		tracker.WithTimeout(seconds(cfg.Tracker.RequestTimeoutSeconds)),
		tracker.WithIdentities(cfg.Tracker.Identities),
		tracker.WithLogger(logger),
		tracker.WithMetrics(c.metrics),
	)
}

func (c *commandContext) newProvider(cfg *config.Config) (llm.Provider, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	return llm.New(cfg.LLM, llm.WithMetrics(c.metrics))
}

// flushMetrics writes the metrics textfile when one is configured.
func (c *commandContext) flushMetrics() {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.Paths.MetricsFile == "" {
		return
	}
	if err := c.metrics.WriteTextfile(cfg.Paths.MetricsFile); err != nil {
		if logger, lerr := c.ensureLogger(); lerr == nil {
			logger.Warn("metrics textfile not written", logging.Error(err))
		}
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
