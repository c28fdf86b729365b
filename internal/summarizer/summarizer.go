package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/llm"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/retry"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
	"github.com/CivicActions/Drupal-ACR/internal/tracker"
)

// DefaultRetryPolicy applies to rate limits and network timeouts.
var DefaultRetryPolicy = retry.Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

// Options controls input selection and pacing.
type Options struct {
	// InputPath names the issues artifact; empty selects the latest one.
	InputPath string
	// Limit processes only the first Limit records when positive.
	Limit      int
	CallDelay  time.Duration
	CallJitter time.Duration
	Retry      retry.Policy
}

// Summarizer produces one summary per collected issue.
type Summarizer struct {
	session   *tracker.Session
	provider  llm.Provider
	extractor *Extractor
	outputDir string
	opts      Options
	logger    *slog.Logger
	metrics   metrics.Recorder
	sleeper   retry.Sleeper
	rng       *rand.Rand
	now       func() time.Time
}

// Option customizes the summarizer.
type Option func(*Summarizer)

// WithSleeper replaces the timer used for backoff and pacing.
func WithSleeper(sleeper retry.Sleeper) Option {
	return func(s *Summarizer) {
		if sleeper != nil {
			s.sleeper = sleeper
		}
	}
}

// WithRand sets the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Summarizer) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Summarizer) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a summarizer. A nil session skips page fetches and works
// from the artifact metadata alone.
func New(session *tracker.Session, provider llm.Provider, outputDir string, opts Options, logger *slog.Logger, options ...Option) *Summarizer {
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	s := &Summarizer{
		session:   session,
		provider:  provider,
		extractor: NewExtractor(),
		outputDir: outputDir,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "summarizer"),
		metrics:   metrics.Nop{},
		sleeper:   retry.TimerSleeper{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Name implements stage.Handler.
func (s *Summarizer) Name() string {
	return stage.Summarize
}

// SetLogger implements stage.LoggerAware.
func (s *Summarizer) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "summarizer")
}

// HealthCheck implements stage.Handler.
func (s *Summarizer) HealthCheck(context.Context) stage.Health {
	if s.provider == nil {
		return stage.Unhealthy(stage.Summarize, "llm provider not configured")
	}
	if _, err := artifact.Issues.Resolve(s.outputDir, s.opts.InputPath); err != nil {
		return stage.Unhealthy(stage.Summarize, err.Error())
	}
	return stage.Healthy(stage.Summarize)
}

// Run summarizes every record of the issues artifact and writes the summaries
// artifact. Missing input or provider is fatal; per-issue failures become
// placeholder rows.
func (s *Summarizer) Run(ctx context.Context) (stage.Result, error) {
	if s.provider == nil {
		return stage.Result{Stage: stage.Summarize},
			services.Wrap(services.ErrConfiguration, stage.Summarize, "provider", "llm provider not configured", nil)
	}
	input, err := artifact.Issues.Resolve(s.outputDir, s.opts.InputPath)
	if err != nil {
		return stage.Result{Stage: stage.Summarize}, err
	}
	records, err := artifact.ReadIssues(input)
	if err != nil {
		return stage.Result{Stage: stage.Summarize}, err
	}
	if s.opts.Limit > 0 && len(records) > s.opts.Limit {
		records = records[:s.opts.Limit]
	}
	s.logger.Info("summarizing issues",
		logging.String("input", input),
		logging.Int("records", len(records)),
		logging.String("provider", s.provider.Name()),
	)

	summaries, tally, err := s.Summarize(ctx, records)
	if err != nil {
		return stage.Result{Stage: stage.Summarize, Tally: tally}, err
	}
	path := artifact.Summaries.Path(s.outputDir, s.now())
	if err := artifact.WriteSummaries(path, summaries); err != nil {
		return stage.Result{Stage: stage.Summarize, Tally: tally},
			services.Wrap(services.ErrTransient, stage.Summarize, "write artifact", path, err)
	}
	s.logger.Info("summaries written", logging.String("path", path), logging.Int("rows", len(summaries)))
	return stage.Result{Stage: stage.Summarize, Output: path, Rows: len(summaries), Tally: tally}, nil
}

// Summarize processes records in order. Only context cancellation is
// returned as an error.
func (s *Summarizer) Summarize(ctx context.Context, records []model.IssueRecord) ([]model.Summary, stage.Tally, error) {
	var tally stage.Tally
	summaries := make([]model.Summary, 0, len(records))
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, tally, err
		}
		summary, outcome := s.SummarizeRecord(ctx, record)
		if err := ctx.Err(); err != nil {
			return nil, tally, err
		}
		switch outcome {
		case outcomeFailed:
			tally.Failed++
		case outcomePlaceholder:
			tally.Placeholder++
		default:
			tally.Succeeded++
		}
		s.metrics.Unit(stage.Summarize, outcome)
		summaries = append(summaries, summary)

		if i < len(records)-1 {
			if err := s.sleeper.Sleep(ctx, s.callDelay()); err != nil {
				return nil, tally, err
			}
		}
	}
	return summaries, tally, nil
}

const (
	outcomeSucceeded   = "succeeded"
	outcomePlaceholder = "placeholder"
	outcomeFailed      = "failed"
)

// SummarizeRecord fetches the issue page, calls the provider, and parses the
// response. The returned outcome is one of succeeded, placeholder or failed.
func (s *Summarizer) SummarizeRecord(ctx context.Context, record model.IssueRecord) (model.Summary, string) {
	ctx = services.WithCriterion(ctx, record.WCAGCode)
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldIssueID, record.IssueID))

	var page Page
	if s.session != nil && record.URL != "" {
		raw, err := s.session.Get(ctx, record.URL)
		if err != nil {
			logger.Warn("issue page unavailable; using collected metadata", logging.Error(err))
		} else {
			page = s.extractor.Extract(raw)
		}
	}

	summary := model.Summary{
		WCAGCode:     record.WCAGCode,
		IssueID:      record.IssueID,
		Participants: page.Participants,
	}

	text, err := s.generate(ctx, logger, BuildPrompt(record, page))
	summary.ProcessedAt = s.now()
	if err != nil {
		logger.Warn("summary failed", logging.String("class", llm.Class(err)), logging.Error(err))
		summary.ComplianceNote = model.ErrorPrefix + textutil.Snippet(err.Error(), 300)
		summary.DeveloperNote = PlaceholderDeveloper
		summary.TitleAssessment = PlaceholderTitle
		summary.CriterionAssessment = PlaceholderCriterion
		return summary, outcomeFailed
	}

	parsed := ParseResponse(text)
	summary.ComplianceNote = parsed.Compliance.Or(PlaceholderCompliance)
	summary.DeveloperNote = parsed.Developer.Or(PlaceholderDeveloper)
	summary.TitleAssessment = parsed.Title.Or(PlaceholderTitle)
	summary.CriterionAssessment = parsed.Criterion.Or(PlaceholderCriterion)
	if missing := parsed.Missing(); missing > 0 {
		logger.Warn("summary response incomplete", logging.Int("missing_sections", missing))
		return summary, outcomePlaceholder
	}
	logger.Debug("summary generated")
	return summary, outcomeSucceeded
}

func (s *Summarizer) generate(ctx context.Context, logger *slog.Logger, prompt string) (string, error) {
	var text string
	retrier := retry.Retrier{
		Classify: retry.Only(s.opts.Retry, retryable),
		Sleeper:  s.sleeper,
		Rand:     s.rng,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.metrics.Retry("llm", llm.Class(err))
			logger.Info("retrying summary",
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.String("class", llm.Class(err)),
			)
		},
	}
	err := retrier.Do(ctx, func(ctx context.Context) error {
		out, err := s.provider.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", fmt.Errorf("%s gave up: %w", s.provider.Name(), err)
		}
		return "", err
	}
	return text, nil
}

func retryable(err error) bool {
	return llm.IsRateLimited(err) || llm.IsTimeout(err)
}

func (s *Summarizer) callDelay() time.Duration {
	delay := s.opts.CallDelay
	if s.opts.CallJitter > 0 {
		delay += time.Duration(s.rng.Int63n(int64(s.opts.CallJitter) + 1))
	}
	return delay
}
