package aggregator

import (
	"context"
	"errors"
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
)

// Narratives written when no verdict could be obtained.
const (
	OverloadedNarrative = "An automated assessment could not be completed because the AI service was overloaded. This criterion requires manual review."
	MissingNarrative    = "No narrative was generated for this criterion. Manual review is required."
	errorNarrativeStart = "An automated assessment could not be completed ("
	errorNarrativeEnd   = "). This criterion requires manual review."
)

// Default retry policies per provider error class.
var (
	DefaultOverloadedPolicy  = retry.Policy{MaxAttempts: 4, BaseDelay: 15 * time.Second, MaxDelay: 2 * time.Minute}
	DefaultRateLimitedPolicy = retry.Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: time.Minute}
	DefaultNetworkPolicy     = retry.Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second, Linear: true}
)

// DefaultOverloadCooldown is the wait before the overload retry pass.
const DefaultOverloadCooldown = 30 * time.Second

// Options controls inputs, retries and pacing.
type Options struct {
	IssuesPath    string
	SummariesPath string

	Overloaded  retry.Policy
	RateLimited retry.Policy
	Network     retry.Policy

	OverloadCooldown time.Duration
	CallDelay        time.Duration
	CallJitter       time.Duration
}

func (o *Options) applyDefaults() {
	if o.Overloaded.MaxAttempts <= 0 {
		o.Overloaded = DefaultOverloadedPolicy
	}
	if o.RateLimited.MaxAttempts <= 0 {
		o.RateLimited = DefaultRateLimitedPolicy
	}
	if o.Network.MaxAttempts <= 0 {
		o.Network = DefaultNetworkPolicy
	}
	if o.OverloadCooldown < 0 {
		o.OverloadCooldown = 0
	}
}

// Outcome classifies a single criterion assessment.
type Outcome string

const (
	OutcomeAssessed    Outcome = "assessed"
	OutcomePlaceholder Outcome = "placeholder"
	OutcomeFailed      Outcome = "failed"
	OutcomeOverloaded  Outcome = "overloaded"
)

// Aggregator folds issue summaries into one assessment per criterion.
type Aggregator struct {
	provider  llm.Provider
	outputDir string
	opts      Options
	logger    *slog.Logger
	metrics   metrics.Recorder
	sleeper   retry.Sleeper
	rng       *rand.Rand
	now       func() time.Time
}

// Option customizes the aggregator.
type Option func(*Aggregator)

// WithSleeper replaces the timer used for backoff, cooldown and pacing.
func WithSleeper(sleeper retry.Sleeper) Option {
	return func(a *Aggregator) {
		if sleeper != nil {
			a.sleeper = sleeper
		}
	}
}

// WithRand sets the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(a *Aggregator) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(a *Aggregator) {
		if recorder != nil {
			a.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an aggregator.
func New(provider llm.Provider, outputDir string, opts Options, logger *slog.Logger, options ...Option) *Aggregator {
	opts.applyDefaults()
	a := &Aggregator{
		provider:  provider,
		outputDir: outputDir,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "aggregator"),
		metrics:   metrics.Nop{},
		sleeper:   retry.TimerSleeper{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Name implements stage.Handler.
func (a *Aggregator) Name() string {
	return stage.Aggregate
}

// SetLogger implements stage.LoggerAware.
func (a *Aggregator) SetLogger(logger *slog.Logger) {
	a.logger = logging.NewComponentLogger(logger, "aggregator")
}

// HealthCheck implements stage.Handler.
func (a *Aggregator) HealthCheck(context.Context) stage.Health {
	if a.provider == nil {
		return stage.Unhealthy(stage.Aggregate, "llm provider not configured")
	}
	if _, err := artifact.Issues.Resolve(a.outputDir, a.opts.IssuesPath); err != nil {
		return stage.Unhealthy(stage.Aggregate, err.Error())
	}
	if _, err := artifact.Summaries.Resolve(a.outputDir, a.opts.SummariesPath); err != nil {
		return stage.Unhealthy(stage.Aggregate, err.Error())
	}
	return stage.Healthy(stage.Aggregate)
}

// Run reads the issues and summaries artifacts, assesses every criterion, and
// writes the assessments artifact.
func (a *Aggregator) Run(ctx context.Context) (stage.Result, error) {
	if a.provider == nil {
		return stage.Result{Stage: stage.Aggregate},
			services.Wrap(services.ErrConfiguration, stage.Aggregate, "provider", "llm provider not configured", nil)
	}
	issuesPath, err := artifact.Issues.Resolve(a.outputDir, a.opts.IssuesPath)
	if err != nil {
		return stage.Result{Stage: stage.Aggregate}, err
	}
	summariesPath, err := artifact.Summaries.Resolve(a.outputDir, a.opts.SummariesPath)
	if err != nil {
		return stage.Result{Stage: stage.Aggregate}, err
	}
	records, err := artifact.ReadIssues(issuesPath)
	if err != nil {
		return stage.Result{Stage: stage.Aggregate}, err
	}
	summaries, err := artifact.ReadSummaries(summariesPath)
	if err != nil {
		return stage.Result{Stage: stage.Aggregate}, err
	}
	groups := Join(records, summaries)
	a.logger.Info("aggregating criteria",
		logging.String("issues", issuesPath),
		logging.String("summaries", summariesPath),
		logging.Int("criteria", len(groups)),
	)

	assessments, tally, err := a.AggregateAll(ctx, groups)
	if err != nil {
		return stage.Result{Stage: stage.Aggregate, Tally: tally}, err
	}
	path := artifact.Assessments.Path(a.outputDir, a.now())
	if err := artifact.WriteAssessments(path, assessments); err != nil {
		return stage.Result{Stage: stage.Aggregate, Tally: tally},
			services.Wrap(services.ErrTransient, stage.Aggregate, "write artifact", path, err)
	}
	a.logger.Info("assessments written", logging.String("path", path), logging.Int("rows", len(assessments)))
	return stage.Result{Stage: stage.Aggregate, Output: path, Rows: len(assessments), Tally: tally}, nil
}

// AggregateAll assesses each group once, then retries every overloaded
// criterion a single time after the cooldown. The result has exactly one
// assessment per group in group order.
func (a *Aggregator) AggregateAll(ctx context.Context, groups []Group) ([]model.Assessment, stage.Tally, error) {
	assessments := make([]model.Assessment, len(groups))
	outcomes := make([]Outcome, len(groups))
	var queued []int

	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, stage.Tally{}, err
		}
		if i > 0 {
			if err := a.sleeper.Sleep(ctx, a.callDelay()); err != nil {
				return nil, stage.Tally{}, err
			}
		}
		assessments[i], outcomes[i] = a.Aggregate(ctx, g.Code, g.Members)
		if err := ctx.Err(); err != nil {
			return nil, stage.Tally{}, err
		}
		if outcomes[i] == OutcomeOverloaded {
			queued = append(queued, i)
		}
	}

	if len(queued) > 0 {
		a.logger.Warn("retrying overloaded criteria after cooldown",
			logging.Int("queued", len(queued)),
			logging.Duration("cooldown", a.opts.OverloadCooldown),
		)
		if err := a.sleeper.Sleep(ctx, a.opts.OverloadCooldown); err != nil {
			return nil, stage.Tally{}, err
		}
		for _, i := range queued {
			if err := ctx.Err(); err != nil {
				return nil, stage.Tally{}, err
			}
			g := groups[i]
			assessment, outcome := a.Aggregate(ctx, g.Code, g.Members)
			if outcome == OutcomeOverloaded {
				a.logger.Warn("criterion still overloaded; leaving for manual review",
					logging.String(logging.FieldCriterion, g.Code))
			}
			assessments[i], outcomes[i] = assessment, outcome
		}
	}

	var tally stage.Tally
	for _, outcome := range outcomes {
		switch outcome {
		case OutcomeAssessed:
			tally.Succeeded++
		case OutcomePlaceholder:
			tally.Placeholder++
		case OutcomeOverloaded:
			tally.Unresolved++
		default:
			tally.Failed++
		}
		a.metrics.Unit(stage.Aggregate, string(outcome))
	}
	return assessments, tally, nil
}

// Aggregate makes one provider call, with per-class retries, for a single
// criterion. It never returns an error: failures become NEEDS_REVIEW rows and
// the outcome says why.
func (a *Aggregator) Aggregate(ctx context.Context, code string, members []Member) (model.Assessment, Outcome) {
	ctx = services.WithCriterion(ctx, code)
	logger := logging.WithContext(ctx, a.logger)

	assessment := model.Assessment{
		WCAGCode:   code,
		IssueCount: len(members),
		IssueIDs:   memberIDs(members),
	}

	text, err := a.generate(ctx, logger, BuildPrompt(code, members))
	assessment.ProcessedAt = a.now()
	if err != nil {
		assessment.Level = model.LevelNeedsReview
		if llm.IsOverloaded(err) {
			logger.Warn("criterion assessment overloaded", logging.Error(err))
			assessment.Narrative = OverloadedNarrative
			return assessment, OutcomeOverloaded
		}
		logger.Warn("criterion assessment failed", logging.String("class", llm.Class(err)), logging.Error(err))
		assessment.Narrative = errorNarrativeStart + textutil.Snippet(err.Error(), 200) + errorNarrativeEnd
		return assessment, OutcomeFailed
	}

	parsed := ParseResponse(text)
	outcome := OutcomeAssessed
	assessment.Level = parsed.Level
	if !parsed.LevelOK {
		logger.Warn("assessment level not recognized", logging.String("response", textutil.Snippet(text, 200)))
		assessment.Level = model.LevelNeedsReview
		outcome = OutcomePlaceholder
	}
	assessment.Narrative = parsed.Narrative
	if assessment.Narrative == "" {
		logger.Warn("assessment narrative missing")
		assessment.Narrative = MissingNarrative
		outcome = OutcomePlaceholder
	}
	logger.Info("criterion assessed",
		logging.String("level", string(assessment.Level)),
		logging.Int("issues", len(members)),
	)
	return assessment, outcome
}

func (a *Aggregator) generate(ctx context.Context, logger *slog.Logger, prompt string) (string, error) {
	var text string
	retrier := retry.Retrier{
		Classify: a.classify,
		Sleeper:  a.sleeper,
		Rand:     a.rng,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			a.metrics.Retry("llm", llm.Class(err))
			logger.Info("retrying assessment",
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.String("class", llm.Class(err)),
			)
		},
	}
	err := retrier.Do(ctx, func(ctx context.Context) error {
		out, err := a.provider.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		logger.Debug("retries exhausted", logging.Int("attempts", exhausted.Attempts))
	}
	return text, err
}

func (a *Aggregator) classify(err error) (retry.Policy, bool) {
	switch {
	case llm.IsOverloaded(err):
		return a.opts.Overloaded, true
	case llm.IsRateLimited(err):
		return a.opts.RateLimited, true
	case llm.IsNetwork(err):
		return a.opts.Network, true
	}
	return retry.Policy{}, false
}

func (a *Aggregator) callDelay() time.Duration {
	delay := a.opts.CallDelay
	if a.opts.CallJitter > 0 {
		delay += time.Duration(a.rng.Int63n(int64(a.opts.CallJitter) + 1))
	}
	return delay
}
