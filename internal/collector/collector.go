package collector

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
	"github.com/CivicActions/Drupal-ACR/internal/tracker"
)

// Options controls pagination and pacing.
type Options struct {
	MaxPages       int
	CriteriaDelay  time.Duration
	CooldownEvery  int
	Cooldown       time.Duration
	BlockedBackoff []time.Duration
}

// Outcome classifies a single criterion's collection.
type Outcome string

const (
	OutcomeCollected  Outcome = "collected"
	OutcomeFailed     Outcome = "failed"
	OutcomeUnresolved Outcome = "unresolved"
)

// CriterionResult is the collection result for one criterion.
type CriterionResult struct {
	Code    string
	Records []model.IssueRecord
	Outcome Outcome
	Source  string
	Err     error
}

// Collector scrapes the tracker for every selected criterion and writes the
// issues artifact.
type Collector struct {
	session   *tracker.Session
	parser    tracker.DetailParser
	criteria  []criteria.Criterion
	outputDir string
	opts      Options
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time

	collected int
	cooledAt  int
}

// Option customizes the collector.
type Option func(*Collector)

// WithDetailParser swaps the issue page parser.
func WithDetailParser(parser tracker.DetailParser) Option {
	return func(c *Collector) {
		if parser != nil {
			c.parser = parser
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Collector) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a collector for the given criteria.
func New(session *tracker.Session, outputDir string, selected []criteria.Criterion, opts Options, logger *slog.Logger, options ...Option) *Collector {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	c := &Collector{
		session:   session,
		parser:    tracker.RegexDetailParser{},
		criteria:  selected,
		outputDir: outputDir,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "collector"),
		metrics:   metrics.Nop{},
		now:       time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Name implements stage.Handler.
func (c *Collector) Name() string {
	return stage.Collect
}

// SetLogger implements stage.LoggerAware.
func (c *Collector) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "collector")
}

// HealthCheck implements stage.Handler.
func (c *Collector) HealthCheck(context.Context) stage.Health {
	if c.session == nil {
		return stage.Unhealthy(stage.Collect, "tracker session not configured")
	}
	if len(c.criteria) == 0 {
		return stage.Unhealthy(stage.Collect, "no criteria selected")
	}
	return stage.Healthy(stage.Collect)
}

// Run collects every criterion in order and writes the issues artifact. Per
// criterion failures are tallied; only a write failure is returned.
func (c *Collector) Run(ctx context.Context) (stage.Result, error) {
	records, tally, err := c.Collect(ctx)
	if err != nil {
		return stage.Result{Stage: stage.Collect, Tally: tally}, err
	}
	path := artifact.Issues.Path(c.outputDir, c.now())
	if err := artifact.WriteIssues(path, records); err != nil {
		return stage.Result{Stage: stage.Collect, Tally: tally},
			services.Wrap(services.ErrTransient, stage.Collect, "write artifact", path, err)
	}
	c.logger.Info("issues written",
		logging.String("path", path),
		logging.Int("records", len(records)),
		logging.Int("requests", c.session.Requests()),
	)
	return stage.Result{Stage: stage.Collect, Output: path, Rows: len(records), Tally: tally}, nil
}

// Collect runs every criterion with pacing between them and returns the
// deduplicated, sorted records.
func (c *Collector) Collect(ctx context.Context) ([]model.IssueRecord, stage.Tally, error) {
	var tally stage.Tally
	seen := make(map[model.IssueKey]bool)
	var records []model.IssueRecord

	for i, crit := range c.criteria {
		if err := ctx.Err(); err != nil {
			return nil, tally, err
		}
		if i > 0 {
			if err := c.pace(ctx); err != nil {
				return nil, tally, err
			}
		}
		result := c.CollectForCriterion(ctx, crit)
		if err := ctx.Err(); err != nil {
			return nil, tally, err
		}
		switch result.Outcome {
		case OutcomeCollected:
			tally.Succeeded++
			c.collected++
		case OutcomeUnresolved:
			tally.Unresolved++
		default:
			tally.Failed++
		}
		c.metrics.Unit(stage.Collect, string(result.Outcome))
		for _, record := range result.Records {
			if seen[record.Key()] {
				continue
			}
			seen[record.Key()] = true
			records = append(records, record)
		}
	}
	SortRecords(records)
	return records, tally, nil
}

// CollectForCriterion searches the tracker for one criterion, falling back to
// the feed and then a backoff schedule when blocked, and enriches every found
// issue from its detail page. It never returns an error; the outcome carries
// failures.
func (c *Collector) CollectForCriterion(ctx context.Context, crit criteria.Criterion) CriterionResult {
	ctx = services.WithCriterion(ctx, crit.Code)
	logger := logging.WithContext(ctx, c.logger)

	results, source, err := c.search(ctx, logger, crit)
	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, services.ErrBlocked) {
			outcome = OutcomeUnresolved
		}
		logger.Warn("criterion not collected",
			logging.String("outcome", string(outcome)),
			logging.Error(err),
		)
		return CriterionResult{Code: crit.Code, Outcome: outcome, Err: err}
	}

	records := make([]model.IssueRecord, 0, len(results))
	for _, result := range results {
		if err := ctx.Err(); err != nil {
			break
		}
		records = append(records, c.enrich(ctx, logger, crit, result))
	}
	logger.Info("criterion collected",
		logging.String("source", source),
		logging.Int("issues", len(records)),
	)
	return CriterionResult{Code: crit.Code, Records: records, Outcome: OutcomeCollected, Source: source}
}

func (c *Collector) enrich(ctx context.Context, logger *slog.Logger, crit criteria.Criterion, result tracker.SearchResult) model.IssueRecord {
	record := model.IssueRecord{
		WCAGCode: crit.Code,
		Tier:     crit.Tier,
		IssueID:  result.IssueID,
		Title:    result.Title,
		URL:      result.URL,
		Project:  result.Project,
	}
	page, err := c.session.Get(ctx, result.URL)
	if err != nil {
		logger.Warn("issue detail unavailable",
			logging.String(logging.FieldIssueID, result.IssueID),
			logging.Error(err),
		)
	} else {
		detail := c.parser.Parse(page)
		if record.Project == "" {
			record.Project = detail.Project
		}
		record.Status = detail.Status
		record.Priority = detail.Priority
		record.Component = detail.Component
		record.Version = detail.Version
		record.Reporter = detail.Reporter
		record.Created = detail.Created
		record.Updated = detail.Updated
		record.CommentCount = detail.CommentCount
		record.HasFork = detail.HasFork
		record.LastCommenter = detail.LastCommenter
	}
	record.RetrievedAt = c.now()
	return record
}

// SortRecords orders records by criterion code, then project, then issue id.
func SortRecords(records []model.IssueRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.WCAGCode != b.WCAGCode {
			return criteria.Less(a.WCAGCode, b.WCAGCode)
		}
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		return issueIDLess(a.IssueID, b.IssueID)
	})
}

func issueIDLess(a, b string) bool {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return a < b
}
