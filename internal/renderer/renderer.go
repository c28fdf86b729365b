package renderer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
)

// Options selects input, output and header values.
type Options struct {
	// InputPath names the assessments artifact; empty selects the latest one.
	InputPath string
	// OutputPath overrides the timestamped report path.
	OutputPath     string
	HeaderPath     string
	ProductName    string
	ProductVersion string
}

// Renderer writes the OpenACR report.
type Renderer struct {
	outputDir string
	opts      Options
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(r *Renderer) {
		if recorder != nil {
			r.metrics = recorder
		}
	}
}

// WithClock overrides the time source for report_date and the file name.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a renderer.
func New(outputDir string, opts Options, logger *slog.Logger, options ...Option) *Renderer {
	r := &Renderer{
		outputDir: outputDir,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "renderer"),
		metrics:   metrics.Nop{},
		now:       time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Name implements stage.Handler.
func (r *Renderer) Name() string {
	return stage.Render
}

// SetLogger implements stage.LoggerAware.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	r.logger = logging.NewComponentLogger(logger, "renderer")
}

// HealthCheck implements stage.Handler.
func (r *Renderer) HealthCheck(context.Context) stage.Health {
	if _, err := artifact.Assessments.Resolve(r.outputDir, r.opts.InputPath); err != nil {
		return stage.Unhealthy(stage.Render, err.Error())
	}
	if _, err := LoadHeader(r.opts.HeaderPath); err != nil {
		return stage.Unhealthy(stage.Render, err.Error())
	}
	return stage.Healthy(stage.Render)
}

// Run renders the latest assessments artifact into the report.
func (r *Renderer) Run(ctx context.Context) (stage.Result, error) {
	input, err := artifact.Assessments.Resolve(r.outputDir, r.opts.InputPath)
	if err != nil {
		return stage.Result{Stage: stage.Render}, err
	}
	assessments, err := artifact.ReadAssessments(input)
	if err != nil {
		return stage.Result{Stage: stage.Render}, err
	}
	if err := ctx.Err(); err != nil {
		return stage.Result{Stage: stage.Render}, err
	}

	now := r.now()
	data, entries, err := r.Render(assessments, now)
	if err != nil {
		return stage.Result{Stage: stage.Render}, err
	}
	tally := r.tally(entries)

	path := r.opts.OutputPath
	if path == "" {
		path = artifact.Report.Path(r.outputDir, now)
	}
	err = artifact.WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return stage.Result{Stage: stage.Render, Tally: tally},
			services.Wrap(services.ErrTransient, stage.Render, "write report", path, err)
	}
	r.logger.Info("report written",
		logging.String("input", input),
		logging.String("path", path),
		logging.Int("criteria", len(entries)),
	)
	return stage.Result{Stage: stage.Render, Output: path, Rows: len(entries), Tally: tally}, nil
}

// Render maps assessments and encodes the full report document.
func (r *Renderer) Render(assessments []model.Assessment, now time.Time) ([]byte, []model.RenderedEntry, error) {
	entries, dropped := Map(assessments)
	for _, code := range dropped {
		r.logger.Info("criterion excluded from report", logging.String(logging.FieldCriterion, code))
	}
	chapters, err := Chapters(entries)
	if err != nil {
		return nil, nil, err
	}
	template, err := LoadHeader(r.opts.HeaderPath)
	if err != nil {
		return nil, nil, err
	}
	data, err := Document(template, Header{
		ProductName:    r.opts.ProductName,
		ProductVersion: r.opts.ProductVersion,
		ReportDate:     now,
	}, chapters)
	if err != nil {
		return nil, nil, err
	}
	return data, entries, nil
}

func (r *Renderer) tally(entries []model.RenderedEntry) stage.Tally {
	var tally stage.Tally
	for _, entry := range entries {
		if entry.Adherence == model.AdherenceNotEvaluated {
			tally.Placeholder++
		} else {
			tally.Succeeded++
		}
		r.metrics.Unit(stage.Render, string(entry.Adherence))
	}
	return tally
}
