package aggregator

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicActions/Drupal-ACR/internal/artifact"
	"github.com/CivicActions/Drupal-ACR/internal/llm"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/retry"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type scriptedProvider struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(code string, call int) (string, error)
}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) Generate(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	code := promptCode(prompt)
	p.calls[code]++
	return p.respond(code, p.calls[code])
}

func promptCode(prompt string) string {
	const marker = "success criterion "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	code, _, _ := strings.Cut(rest, " ")
	return code
}

const supportedResponse = "ASSESSMENT: SUPPORTED\nNARRATIVE: Minor issues only."

func overloaded() error {
	return &llm.StatusError{Provider: "fake", StatusCode: http.StatusServiceUnavailable}
}

func newTestAggregator(t *testing.T, dir string, provider llm.Provider, rec *retry.Recorder, opts Options) *Aggregator {
	t.Helper()
	fixed := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	return New(provider, dir, opts, logging.NewNop(),
		WithSleeper(rec),
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return fixed }),
	)
}

func groups(codes ...string) []Group {
	out := make([]Group, len(codes))
	for i, code := range codes {
		out[i] = Group{Code: code, Members: []Member{{IssueID: "1" + code, Note: "note"}}}
	}
	return out
}

func TestOverloadOnEveryAttemptYieldsReviewSentinel(t *testing.T) {
	provider := &scriptedProvider{respond: func(code string, _ int) (string, error) {
		if code == "1.1.1" {
			return "", overloaded()
		}
		return supportedResponse, nil
	}}
	rec := &retry.Recorder{}
	a := newTestAggregator(t, t.TempDir(), provider, rec, Options{OverloadCooldown: 30 * time.Second})

	assessments, tally, err := a.AggregateAll(context.Background(), groups("1.1.1", "2.4.7"))
	require.NoError(t, err)
	require.Len(t, assessments, 2)

	assert.Equal(t, "1.1.1", assessments[0].WCAGCode)
	assert.Equal(t, model.LevelNeedsReview, assessments[0].Level)
	assert.Equal(t, OverloadedNarrative, assessments[0].Narrative)
	assert.Equal(t, model.LevelSupported, assessments[1].Level)

	assert.Equal(t, 2*DefaultOverloadedPolicy.MaxAttempts, provider.calls["1.1.1"])
	assert.Equal(t, 1, tally.Unresolved)
	assert.Equal(t, 1, tally.Succeeded)

	delays := rec.Delays()
	assert.Contains(t, delays, 15*time.Second)
	assert.Contains(t, delays, 30*time.Second)
	assert.Contains(t, delays, 60*time.Second)
}

func TestOverloadRetryPassRecovers(t *testing.T) {
	provider := &scriptedProvider{respond: func(_ string, call int) (string, error) {
		if call <= DefaultOverloadedPolicy.MaxAttempts {
			return "", overloaded()
		}
		return "ASSESSMENT: NOT_SUPPORTED\nNARRATIVE: Images lack text alternatives.", nil
	}}
	a := newTestAggregator(t, t.TempDir(), provider, &retry.Recorder{}, Options{})
	assessments, tally, err := a.AggregateAll(context.Background(), groups("1.1.1"))
	require.NoError(t, err)
	assert.Equal(t, model.LevelNotSupported, assessments[0].Level)
	assert.Equal(t, "Images lack text alternatives.", assessments[0].Narrative)
	assert.Equal(t, 1, tally.Succeeded)
}

func TestAnthropicOverloadStatusIsQueued(t *testing.T) {
	provider := &scriptedProvider{respond: func(string, int) (string, error) {
		return "", &llm.StatusError{Provider: "anthropic", StatusCode: llm.StatusOverloaded, Body: "overloaded_error"}
	}}
	a := newTestAggregator(t, t.TempDir(), provider, &retry.Recorder{}, Options{})

	assessment, outcome := a.Aggregate(context.Background(), "1.1.1", groups("1.1.1")[0].Members)
	assert.Equal(t, OutcomeOverloaded, outcome)
	assert.Equal(t, model.LevelNeedsReview, assessment.Level)
	assert.Equal(t, OverloadedNarrative, assessment.Narrative)

	_, tally, err := a.AggregateAll(context.Background(), groups("1.1.1"))
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Unresolved)
	assert.Equal(t, 3*DefaultOverloadedPolicy.MaxAttempts, provider.calls["1.1.1"])
}

func TestOtherErrorsAreNotQueued(t *testing.T) {
	provider := &scriptedProvider{respond: func(string, int) (string, error) {
		return "", &llm.StatusError{Provider: "fake", StatusCode: http.StatusBadRequest, Body: "bad prompt"}
	}}
	rec := &retry.Recorder{}
	a := newTestAggregator(t, t.TempDir(), provider, rec, Options{OverloadCooldown: 30 * time.Second})
	assessments, tally, err := a.AggregateAll(context.Background(), groups("1.1.1"))
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls["1.1.1"])
	assert.Equal(t, model.LevelNeedsReview, assessments[0].Level)
	assert.Contains(t, assessments[0].Narrative, "http 400")
	assert.Equal(t, 1, tally.Failed)
	assert.NotContains(t, rec.Delays(), 30*time.Second)
}

func TestNetworkErrorsBackOffLinearly(t *testing.T) {
	provider := &scriptedProvider{respond: func(_ string, call int) (string, error) {
		if call < 3 {
			return "", timeoutError{}
		}
		return supportedResponse, nil
	}}
	rec := &retry.Recorder{}
	a := newTestAggregator(t, t.TempDir(), provider, rec, Options{})
	assessment, outcome := a.Aggregate(context.Background(), "1.1.1", groups("1.1.1")[0].Members)
	assert.Equal(t, OutcomeAssessed, outcome)
	assert.Equal(t, model.LevelSupported, assessment.Level)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.Delays())
}

func TestUnparseableLevelNeedsReview(t *testing.T) {
	provider := &scriptedProvider{respond: func(string, int) (string, error) {
		return "ASSESSMENT: mostly fine\nNARRATIVE: Hard to say.", nil
	}}
	a := newTestAggregator(t, t.TempDir(), provider, &retry.Recorder{}, Options{})
	assessment, outcome := a.Aggregate(context.Background(), "1.4.3", groups("1.4.3")[0].Members)
	assert.Equal(t, OutcomePlaceholder, outcome)
	assert.Equal(t, model.LevelNeedsReview, assessment.Level)
	assert.Equal(t, "Hard to say.", assessment.Narrative)
}

func TestMissingNarrativeGetsPlaceholder(t *testing.T) {
	provider := &scriptedProvider{respond: func(string, int) (string, error) {
		return "ASSESSMENT: **Partially Supported**", nil
	}}
	a := newTestAggregator(t, t.TempDir(), provider, &retry.Recorder{}, Options{})
	assessment, outcome := a.Aggregate(context.Background(), "1.4.3", groups("1.4.3")[0].Members)
	assert.Equal(t, OutcomePlaceholder, outcome)
	assert.Equal(t, model.LevelPartiallySupported, assessment.Level)
	assert.Equal(t, MissingNarrative, assessment.Narrative)
}

func TestJoinMatchesOnKeyThenIssueID(t *testing.T) {
	records := []model.IssueRecord{
		{WCAGCode: "2.4.7", IssueID: "10", Title: "Focus lost"},
		{WCAGCode: "1.1.1", IssueID: "20", Title: "Logo alt"},
		{WCAGCode: "1.1.1", IssueID: "30", Title: "Icon alt"},
		{WCAGCode: "1.4.3", IssueID: "40", Title: "Low contrast"},
	}
	summaries := []model.Summary{
		{WCAGCode: "2.4.7", IssueID: "10", ComplianceNote: "Keyboard users lose focus."},
		{WCAGCode: "9.9.9", IssueID: "20", ComplianceNote: "Screen readers skip the logo."},
		{WCAGCode: "1.1.1", IssueID: "30", ComplianceNote: model.ErrorPrefix + "boom"},
	}
	got := Join(records, summaries)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1.1.1", "1.4.3", "2.4.7"}, []string{got[0].Code, got[1].Code, got[2].Code})
	assert.Equal(t, "Screen readers skip the logo.", got[0].Members[0].Note)
	assert.Equal(t, "Icon alt", got[0].Members[1].Note)
	assert.Equal(t, "Low contrast", got[1].Members[0].Note)
	assert.Equal(t, "Keyboard users lose focus.", got[2].Members[0].Note)
}

func TestBuildPromptTruncatesNotes(t *testing.T) {
	long := strings.Repeat("word ", 100)
	prompt := BuildPrompt("1.1.1", []Member{{IssueID: "7", Project: "drupal", Note: long}})
	line := ""
	for _, l := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(l, "- Issue 7 (drupal): ") {
			line = strings.TrimPrefix(l, "- Issue 7 (drupal): ")
		}
	}
	require.NotEmpty(t, line)
	assert.LessOrEqual(t, len([]rune(line)), NoteLimit)
	assert.Contains(t, prompt, "1.1.1 (Non-text Content)")
}

func TestRunWritesOneRowPerCode(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(t, artifact.WriteIssues(artifact.Issues.Path(dir, at), []model.IssueRecord{
		{WCAGCode: "2.4.7", IssueID: "10"},
		{WCAGCode: "1.1.1", IssueID: "20"},
		{WCAGCode: "1.1.1", IssueID: "21"},
	}))
	require.NoError(t, artifact.WriteSummaries(artifact.Summaries.Path(dir, at.Add(time.Hour)), []model.Summary{
		{WCAGCode: "1.1.1", IssueID: "20", ComplianceNote: "Blocks access."},
	}))
	provider := &scriptedProvider{respond: func(string, int) (string, error) { return supportedResponse, nil }}
	a := newTestAggregator(t, dir, provider, &retry.Recorder{}, Options{})
	assert.True(t, a.HealthCheck(context.Background()).Ready)

	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assessments, err := artifact.ReadAssessments(result.Output)
	require.NoError(t, err)
	require.Len(t, assessments, 2)
	assert.Equal(t, "1.1.1", assessments[0].WCAGCode)
	assert.Equal(t, 2, assessments[0].IssueCount)
	assert.Equal(t, []string{"20", "21"}, assessments[0].IssueIDs)
	assert.Equal(t, "2.4.7", assessments[1].WCAGCode)
}

func TestRunWithoutSummariesIsNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, artifact.WriteIssues(artifact.Issues.Path(dir, time.Now()), nil))
	provider := &scriptedProvider{respond: func(string, int) (string, error) { return supportedResponse, nil }}
	a := newTestAggregator(t, dir, provider, &retry.Recorder{}, Options{})
	_, err := a.Run(context.Background())
	require.ErrorIs(t, err, services.ErrNotFound)
}
