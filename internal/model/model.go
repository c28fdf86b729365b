package model

import (
	"strings"
	"time"
)

// Tier is the WCAG conformance level a success criterion belongs to.
type Tier string

const (
	TierA   Tier = "A"
	TierAA  Tier = "AA"
	TierAAA Tier = "AAA"
)

// Tiers lists the tiers in ordinal order.
var Tiers = []Tier{TierA, TierAA, TierAAA}

// ParseTier accepts A, AA or AAA in any case.
func ParseTier(value string) (Tier, bool) {
	switch Tier(strings.ToUpper(strings.TrimSpace(value))) {
	case TierA:
		return TierA, true
	case TierAA:
		return TierAA, true
	case TierAAA:
		return TierAAA, true
	}
	return "", false
}

// IssueRecord is one tracker issue discovered for a criterion. Records are
// keyed by (WCAGCode, IssueID) and never modified after collection.
type IssueRecord struct {
	WCAGCode      string
	Tier          Tier
	IssueID       string
	Title         string
	URL           string
	Project       string
	Status        string
	Priority      string
	Component     string
	Version       string
	Reporter      string
	Created       string
	Updated       string
	CommentCount  int
	HasFork       bool
	LastCommenter string
	RetrievedAt   time.Time
}

// Key returns the record identity.
func (r IssueRecord) Key() IssueKey {
	return IssueKey{WCAGCode: r.WCAGCode, IssueID: r.IssueID}
}

// IssueKey identifies an issue within a criterion.
type IssueKey struct {
	WCAGCode string
	IssueID  string
}

// ErrorPrefix marks a summary whose provider call failed.
const ErrorPrefix = "ERROR: "

// Summary is the per-issue AI output.
type Summary struct {
	WCAGCode            string
	IssueID             string
	ComplianceNote      string
	DeveloperNote       string
	TitleAssessment     string
	CriterionAssessment string
	Participants        []string
	ProcessedAt         time.Time
}

// Failed reports whether the summary is an error placeholder.
func (s Summary) Failed() bool {
	return strings.HasPrefix(s.ComplianceNote, ErrorPrefix)
}

// AssessmentLevel is the intermediate per-criterion verdict.
type AssessmentLevel string

const (
	LevelSupported          AssessmentLevel = "SUPPORTED"
	LevelPartiallySupported AssessmentLevel = "PARTIALLY_SUPPORTED"
	LevelNotSupported       AssessmentLevel = "NOT_SUPPORTED"
	LevelNotApplicable      AssessmentLevel = "NOT_APPLICABLE"
	// LevelNeedsReview is written when no verdict could be obtained.
	LevelNeedsReview AssessmentLevel = "NEEDS_REVIEW"
)

// AssessmentLevels lists the verdicts a provider may return.
var AssessmentLevels = []AssessmentLevel{
	LevelSupported,
	LevelPartiallySupported,
	LevelNotSupported,
	LevelNotApplicable,
}

// ParseAssessmentLevel matches value against the provider verdicts. Spaces and
// hyphens are accepted in place of underscores.
func ParseAssessmentLevel(value string) (AssessmentLevel, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	normalized = strings.Trim(normalized, "*_.`\"'")
	for _, level := range AssessmentLevels {
		if normalized == string(level) {
			return level, true
		}
	}
	return "", false
}

// Assessment is the folded verdict for one criterion.
type Assessment struct {
	WCAGCode    string
	Level       AssessmentLevel
	Narrative   string
	IssueCount  int
	IssueIDs    []string
	ProcessedAt time.Time
}

// AdherenceLevel is the report conformance vocabulary.
type AdherenceLevel string

const (
	AdherenceSupports          AdherenceLevel = "supports"
	AdherencePartiallySupports AdherenceLevel = "partially-supports"
	AdherenceDoesNotSupport    AdherenceLevel = "does-not-support"
	AdherenceNotApplicable     AdherenceLevel = "not-applicable"
	AdherenceNotEvaluated      AdherenceLevel = "not-evaluated"
)

// Adherence maps an assessment level to the report vocabulary. Unknown levels,
// including the review sentinel, map to not-evaluated.
func Adherence(level AssessmentLevel) AdherenceLevel {
	switch level {
	case LevelSupported:
		return AdherenceSupports
	case LevelPartiallySupported:
		return AdherencePartiallySupports
	case LevelNotSupported:
		return AdherenceDoesNotSupport
	case LevelNotApplicable:
		return AdherenceNotApplicable
	default:
		return AdherenceNotEvaluated
	}
}

// RenderedEntry is one criterion row of the report.
type RenderedEntry struct {
	WCAGCode   string
	Tier       Tier
	Adherence  AdherenceLevel
	Notes      string
	IssueCount int
	IssueIDs   []string
}
