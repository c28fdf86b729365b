package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAssessmentLevelAcceptsVariants(t *testing.T) {
	cases := map[string]AssessmentLevel{
		"SUPPORTED":             LevelSupported,
		" partially supported ": LevelPartiallySupported,
		"**NOT_SUPPORTED**":     LevelNotSupported,
		"not-applicable":        LevelNotApplicable,
	}
	for in, want := range cases {
		got, ok := ParseAssessmentLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "mostly", "NEEDS_REVIEW"} {
		_, ok := ParseAssessmentLevel(in)
		assert.False(t, ok, in)
	}
}

func TestAdherenceMapping(t *testing.T) {
	assert.Equal(t, AdherenceSupports, Adherence(LevelSupported))
	assert.Equal(t, AdherencePartiallySupports, Adherence(LevelPartiallySupported))
	assert.Equal(t, AdherenceDoesNotSupport, Adherence(LevelNotSupported))
	assert.Equal(t, AdherenceNotApplicable, Adherence(LevelNotApplicable))
	assert.Equal(t, AdherenceNotEvaluated, Adherence(LevelNeedsReview))
	assert.Equal(t, AdherenceNotEvaluated, Adherence("SOMETHING_ELSE"))
}

func TestSummaryFailed(t *testing.T) {
	assert.True(t, Summary{ComplianceNote: ErrorPrefix + "provider unavailable"}.Failed())
	assert.False(t, Summary{ComplianceNote: "Blocks screen reader users."}.Failed())
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("aa")
	assert.True(t, ok)
	assert.Equal(t, TierAA, tier)
	_, ok = ParseTier("B")
	assert.False(t, ok)
}
