package renderer

import (
	"sort"

	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/model"
)

// Map applies the report rules to each assessment in precedence order:
// excluded codes are dropped, forced codes render as not applicable, and the
// rest map their level to the report vocabulary with canned text replacing the
// narrative of supported criteria. Forced codes missing from assessments are
// synthesized with no members. Entries come back in numeric code order; the
// dropped codes are returned for logging.
func Map(assessments []model.Assessment) ([]model.RenderedEntry, []string) {
	seen := make(map[string]bool, len(assessments))
	var entries []model.RenderedEntry
	var dropped []string

	for _, a := range assessments {
		if seen[a.WCAGCode] {
			continue
		}
		seen[a.WCAGCode] = true
		if criteria.Excluded(a.WCAGCode) {
			dropped = append(dropped, a.WCAGCode)
			continue
		}
		entries = append(entries, MapAssessment(a))
	}

	for _, code := range criteria.ForcedNotApplicableCodes() {
		if seen[code] {
			continue
		}
		entries = append(entries, model.RenderedEntry{
			WCAGCode:  code,
			Tier:      criteria.TierOf(code),
			Adherence: model.AdherenceNotApplicable,
			Notes:     criteria.NotApplicableNote,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return criteria.Less(entries[i].WCAGCode, entries[j].WCAGCode)
	})
	criteria.SortCodes(dropped)
	return entries, dropped
}

// MapAssessment converts a single non-excluded assessment.
func MapAssessment(a model.Assessment) model.RenderedEntry {
	entry := model.RenderedEntry{
		WCAGCode:   a.WCAGCode,
		Tier:       criteria.TierOf(a.WCAGCode),
		IssueCount: a.IssueCount,
		IssueIDs:   a.IssueIDs,
	}
	if criteria.ForcedNotApplicable(a.WCAGCode) {
		entry.Adherence = model.AdherenceNotApplicable
		entry.Notes = criteria.NotApplicableNote
		return entry
	}
	entry.Adherence = model.Adherence(a.Level)
	entry.Notes = a.Narrative
	if entry.Adherence == model.AdherenceSupports {
		if canned, ok := criteria.CannedSupports(a.WCAGCode); ok {
			entry.Notes = canned
		}
	}
	return entry
}
