package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicActions/Drupal-ACR/internal/model"
)

func TestCatalogCodesAreUniqueAndTiered(t *testing.T) {
	seenCodes := map[string]bool{}
	seenTags := map[string]bool{}
	for _, c := range catalog {
		require.False(t, seenCodes[c.Code], "duplicate code %s", c.Code)
		require.False(t, seenTags[c.Tag], "duplicate tag %s", c.Tag)
		seenCodes[c.Code] = true
		seenTags[c.Tag] = true

		count := 0
		for _, tier := range model.Tiers {
			if c.Tier == tier {
				count++
			}
		}
		assert.Equal(t, 1, count, "code %s must belong to exactly one tier", c.Code)
	}
	assert.Len(t, catalog, 87)
}

func TestForcedAndExcludedAreDisjoint(t *testing.T) {
	for code := range forcedNotApplicable {
		assert.False(t, Excluded(code), "%s is both forced and excluded", code)
	}
}

func TestOverrideTablesReferenceCatalogCodes(t *testing.T) {
	for _, code := range ForcedNotApplicableCodes() {
		_, ok := Lookup(code)
		assert.True(t, ok, "forced code %s not in catalog", code)
	}
	for _, code := range ExcludedCodes() {
		_, ok := Lookup(code)
		assert.True(t, ok, "excluded code %s not in catalog", code)
	}
	for code := range cannedSupports {
		_, ok := Lookup(code)
		assert.True(t, ok, "canned code %s not in catalog", code)
		assert.False(t, ForcedNotApplicable(code), "canned code %s is forced", code)
	}
}

func TestCodeForTagIsExplicit(t *testing.T) {
	code, ok := CodeForTag("wcag1410")
	require.True(t, ok)
	assert.Equal(t, "1.4.10", code)

	code, ok = CodeForTag("WCAG2411")
	require.True(t, ok)
	assert.Equal(t, "2.4.11", code)

	_, ok = CodeForTag("wcag9999")
	assert.False(t, ok)
}

func TestTierOfDefaultsToAA(t *testing.T) {
	assert.Equal(t, model.TierA, TierOf("1.1.1"))
	assert.Equal(t, model.TierAAA, TierOf("2.4.10"))
	assert.Equal(t, model.TierAA, TierOf("9.9.9"))
}

func TestLessOrdersNumerically(t *testing.T) {
	codes := []string{"1.4.10", "1.4.2", "2.1.1", "1.4.1", "10.1.1", "1.4"}
	SortCodes(codes)
	assert.Equal(t, []string{"1.4", "1.4.1", "1.4.2", "1.4.10", "2.1.1", "10.1.1"}, codes)
}

func TestSelect(t *testing.T) {
	all, unknown := Select(nil)
	assert.Len(t, all, len(catalog))
	assert.Empty(t, unknown)

	selected, unknown := Select([]string{"2.1.1", "1.1.1", "2.1.1", "7.7.7"})
	require.Len(t, selected, 2)
	assert.Equal(t, "1.1.1", selected[0].Code)
	assert.Equal(t, "2.1.1", selected[1].Code)
	assert.Equal(t, []string{"7.7.7"}, unknown)
}
