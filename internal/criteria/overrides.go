package criteria

import "sort"

// NotApplicableNote is the narrative written for forced not-applicable rows.
const NotApplicableNote = "Not applicable."

// forcedNotApplicable lists criteria Drupal core does not exercise: it ships no
// time-based media and enforces no session time limits of its own.
var forcedNotApplicable = map[string]bool{
	"1.2.1": true,
	"1.2.2": true,
	"1.2.3": true,
	"1.2.4": true,
	"1.2.5": true,
	"1.2.6": true,
	"1.2.7": true,
	"1.2.8": true,
	"1.2.9": true,
	"1.4.2": true,
	"1.4.7": true,
	"2.2.1": true,
}

// excluded lists criteria absent from the OpenACR WCAG 2.1 catalog: the WCAG
// 2.2 additions and 4.1.1, which 2.2 removed.
var excluded = map[string]bool{
	"2.4.11": true,
	"2.4.12": true,
	"2.4.13": true,
	"2.5.7":  true,
	"2.5.8":  true,
	"3.2.6":  true,
	"3.3.7":  true,
	"3.3.8":  true,
	"3.3.9":  true,
	"4.1.1":  true,
}

var cannedSupports = map[string]string{
	"1.3.4": "Drupal core themes do not restrict content to a single display orientation.",
	"1.4.4": "Drupal core themes use relative units, and text can be resized to 200 percent without loss of content or functionality.",
	"2.1.2": "Keyboard focus can be moved away from every core component using standard keys, and modal dialogs return focus on close.",
	"2.4.1": "Core themes provide a skip link to the main content region on every page.",
	"2.4.2": "Every page generated by Drupal core has a title element describing its topic or purpose.",
	"2.5.4": "Drupal core does not provide any functionality that is operated by device motion or user motion.",
	"3.1.1": "The default human language of each page is set with the lang attribute on the html element.",
	"3.2.1": "Receiving focus does not initiate a change of context in any core component.",
	"3.2.5": "Changes of context are initiated only by user request in core administrative interfaces.",
}

// ForcedNotApplicable reports whether code always renders as not-applicable.
func ForcedNotApplicable(code string) bool {
	return forcedNotApplicable[code]
}

// ForcedNotApplicableCodes returns the forced codes in numeric order.
func ForcedNotApplicableCodes() []string {
	return sortedKeys(forcedNotApplicable)
}

// Excluded reports whether code is dropped from the report.
func Excluded(code string) bool {
	return excluded[code]
}

// ExcludedCodes returns the excluded codes in numeric order.
func ExcludedCodes() []string {
	return sortedKeys(excluded)
}

// CannedSupports returns the fixed narrative used when code is fully supported.
func CannedSupports(code string) (string, bool) {
	text, ok := cannedSupports[code]
	return text, ok
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	SortCodes(out)
	return out
}

// SortCodes orders codes numerically in place.
func SortCodes(codes []string) {
	sort.Slice(codes, func(i, j int) bool { return Less(codes[i], codes[j]) })
}
