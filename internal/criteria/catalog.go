package criteria

import (
	"sort"
	"strconv"
	"strings"

	"github.com/CivicActions/Drupal-ACR/internal/model"
)

// Criterion is one WCAG success criterion and the tracker tag used to find
// issues filed against it.
type Criterion struct {
	Code string
	Name string
	Tier model.Tier
	Tag  string
}

// catalog enumerates WCAG 2.2, including the obsolete 4.1.1. Tags are listed
// explicitly; there is no rule that derives a code from a tag.
var catalog = []Criterion{
	{"1.1.1", "Non-text Content", model.TierA, "wcag111"},
	{"1.2.1", "Audio-only and Video-only (Prerecorded)", model.TierA, "wcag121"},
	{"1.2.2", "Captions (Prerecorded)", model.TierA, "wcag122"},
	{"1.2.3", "Audio Description or Media Alternative (Prerecorded)", model.TierA, "wcag123"},
	{"1.2.4", "Captions (Live)", model.TierAA, "wcag124"},
	{"1.2.5", "Audio Description (Prerecorded)", model.TierAA, "wcag125"},
	{"1.2.6", "Sign Language (Prerecorded)", model.TierAAA, "wcag126"},
	{"1.2.7", "Extended Audio Description (Prerecorded)", model.TierAAA, "wcag127"},
	{"1.2.8", "Media Alternative (Prerecorded)", model.TierAAA, "wcag128"},
	{"1.2.9", "Audio-only (Live)", model.TierAAA, "wcag129"},
	{"1.3.1", "Info and Relationships", model.TierA, "wcag131"},
	{"1.3.2", "Meaningful Sequence", model.TierA, "wcag132"},
	{"1.3.3", "Sensory Characteristics", model.TierA, "wcag133"},
	{"1.3.4", "Orientation", model.TierAA, "wcag134"},
	{"1.3.5", "Identify Input Purpose", model.TierAA, "wcag135"},
	{"1.3.6", "Identify Purpose", model.TierAAA, "wcag136"},
	{"1.4.1", "Use of Color", model.TierA, "wcag141"},
	{"1.4.2", "Audio Control", model.TierA, "wcag142"},
	{"1.4.3", "Contrast (Minimum)", model.TierAA, "wcag143"},
	{"1.4.4", "Resize Text", model.TierAA, "wcag144"},
	{"1.4.5", "Images of Text", model.TierAA, "wcag145"},
	{"1.4.6", "Contrast (Enhanced)", model.TierAAA, "wcag146"},
	{"1.4.7", "Low or No Background Audio", model.TierAAA, "wcag147"},
	{"1.4.8", "Visual Presentation", model.TierAAA, "wcag148"},
	{"1.4.9", "Images of Text (No Exception)", model.TierAAA, "wcag149"},
	{"1.4.10", "Reflow", model.TierAA, "wcag1410"},
	{"1.4.11", "Non-text Contrast", model.TierAA, "wcag1411"},
	{"1.4.12", "Text Spacing", model.TierAA, "wcag1412"},
	{"1.4.13", "Content on Hover or Focus", model.TierAA, "wcag1413"},
	{"2.1.1", "Keyboard", model.TierA, "wcag211"},
	{"2.1.2", "No Keyboard Trap", model.TierA, "wcag212"},
	{"2.1.3", "Keyboard (No Exception)", model.TierAAA, "wcag213"},
	{"2.1.4", "Character Key Shortcuts", model.TierA, "wcag214"},
	{"2.2.1", "Timing Adjustable", model.TierA, "wcag221"},
	{"2.2.2", "Pause, Stop, Hide", model.TierA, "wcag222"},
	{"2.2.3", "No Timing", model.TierAAA, "wcag223"},
	{"2.2.4", "Interruptions", model.TierAAA, "wcag224"},
	{"2.2.5", "Re-authenticating", model.TierAAA, "wcag225"},
	{"2.2.6", "Timeouts", model.TierAAA, "wcag226"},
	{"2.3.1", "Three Flashes or Below Threshold", model.TierA, "wcag231"},
	{"2.3.2", "Three Flashes", model.TierAAA, "wcag232"},
	{"2.3.3", "Animation from Interactions", model.TierAAA, "wcag233"},
	{"2.4.1", "Bypass Blocks", model.TierA, "wcag241"},
	{"2.4.2", "Page Titled", model.TierA, "wcag242"},
	{"2.4.3", "Focus Order", model.TierA, "wcag243"},
	{"2.4.4", "Link Purpose (In Context)", model.TierA, "wcag244"},
	{"2.4.5", "Multiple Ways", model.TierAA, "wcag245"},
	{"2.4.6", "Headings and Labels", model.TierAA, "wcag246"},
	{"2.4.7", "Focus Visible", model.TierAA, "wcag247"},
	{"2.4.8", "Location", model.TierAAA, "wcag248"},
	{"2.4.9", "Link Purpose (Link Only)", model.TierAAA, "wcag249"},
	{"2.4.10", "Section Headings", model.TierAAA, "wcag2410"},
	{"2.4.11", "Focus Not Obscured (Minimum)", model.TierAA, "wcag2411"},
	{"2.4.12", "Focus Not Obscured (Enhanced)", model.TierAAA, "wcag2412"},
	{"2.4.13", "Focus Appearance", model.TierAAA, "wcag2413"},
	{"2.5.1", "Pointer Gestures", model.TierA, "wcag251"},
	{"2.5.2", "Pointer Cancellation", model.TierA, "wcag252"},
	{"2.5.3", "Label in Name", model.TierA, "wcag253"},
	{"2.5.4", "Motion Actuation", model.TierA, "wcag254"},
	{"2.5.5", "Target Size (Enhanced)", model.TierAAA, "wcag255"},
	{"2.5.6", "Concurrent Input Mechanisms", model.TierAAA, "wcag256"},
	{"2.5.7", "Dragging Movements", model.TierAA, "wcag257"},
	{"2.5.8", "Target Size (Minimum)", model.TierAA, "wcag258"},
	{"3.1.1", "Language of Page", model.TierA, "wcag311"},
	{"3.1.2", "Language of Parts", model.TierAA, "wcag312"},
	{"3.1.3", "Unusual Words", model.TierAAA, "wcag313"},
	{"3.1.4", "Abbreviations", model.TierAAA, "wcag314"},
	{"3.1.5", "Reading Level", model.TierAAA, "wcag315"},
	{"3.1.6", "Pronunciation", model.TierAAA, "wcag316"},
	{"3.2.1", "On Focus", model.TierA, "wcag321"},
	{"3.2.2", "On Input", model.TierA, "wcag322"},
	{"3.2.3", "Consistent Navigation", model.TierAA, "wcag323"},
	{"3.2.4", "Consistent Identification", model.TierAA, "wcag324"},
	{"3.2.5", "Change on Request", model.TierAAA, "wcag325"},
	{"3.2.6", "Consistent Help", model.TierA, "wcag326"},
	{"3.3.1", "Error Identification", model.TierA, "wcag331"},
	{"3.3.2", "Labels or Instructions", model.TierA, "wcag332"},
	{"3.3.3", "Error Suggestion", model.TierAA, "wcag333"},
	{"3.3.4", "Error Prevention (Legal, Financial, Data)", model.TierAA, "wcag334"},
	{"3.3.5", "Help", model.TierAAA, "wcag335"},
	{"3.3.6", "Error Prevention (All)", model.TierAAA, "wcag336"},
	{"3.3.7", "Redundant Entry", model.TierA, "wcag337"},
	{"3.3.8", "Accessible Authentication (Minimum)", model.TierAA, "wcag338"},
	{"3.3.9", "Accessible Authentication (Enhanced)", model.TierAAA, "wcag339"},
	{"4.1.1", "Parsing (Obsolete and removed)", model.TierA, "wcag411"},
	{"4.1.2", "Name, Role, Value", model.TierA, "wcag412"},
	{"4.1.3", "Status Messages", model.TierAA, "wcag413"},
}

var (
	byCode = make(map[string]Criterion, len(catalog))
	byTag  = make(map[string]string, len(catalog))
)

func init() {
	for _, c := range catalog {
		byCode[c.Code] = c
		byTag[c.Tag] = c.Code
	}
}

// All returns the catalog in numeric code order.
func All() []Criterion {
	out := append([]Criterion(nil), catalog...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i].Code, out[j].Code) })
	return out
}

// Lookup returns the criterion for code.
func Lookup(code string) (Criterion, bool) {
	c, ok := byCode[strings.TrimSpace(code)]
	return c, ok
}

// CodeForTag maps a tracker tag such as "wcag1410" to its dotted code.
func CodeForTag(tag string) (string, bool) {
	code, ok := byTag[strings.ToLower(strings.TrimSpace(tag))]
	return code, ok
}

// TierOf returns the conformance tier for code. Codes outside the catalog are
// treated as AA.
func TierOf(code string) model.Tier {
	if c, ok := Lookup(code); ok {
		return c.Tier
	}
	return model.TierAA
}

// Select resolves a list of codes against the catalog. An empty list selects
// every criterion. Unknown codes are returned separately.
func Select(codes []string) ([]Criterion, []string) {
	if len(codes) == 0 {
		return All(), nil
	}
	seen := make(map[string]bool, len(codes))
	var selected []Criterion
	var unknown []string
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		c, ok := Lookup(code)
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		selected = append(selected, c)
	}
	sort.SliceStable(selected, func(i, j int) bool { return Less(selected[i].Code, selected[j].Code) })
	return selected, unknown
}

// Less orders dotted codes numerically so that 1.4.2 sorts before 1.4.10.
// Non-numeric segments fall back to string comparison.
func Less(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}
