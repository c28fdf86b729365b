package aggregator

import (
	"sort"

	"github.com/CivicActions/Drupal-ACR/internal/model"
)

// Group is the set of members for one criterion code.
type Group struct {
	Code    string
	Members []Member
}

// Join attaches each issue's summary to its criterion group. Summaries are
// matched on (code, issue id) and then on issue id alone. Issues without a
// usable summary fall back to their title. Groups are returned in lexical
// code order with members in artifact order.
func Join(records []model.IssueRecord, summaries []model.Summary) []Group {
	byKey := make(map[model.IssueKey]model.Summary, len(summaries))
	byID := make(map[string]model.Summary, len(summaries))
	for _, s := range summaries {
		key := model.IssueKey{WCAGCode: s.WCAGCode, IssueID: s.IssueID}
		if _, ok := byKey[key]; !ok {
			byKey[key] = s
		}
		if _, ok := byID[s.IssueID]; !ok {
			byID[s.IssueID] = s
		}
	}

	groups := make(map[string]*Group)
	for _, r := range records {
		g, ok := groups[r.WCAGCode]
		if !ok {
			g = &Group{Code: r.WCAGCode}
			groups[r.WCAGCode] = g
		}
		summary, ok := byKey[r.Key()]
		if !ok {
			summary, ok = byID[r.IssueID]
		}
		note := r.Title
		if ok && !summary.Failed() && summary.ComplianceNote != "" {
			note = summary.ComplianceNote
		}
		g.Members = append(g.Members, Member{
			IssueID: r.IssueID,
			Project: r.Project,
			Title:   r.Title,
			Note:    note,
		})
	}

	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]Group, 0, len(codes))
	for _, code := range codes {
		out = append(out, *groups[code])
	}
	return out
}

func memberIDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.IssueID
	}
	return ids
}
