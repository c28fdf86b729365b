package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

// TimeLayout is used for every timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

const listSeparator = ";"

var (
	IssueColumns = []string{
		"wcag_code", "level", "issue_id", "title", "url", "project", "status", "priority",
		"component", "version", "reporter", "created", "updated", "comment_count",
		"has_fork", "last_commenter", "retrieved_at",
	}
	SummaryColumns = []string{
		"wcag_code", "issue_id", "compliance_note", "developer_note", "title_assessment",
		"criterion_assessment", "participants", "processed_at",
	}
	AssessmentColumns = []string{
		"wcag_code", "assessment", "narrative", "issue_count", "issue_ids", "processed_at",
	}
)

// WriteIssues writes the collector artifact.
func WriteIssues(path string, records []model.IssueRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.WCAGCode, string(r.Tier), r.IssueID, r.Title, r.URL, r.Project, r.Status, r.Priority,
			r.Component, r.Version, r.Reporter, r.Created, r.Updated, strconv.Itoa(r.CommentCount),
			strconv.FormatBool(r.HasFork), r.LastCommenter, formatTime(r.RetrievedAt),
		})
	}
	return writeCSV(path, IssueColumns, rows)
}

// ReadIssues loads a collector artifact.
func ReadIssues(path string) ([]model.IssueRecord, error) {
	rows, err := readCSV(path, IssueColumns)
	if err != nil {
		return nil, err
	}
	records := make([]model.IssueRecord, 0, len(rows))
	for _, row := range rows {
		tier, _ := model.ParseTier(row.get("level"))
		count, _ := strconv.Atoi(row.get("comment_count"))
		hasFork, _ := strconv.ParseBool(row.get("has_fork"))
		records = append(records, model.IssueRecord{
			WCAGCode:      row.get("wcag_code"),
			Tier:          tier,
			IssueID:       row.get("issue_id"),
			Title:         row.get("title"),
			URL:           row.get("url"),
			Project:       row.get("project"),
			Status:        row.get("status"),
			Priority:      row.get("priority"),
			Component:     row.get("component"),
			Version:       row.get("version"),
			Reporter:      row.get("reporter"),
			Created:       row.get("created"),
			Updated:       row.get("updated"),
			CommentCount:  count,
			HasFork:       hasFork,
			LastCommenter: row.get("last_commenter"),
			RetrievedAt:   parseTime(row.get("retrieved_at")),
		})
	}
	return records, nil
}

// WriteSummaries writes the summarizer artifact.
func WriteSummaries(path string, summaries []model.Summary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.WCAGCode, s.IssueID, s.ComplianceNote, s.DeveloperNote, s.TitleAssessment,
			s.CriterionAssessment, strings.Join(s.Participants, listSeparator), formatTime(s.ProcessedAt),
		})
	}
	return writeCSV(path, SummaryColumns, rows)
}

// ReadSummaries loads a summarizer artifact.
func ReadSummaries(path string) ([]model.Summary, error) {
	rows, err := readCSV(path, SummaryColumns)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, model.Summary{
			WCAGCode:            row.get("wcag_code"),
			IssueID:             row.get("issue_id"),
			ComplianceNote:      row.get("compliance_note"),
			DeveloperNote:       row.get("developer_note"),
			TitleAssessment:     row.get("title_assessment"),
			CriterionAssessment: row.get("criterion_assessment"),
			Participants:        splitList(row.get("participants")),
			ProcessedAt:         parseTime(row.get("processed_at")),
		})
	}
	return summaries, nil
}

// WriteAssessments writes the aggregator artifact.
func WriteAssessments(path string, assessments []model.Assessment) error {
	rows := make([][]string, 0, len(assessments))
	for _, a := range assessments {
		rows = append(rows, []string{
			a.WCAGCode, string(a.Level), a.Narrative, strconv.Itoa(a.IssueCount),
			strings.Join(a.IssueIDs, listSeparator), formatTime(a.ProcessedAt),
		})
	}
	return writeCSV(path, AssessmentColumns, rows)
}

// ReadAssessments loads an aggregator artifact.
func ReadAssessments(path string) ([]model.Assessment, error) {
	rows, err := readCSV(path, AssessmentColumns)
	if err != nil {
		return nil, err
	}
	assessments := make([]model.Assessment, 0, len(rows))
	for _, row := range rows {
		count, _ := strconv.Atoi(row.get("issue_count"))
		assessments = append(assessments, model.Assessment{
			WCAGCode:    row.get("wcag_code"),
			Level:       model.AssessmentLevel(strings.TrimSpace(row.get("assessment"))),
			Narrative:   row.get("narrative"),
			IssueCount:  count,
			IssueIDs:    splitList(row.get("issue_ids")),
			ProcessedAt: parseTime(row.get("processed_at")),
		})
	}
	return assessments, nil
}

// CountRows returns the number of data rows in a CSV artifact.
func CountRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	count := -1
	for {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		count++
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	return WriteFile(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := writer.WriteAll(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		return nil
	})
}

type row struct {
	index  map[string]int
	values []string
}

func (r row) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func readCSV(path string, required []string) ([]row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "artifact", "read", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrParse, "artifact", "read", fmt.Sprintf("%s is empty", path), nil)
		}
		return nil, services.Wrap(services.ErrParse, "artifact", "read header", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, services.Wrap(services.ErrParse, "artifact", "read header",
				fmt.Sprintf("%s is missing column %q", path, column), nil)
		}
	}

	var rows []row
	for {
		values, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, services.Wrap(services.ErrParse, "artifact", "read row", path, err)
		}
		rows = append(rows, row{index: index, values: values})
	}
	return rows, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
