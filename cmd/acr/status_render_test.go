package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/CivicActions/Drupal-ACR/internal/stage"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("collect", statusError, "no criteria selected", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "collect:", "[ERROR] no criteria selected")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("render", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderHealthLine(t *testing.T) {
	if got := renderHealthLine(stage.Healthy(stage.Render), false); !strings.Contains(got, "[OK] ready") {
		t.Fatalf("expected ready line, got %q", got)
	}
	got := renderHealthLine(stage.Unhealthy(stage.Aggregate, "no summaries"), false)
	if !strings.Contains(got, "[WARN] no summaries") {
		t.Fatalf("expected warn line, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTableFooter(t *testing.T) {
	out := renderTable([]string{"Stage", "Rows"}, [][]string{{"collect", "3"}}, []columnAlignment{alignLeft, alignRight}, "", "3 total")
	requireContains(t, out, "collect")
	requireContains(t, out, "3 total")
}
