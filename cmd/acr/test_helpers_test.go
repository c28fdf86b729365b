package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/CivicActions/Drupal-ACR/internal/config"
	"github.com/CivicActions/Drupal-ACR/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	tracker    *httptest.Server
	provider   *httptest.Server
	calls      *atomic.Int32
}

// setupCLITestEnv writes a config pointing at a fake tracker and a fake
// gemini endpoint. Extra options run before the config file is written.
func setupCLITestEnv(t *testing.T, opts ...func(*config.Config)) *cliTestEnv {
	t.Helper()

	tracker := httptest.NewServer(fakeTrackerHandler())
	t.Cleanup(tracker.Close)
	calls := &atomic.Int32{}
	provider := httptest.NewServer(fakeGeminiHandler(calls))
	t.Cleanup(provider.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithTrackerURL(tracker.URL),
		testsupport.WithLLMBaseURL(provider.URL),
	)
	cfg.Logging.Level = "error"
	for _, opt := range opts {
		opt(cfg)
	}

	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	return &cliTestEnv{
		cfg:        cfg,
		configPath: testsupport.WriteConfig(t, cfg),
		baseDir:    base,
		tracker:    tracker,
		provider:   provider,
		calls:      calls,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeTrackerHandler serves one open issue for the 1.1.1 tag and nothing for
// any other tag.
func fakeTrackerHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/project/issues/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("issue_tags") == "wcag111" {
			fmt.Fprint(w, `<td class="views-field views-field-title"><a href="/project/drupal/issues/501">Logo image lacks alt text</a></td>`)
			return
		}
		fmt.Fprint(w, `<p>No issues</p>`)
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<h1>Logo image lacks alt text</h1>
<div>Status: Active</div><div>Priority: Major</div>
<div class="field--name-body"><p>The site logo renders without an alt attribute.</p></div>
<section class="comments">
  <div class="comment"><span class="username">zed</span>
    <div class="field--name-comment-body"><p>Patch attached.</p></div></div>
</section>
</body></html>`)
	})
	return mux
}

// fakeGeminiHandler answers summary prompts with labeled notes and criterion
// prompts with an assessment.
func fakeGeminiHandler(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var prompt string
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				prompt += p.Text
			}
		}
		text := "ASSESSMENT: NOT_SUPPORTED\nNARRATIVE: Several images are missing text alternatives."
		if strings.Contains(prompt, "COMPLIANCE_NOTE:") {
			text = "COMPLIANCE_NOTE: Missing alt text blocks access for screen reader users.\n" +
				"DEVELOPER_NOTE: Add an alt attribute to the logo.\n" +
				"TITLE_ASSESSMENT: acceptable\n" +
				"CRITERION_ASSESSMENT: agree"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
				"finishReason": "STOP",
			}},
		})
	})
}
