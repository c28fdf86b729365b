package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const detailFixture = `
<html><body>
<nav class="breadcrumb"><a href="/project/issues/drupal">Issues</a></nav>
<div class="field field--name-field-issue-status field--type-list-integer">
  <div class="field__label">Status:</div>
  <div class="field__item">Needs work</div>
</div>
<div class="field field--name-field-issue-priority">
  <div class="field__label">Priority:</div>
  <div class="field__item">Major</div>
</div>
<div class="field field--name-field-issue-component">
  <div class="field__label">Component:</div>
  <div class="field__item">Olivero theme</div>
</div>
<div class="field field--name-field-issue-version">
  <div class="field__label">Version:</div>
  <div class="field__item">11.x-dev</div>
</div>
<div class="issue-meta">
  <div>Reporter:</div><div><a href="/u/alice">alice</a></div>
  <div>Created: 12 January 2024 at 10:15 UTC</div>
  <div>Updated: <time datetime="2024-03-05T18:03:00+00:00">5 March 2024</time></div>
  <div>Updated by: carol</div>
</div>
<div class="issue-fork-cta"><a href="/fork">Create issue fork</a></div>
<section class="comments">
  <div id="comment-1001" class="comment"><a href="#comment-1001">Comment #1</a><span class="username">bob</span></div>
  <div id="comment-1002" class="comment"><a href="#comment-1002">Comment #2</a><span class="username">dave</span></div>
  <div id="comment-1002" class="comment-permalink"><a href="#comment-1002">Comment #2</a></div>
</section>
</body></html>`

func TestRegexDetailParserExtractsMetadata(t *testing.T) {
	d := RegexDetailParser{}.Parse(detailFixture)
	assert.Equal(t, "drupal", d.Project)
	assert.Equal(t, "Needs work", d.Status)
	assert.Equal(t, "Major", d.Priority)
	assert.Equal(t, "Olivero theme", d.Component)
	assert.Equal(t, "11.x-dev", d.Version)
	assert.Equal(t, "alice", d.Reporter)
	assert.Equal(t, "2024-01-12", d.Created)
	assert.Equal(t, "2024-03-05", d.Updated)
	assert.Equal(t, 2, d.CommentCount)
	assert.Equal(t, "dave", d.LastCommenter)
	assert.False(t, d.HasFork, "call-to-action text must not count as fork activity")
}

func TestRegexDetailParserEmptyPage(t *testing.T) {
	d := RegexDetailParser{}.Parse("<html></html>")
	assert.Equal(t, Detail{}, d)
}

func TestCountCommentsPrefersLargerOrdinal(t *testing.T) {
	page := `<div id="comment-1"></div><div id="comment-2"></div><a href="?page=1#comment-90">Comment #57</a>`
	assert.Equal(t, 57, CountComments(page))
	assert.Equal(t, 2, CountComments(`<div id="comment-1"></div><div id="comment-2"></div>`))
}

func TestHasForkActivity(t *testing.T) {
	assert.True(t, HasForkActivity(`<a href="https://git.drupalcode.org/project/drupal/-/merge_requests/4821">MR !4821</a>`))
	assert.True(t, HasForkActivity(`Issue fork drupal-3412345 is available`))
	assert.False(t, HasForkActivity(`<button>Create issue fork</button>`))
	assert.False(t, HasForkActivity(`Create a new issue fork to get started`))
}

func TestLastCommenterFallsBackToUpdatedBy(t *testing.T) {
	d := RegexDetailParser{}.Parse(`<div>Updated by: erin</div>`)
	assert.Equal(t, "erin", d.LastCommenter)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-02-29T10:00:00Z":          "2024-02-29",
		"3 Feb 2023 at 09:00 UTC":       "2023-02-03",
		"February 3, 2023":              "2023-02-03",
		"  14 September 2022 at 1:00 ": "2022-09-14",
		"yesterday":                     "",
		"":                              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), in)
	}
}
