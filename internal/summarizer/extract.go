package summarizer

import (
	"regexp"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

const (
	recentComments   = 8
	selectedComments = 5
	descriptionLimit = 4000
	commentLimit     = 1200
)

var (
	patchPattern        = regexp.MustCompile(`(?i)[\w.-]+\.(?:patch|diff)\b`)
	mergeRequestPattern = regexp.MustCompile(`(?i)(?:/merge_requests/\d+|\bMR\s*!\d+|\bmerge\s+request\b)`)
	forkPattern         = regexp.MustCompile(`(?i)(?:\bissue\s+fork\b|git\.drupalcode\.org/issue/)`)
	excessiveLines      = regexp.MustCompile(`\n{3,}`)
)

// Comment is one issue comment as Markdown.
type Comment struct {
	Author string
	Body   string
	Score  int
}

// Page is the content of an issue page used in the prompt.
type Page struct {
	Title        string
	Description  string
	Comments     []Comment
	Participants []string
}

// Extractor converts issue pages to prompt material.
type Extractor struct {
	converter *md.Converter
}

// NewExtractor constructs an extractor with GitHub-flavored Markdown output.
func NewExtractor() *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Extractor{converter: converter}
}

// Extract reads the title, description, the most relevant of the recent
// comments, and every participant name from an issue page. Malformed markup
// yields an empty Page.
func (e *Extractor) Extract(raw string) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Page{}
	}
	doc.Find("script, style, noscript").Remove()

	page := Page{
		Title:        textutil.Normalize(doc.Find("h1.page-title, h1#page-title, h1").First().Text()),
		Participants: participants(doc),
	}
	body := doc.Find(".node__content .field--name-body, .field--name-body").First()
	if body.Length() > 0 {
		page.Description = textutil.Truncate(e.markdown(body), descriptionLimit)
	}

	var comments []Comment
	doc.Find("section.comments .comment, article.comment, div.comment").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(".comment").Length() > 0 {
			return
		}
		content := s.Find(".field--name-comment-body, .comment__content").First()
		if content.Length() == 0 {
			content = s
		}
		text := e.markdown(content)
		if text == "" {
			return
		}
		comments = append(comments, Comment{
			Author: textutil.Normalize(s.Find(".username").First().Text()),
			Body:   textutil.Truncate(text, commentLimit),
		})
	})
	page.Comments = SelectComments(comments)
	return page
}

func (e *Extractor) markdown(s *goquery.Selection) string {
	html, err := goquery.OuterHtml(s)
	if err != nil {
		return textutil.NormalizeBlock(s.Text())
	}
	text, err := e.converter.ConvertString(html)
	if err != nil {
		return textutil.NormalizeBlock(s.Text())
	}
	return strings.TrimSpace(excessiveLines.ReplaceAllString(text, "\n\n"))
}

// ScoreComment awards one point each for a patch file name, a merge request
// marker, and an issue fork marker.
func ScoreComment(body string) int {
	score := 0
	for _, pattern := range []*regexp.Regexp{patchPattern, mergeRequestPattern, forkPattern} {
		if pattern.MatchString(body) {
			score++
		}
	}
	return score
}

// SelectComments keeps the eight most recent comments, scores them, and
// returns the five highest scoring. Ties keep thread order.
func SelectComments(comments []Comment) []Comment {
	if len(comments) > recentComments {
		comments = comments[len(comments)-recentComments:]
	}
	scored := make([]Comment, len(comments))
	for i, c := range comments {
		c.Score = ScoreComment(c.Body)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > selectedComments {
		scored = scored[:selectedComments]
	}
	return scored
}

func participants(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var names []string
	doc.Find(".username, a[href^='/u/']").Each(func(_ int, s *goquery.Selection) {
		name := textutil.Normalize(s.Text())
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})
	sort.Strings(names)
	return names
}
