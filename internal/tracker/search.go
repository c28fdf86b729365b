package tracker

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// SearchResult is one issue row found on a search page or feed.
type SearchResult struct {
	IssueID string
	Title   string
	URL     string
	Project string
}

const (
	searchPath = "/project/issues/search"
	feedPath   = "/project/issues/search/rss"
)

func searchQuery(tag string) url.Values {
	query := url.Values{}
	query.Set("status[]", "Open")
	query.Set("issue_tags_op", "=")
	query.Set("issue_tags", tag)
	return query
}

// SearchURL builds the HTML search URL for open issues carrying tag. Page 0 is
// the first page.
func (s *Session) SearchURL(tag string, page int) string {
	query := searchQuery(tag)
	if page > 0 {
		query.Set("page", fmt.Sprint(page))
	}
	return s.baseURL + searchPath + "?" + query.Encode()
}

// FeedURL builds the RSS variant of the search.
func (s *Session) FeedURL(tag string) string {
	return s.baseURL + feedPath + "?" + searchQuery(tag).Encode()
}

type resultPattern struct {
	name string
	re   *regexp.Regexp
}

// Each pattern captures href and anchor body. Issue ids and projects are then
// read from the href.
var resultPatterns = []resultPattern{
	{"issue-link", regexp.MustCompile(`(?is)<a[^>]+href="(/project/[a-z0-9_]+/issues/\d+)"[^>]*>(.*?)</a>`)},
	{"node-link", regexp.MustCompile(`(?is)<a[^>]+href="(/node/\d+)"[^>]*>(.*?)</a>`)},
	{"absolute-link", regexp.MustCompile(`(?is)<a[^>]+href="(https?://(?:www\.)?drupal\.org/(?:project/[a-z0-9_]+/issues|node)/\d+)"[^>]*>(.*?)</a>`)},
	{"title-block", regexp.MustCompile(`(?is)<(?:td|div|h3)[^>]+class="[^"]*(?:views-field-title|search-result__title|title)[^"]*"[^>]*>\s*<a[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)},
}

var (
	issueHrefPattern = regexp.MustCompile(`(?i)/project/([a-z0-9_]+)/issues/(\d+)`)
	nodeHrefPattern  = regexp.MustCompile(`(?i)/node/(\d+)`)
	nextPagePattern  = regexp.MustCompile(`(?i)(?:pager__item--next|pager-next|rel="next")`)
)

// ParseSearchResults extracts issue rows from a search page. Rows are tried
// against every pattern and deduplicated by issue id, keeping the first match.
func (s *Session) ParseSearchResults(page string) []SearchResult {
	seen := make(map[string]bool)
	var results []SearchResult
	for _, pattern := range resultPatterns {
		for _, match := range pattern.re.FindAllStringSubmatch(page, -1) {
			result, ok := s.resultFromLink(match[1], match[2])
			if !ok || seen[result.IssueID] {
				continue
			}
			seen[result.IssueID] = true
			results = append(results, result)
		}
	}
	return results
}

func (s *Session) resultFromLink(href, anchor string) (SearchResult, bool) {
	title := CellText(anchor)
	if title == "" {
		return SearchResult{}, false
	}
	project, id := issueFromHref(href)
	if id == "" {
		return SearchResult{}, false
	}
	return SearchResult{
		IssueID: id,
		Title:   title,
		URL:     s.absoluteURL(href),
		Project: project,
	}, true
}

func issueFromHref(href string) (project, id string) {
	if m := issueHrefPattern.FindStringSubmatch(href); m != nil {
		return strings.ToLower(m[1]), m[2]
	}
	if m := nodeHrefPattern.FindStringSubmatch(href); m != nil {
		return "", m[1]
	}
	return "", ""
}

func (s *Session) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.baseURL + href
}

// HasNextPage reports whether a search page links to a following page.
func HasNextPage(page string) bool {
	return nextPagePattern.MatchString(page)
}

// ParseFeed extracts issue rows from an RSS or Atom search feed.
func (s *Session) ParseFeed(raw string) ([]SearchResult, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	seen := make(map[string]bool)
	var results []SearchResult
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := textutil.FirstNonEmpty(item.Link, item.GUID)
		project, id := issueFromHref(link)
		if id == "" || seen[id] {
			continue
		}
		title := textutil.Normalize(item.Title)
		if title == "" {
			continue
		}
		seen[id] = true
		results = append(results, SearchResult{
			IssueID: id,
			Title:   title,
			URL:     s.absoluteURL(link),
			Project: project,
		})
	}
	return results, nil
}
