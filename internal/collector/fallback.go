package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/tracker"
)

const (
	sourceHTML = "html"
	sourceFeed = "feed"
)

// search runs the HTML search, then the feed on a 403, then each backoff step
// (HTML then feed again). An error wrapping services.ErrBlocked means every
// step was blocked and the criterion is unresolved for this run.
func (c *Collector) search(ctx context.Context, logger *slog.Logger, crit criteria.Criterion) ([]tracker.SearchResult, string, error) {
	results, source, err := c.searchOnce(ctx, logger, crit)
	if err == nil || !errors.Is(err, services.ErrBlocked) {
		return results, source, err
	}

	for step, wait := range c.opts.BlockedBackoff {
		logger.Warn("tracker blocked search; backing off",
			logging.Int("step", step+1),
			logging.Int("steps", len(c.opts.BlockedBackoff)),
			logging.Duration("wait", wait),
		)
		c.metrics.Retry("tracker", "blocked")
		if err := c.session.Sleep(ctx, wait); err != nil {
			return nil, "", err
		}
		results, source, err = c.searchOnce(ctx, logger, crit)
		if err == nil || !errors.Is(err, services.ErrBlocked) {
			return results, source, err
		}
	}
	return nil, "", services.Wrap(services.ErrBlocked, "collect", "search",
		fmt.Sprintf("criterion %s still blocked after %d backoff steps", crit.Code, len(c.opts.BlockedBackoff)), err)
}

// searchOnce tries the paginated HTML search and, when blocked, the feed.
func (c *Collector) searchOnce(ctx context.Context, logger *slog.Logger, crit criteria.Criterion) ([]tracker.SearchResult, string, error) {
	results, err := c.searchHTML(ctx, logger, crit)
	if err == nil {
		return results, sourceHTML, nil
	}
	if !errors.Is(err, services.ErrBlocked) {
		return nil, "", err
	}
	logger.Info("html search blocked; trying feed", logging.Error(err))

	body, feedErr := c.session.Get(ctx, c.session.FeedURL(crit.Tag))
	if feedErr != nil {
		if errors.Is(feedErr, services.ErrBlocked) {
			return nil, "", feedErr
		}
		return nil, "", services.Wrap(services.ErrBlocked, "collect", "feed", "feed fallback failed", feedErr)
	}
	results, feedErr = c.session.ParseFeed(body)
	if feedErr != nil {
		return nil, "", services.Wrap(services.ErrBlocked, "collect", "feed", "feed fallback unreadable", feedErr)
	}
	return results, sourceFeed, nil
}

// searchHTML follows pagination up to MaxPages. A failure after the first page
// keeps the rows already found.
func (c *Collector) searchHTML(ctx context.Context, logger *slog.Logger, crit criteria.Criterion) ([]tracker.SearchResult, error) {
	seen := make(map[string]bool)
	var results []tracker.SearchResult
	for page := 0; page < c.opts.MaxPages; page++ {
		body, err := c.session.Get(ctx, c.session.SearchURL(crit.Tag, page))
		if err != nil {
			if page == 0 {
				return nil, err
			}
			logger.Warn("search pagination stopped early",
				logging.Int("page", page),
				logging.Error(err),
			)
			break
		}
		added := 0
		for _, result := range c.session.ParseSearchResults(body) {
			if seen[result.IssueID] {
				continue
			}
			seen[result.IssueID] = true
			results = append(results, result)
			added++
		}
		if added == 0 || !tracker.HasNextPage(body) {
			break
		}
	}
	return results, nil
}
