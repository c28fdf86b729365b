// Package collector implements the collect stage: it searches the issue
// tracker for every selected WCAG criterion, enriches each issue from its
// detail page, and writes the deduplicated drupal_issues artifact.
//
// A 403 on the HTML search triggers the RSS feed, then a bounded backoff
// schedule that retries HTML and feed at each step. A criterion still blocked
// after the schedule is reported as unresolved with zero records.
package collector
