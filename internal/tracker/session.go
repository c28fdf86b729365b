package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/logging"
	"github.com/CivicActions/Drupal-ACR/internal/metrics"
	"github.com/CivicActions/Drupal-ACR/internal/retry"
	"github.com/CivicActions/Drupal-ACR/internal/services"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMinDelay   = time.Second
	defaultMaxDelay   = 3 * time.Second
	maxBodyBytes      = 8 << 20
	metricsSurface    = "tracker"
	defaultIdentity   = "curl/8.5.0"
	acceptHeaderValue = "text/html,application/xhtml+xml,application/rss+xml;q=0.9,*/*;q=0.8"
)

// DefaultRetryPolicy retries transient failures three times in total with
// exponential backoff and jitter.
var DefaultRetryPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    30 * time.Second,
	Jitter:      0.5,
}

// BlockedError reports an HTTP 403 from the tracker. It is never retried by
// the session; callers decide how to fall back.
type BlockedError struct {
	URL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("tracker blocked request to %s (http 403)", e.URL)
}

// Is lets errors.Is match services.ErrBlocked.
func (e *BlockedError) Is(target error) bool {
	return target == services.ErrBlocked
}

// StatusError reports any other non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracker request %s: http %d", e.URL, e.StatusCode)
}

// Session owns all mutable request state for one collector or summarizer run:
// the cookie jar, identity rotation, and request counters.
type Session struct {
	baseURL    string
	client     *http.Client
	identities []string
	sleeper    retry.Sleeper
	rng        *rand.Rand
	minDelay   time.Duration
	maxDelay   time.Duration
	policy     retry.Policy
	logger     *slog.Logger
	metrics    metrics.Recorder

	requests  int
	successes int
}

// Option customizes the session.
type Option func(*Session)

// WithHTTPClient overrides the HTTP client. A nil jar is replaced with a fresh
// cookie jar.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper retry.Sleeper) Option {
	return func(s *Session) {
		if sleeper != nil {
			s.sleeper = sleeper
		}
	}
}

// WithRand sets the random source for delays and jitter.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithDelays sets the bounds of the random pre-request delay.
func WithDelays(minDelay, maxDelay time.Duration) Option {
	return func(s *Session) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
	}
}

// WithRetryPolicy overrides the transient-failure policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Session) {
		s.policy = policy
	}
}

// WithIdentities sets the rotating User-Agent pool.
func WithIdentities(identities []string) Option {
	return func(s *Session) {
		pool := make([]string, 0, len(identities))
		for _, identity := range identities {
			if identity = strings.TrimSpace(identity); identity != "" {
				pool = append(pool, identity)
			}
		}
		if len(pool) > 0 {
			s.identities = pool
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Session) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

// NewSession constructs a session against baseURL.
func NewSession(baseURL string, opts ...Option) (*Session, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tracker", "session", "invalid base url", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	s := &Session{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: defaultTimeout, Jar: jar},
		identities: []string{defaultIdentity},
		sleeper:    retry.TimerSleeper{},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		minDelay:   defaultMinDelay,
		maxDelay:   defaultMaxDelay,
		policy:     DefaultRetryPolicy,
		logger:     logging.NewNop(),
		metrics:    metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client.Jar == nil {
		s.client.Jar = jar
	}
	return s, nil
}

// BaseURL returns the tracker root.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Requests returns the number of requests issued, including retries.
func (s *Session) Requests() int {
	return s.requests
}

// Successes returns the number of 2xx responses received.
func (s *Session) Successes() int {
	return s.successes
}

// Sleep waits through the session sleeper.
func (s *Session) Sleep(ctx context.Context, delay time.Duration) error {
	return s.sleeper.Sleep(ctx, delay)
}

// Rand exposes the session random source so pacing shares one seed.
func (s *Session) Rand() *rand.Rand {
	return s.rng
}

// Get fetches rawURL and returns the body. Every attempt is preceded by a
// random delay. Timeouts, connection failures, and 5xx responses are retried;
// a 403 is returned at once as *BlockedError.
func (s *Session) Get(ctx context.Context, rawURL string) (string, error) {
	var body string
	retrier := retry.Retrier{
		Classify: retry.Only(s.policy, isTransient),
		Sleeper:  s.sleeper,
		Rand:     s.rng,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.metrics.Retry(metricsSurface, "network")
			s.logger.Warn("tracker request failed; retrying",
				logging.String("url", rawURL),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
			)
		},
	}
	err := retrier.Do(ctx, func(ctx context.Context) error {
		if err := s.Sleep(ctx, s.politeDelay()); err != nil {
			return err
		}
		var err error
		body, err = s.getOnce(ctx, rawURL)
		return err
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

func (s *Session) politeDelay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	span := s.maxDelay - s.minDelay
	return s.minDelay + time.Duration(s.rng.Int63n(int64(span)+1))
}

func (s *Session) nextIdentity() string {
	identity := s.identities[s.requests%len(s.identities)]
	s.requests++
	return identity
}

func (s *Session) getOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("tracker request: new request: %w", err)
	}
	req.Header.Set("User-Agent", s.nextIdentity())
	req.Header.Set("Accept", acceptHeaderValue)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.Request(metricsSurface, "error")
		return "", fmt.Errorf("tracker request %s (timeout=%s): %w", rawURL, s.client.Timeout, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		s.metrics.Request(metricsSurface, "blocked")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &BlockedError{URL: rawURL}
	case resp.StatusCode >= http.StatusMultipleChoices:
		s.metrics.Request(metricsSurface, "status")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		s.metrics.Request(metricsSurface, "error")
		return "", fmt.Errorf("tracker request %s: read body: %w", rawURL, err)
	}
	s.successes++
	s.metrics.Request(metricsSurface, "ok")
	return string(data), nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) && !isTimeout(err) {
		return false
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	if isTimeout(err) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
