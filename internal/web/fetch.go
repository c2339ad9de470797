package web

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/josephcasey/mybgg/internal/logging"
)

const defaultUA = "Mozilla/5.0 (compatible; mybgg-scraper/1.0; +https://github.com/josephcasey/mybgg)"

// Options tunes a Fetcher. Zero values fall back to the defaults below.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int           // attempts per request
	RetryBase   time.Duration // base backoff
	RetryMax    time.Duration // cap per-attempt backoff
	Cooldown    time.Duration // used on 429 when no Retry-After
	Delay       time.Duration // politeness gap between requests, 0 disables
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Response is a fully read HTTP body.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// StatusError is returned for non-retryable HTTP statuses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

// Fetcher is a polite GET client: it paces requests, retries 429/5xx with
// jittered backoff and respects Retry-After.
type Fetcher struct {
	cli     *http.Client
	ua      string
	limiter *rate.Limiter
	log     *zap.Logger

	maxAttempts          int
	base, max, cooldown time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func New(o Options) *Fetcher {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 4
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 400 * time.Millisecond
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 6 * time.Second
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 7 * time.Second
	}
	cli := o.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: o.Timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.Delay > 0 {
		lim = rate.NewLimiter(rate.Every(o.Delay), 1)
	}
	return &Fetcher{
		cli:         cli,
		ua:          o.UserAgent,
		limiter:     lim,
		log:         logging.OrNop(o.Logger),
		maxAttempts: o.MaxAttempts,
		base:        o.RetryBase,
		max:         o.RetryMax,
		cooldown:    o.Cooldown,
		sleep:       Sleep,
	}
}

// Get fetches url, retrying on transport errors, 429 and 5xx.
func (f *Fetcher) Get(ctx context.Context, url, referer string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", f.ua)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		if referer != "" {
			req.Header.Set("Referer", referer)
		}

		resp, err := f.cli.Do(req)
		if err != nil {
			lastErr = err
			f.log.Debug("fetch failed", zap.String("url", url), zap.Int("attempt", attempt+1), zap.Error(err))
			if e := f.sleep(ctx, Backoff(attempt, f.base, f.max)); e != nil {
				return nil, e
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				if e := f.sleep(ctx, Backoff(attempt, f.base, f.max)); e != nil {
					return nil, e
				}
				continue
			}
			return &Response{
				URL:         url,
				StatusCode:  resp.StatusCode,
				ContentType: resp.Header.Get("Content-Type"),
				Body:        body,
			}, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := ParseRetryAfter(resp.Header.Get("Retry-After"))
			if wait == 0 {
				wait = f.cooldown
			}
			lastErr = &StatusError{URL: url, Code: resp.StatusCode}
			f.log.Debug("rate limited", zap.String("url", url), zap.Duration("wait", wait))
			if e := f.sleep(ctx, wait); e != nil {
				return nil, e
			}

		case resp.StatusCode >= 500 && resp.StatusCode <= 599:
			lastErr = &StatusError{URL: url, Code: resp.StatusCode}
			if e := f.sleep(ctx, Backoff(attempt, f.base, f.max)); e != nil {
				return nil, e
			}

		default:
			return nil, &StatusError{URL: url, Code: resp.StatusCode}
		}
	}
	return nil, fmt.Errorf("exhausted retries for %s: %w", url, lastErr)
}

// ParseRetryAfter reads both the seconds and the HTTP-date forms.
func ParseRetryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Backoff is exponential with up to 250ms of jitter, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(1<<attempt)
	j := time.Duration(rand.Intn(250)) * time.Millisecond
	if d+j > max {
		return max
	}
	return d + j
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
