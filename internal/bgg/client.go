// Package bgg talks to the BoardGameGeek XML API v2.
package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/internal/web"
)

const DefaultBaseURL = "https://www.boardgamegeek.com/xmlapi2"

const acceptedMessage = "Your request for this collection has been accepted"

// retry budgets per failure kind
const (
	maxConnTries     = 10
	maxThrottleTries = 3
	maxAcceptedTries = 10
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      *Cache
	Logger     *zap.Logger

	// Backoff bases; zero picks 1s, 30s and 10s.
	ConnBase     time.Duration
	ThrottleBase time.Duration
	AcceptedBase time.Duration
}

type Client struct {
	base  string
	cli   *http.Client
	cache *Cache
	log   *zap.Logger

	connBase, throttleBase, acceptedBase time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if o.ConnBase <= 0 {
		o.ConnBase = time.Second
	}
	if o.ThrottleBase <= 0 {
		o.ThrottleBase = 30 * time.Second
	}
	if o.AcceptedBase <= 0 {
		o.AcceptedBase = 10 * time.Second
	}
	return &Client{
		base:         strings.TrimRight(o.BaseURL, "/"),
		cli:          o.HTTPClient,
		cache:        o.Cache,
		log:          logging.OrNop(o.Logger),
		connBase:     o.ConnBase,
		throttleBase: o.ThrottleBase,
		acceptedBase: o.AcceptedBase,
		sleep:        web.Sleep,
	}
}

// Collection fetches the user's collection with extra query params
// (own=1, subtype=boardgame, ...).
func (c *Client) Collection(ctx context.Context, user string, params map[string]string) ([]CollectionItem, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("username", user)
	body, err := c.get(ctx, "/collection", withVersion(q))
	if err != nil {
		return nil, err
	}
	return parseCollection(body)
}

// Plays walks /plays from page 1 until a page comes back empty.
func (c *Client) Plays(ctx context.Context, user string) ([]Play, error) {
	var all []Play
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("username", user)
		q.Set("page", strconv.Itoa(page))
		body, err := c.get(ctx, "/plays", withVersion(q))
		if err != nil {
			return nil, fmt.Errorf("plays page %d: %w", page, err)
		}
		batch, err := parsePlays(body)
		if err != nil {
			return nil, fmt.Errorf("plays page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		c.log.Debug("plays page", zap.Int("page", page), zap.Int("count", len(batch)))
	}
	c.log.Info("downloaded plays", zap.String("user", user), zap.Int("plays", len(all)))
	return all, nil
}

func withVersion(q url.Values) url.Values {
	q.Set("version", "1")
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.base + path + "?" + q.Encode()

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, u)
		if err != nil {
			c.log.Warn("bgg cache read failed", zap.Error(err))
		} else if ok {
			c.log.Debug("REQUEST (cached)", zap.String("url", u))
			return body, nil
		}
	}

	tries := 0
	for {
		body, status, err := c.do(ctx, u)
		switch {
		case err != nil || (status >= 400 && status != http.StatusTooManyRequests):
			if tries >= maxConnTries {
				if err == nil {
					err = fmt.Errorf("status %d", status)
				}
				return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, u, err)
			}
			c.log.Debug("bgg request failed, retrying", zap.String("url", u), zap.Int("status", status), zap.Error(err))
			if e := c.sleep(ctx, jitter(c.connBase, tries)); e != nil {
				return nil, e
			}
			tries++
			continue

		case status == http.StatusTooManyRequests:
			if tries >= maxThrottleTries {
				return nil, fmt.Errorf("bgg returned status code %d when requesting %s", status, u)
			}
			c.log.Debug(`BGG returned "Too Many Requests", waiting before trying again`, zap.String("url", u))
			if e := c.sleep(ctx, jitter(c.throttleBase, tries)); e != nil {
				return nil, e
			}
			tries++
			continue
		}

		c.log.Debug("REQUEST", zap.String("url", u))
		c.log.Debug("RESPONSE", zap.ByteString("body", body))

		root, text := rootElement(body)
		if root == "message" && strings.Contains(text, acceptedMessage) {
			if tries >= maxAcceptedTries {
				return nil, ErrNotProcessed
			}
			c.log.Debug(`BGG returned "request accepted", waiting before trying again`, zap.String("url", u))
			if e := c.sleep(ctx, jitter(c.acceptedBase, tries)); e != nil {
				return nil, e
			}
			tries++
			continue
		}
		if root == "errors" {
			return nil, &APIError{URL: u, Messages: parseErrors(body)}
		}

		if c.cache != nil && status == http.StatusOK {
			if err := c.cache.Put(ctx, u, body); err != nil {
				c.log.Warn("bgg cache write failed", zap.Error(err))
			}
		}
		return body, nil
	}
}

func (c *Client) do(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// jitter is base * 2^tries scaled by a uniform factor in [0.5, 1.5).
func jitter(base time.Duration, tries int) time.Duration {
	f := 0.5 + rand.Float64()
	return time.Duration(float64(base) * float64(int64(1)<<tries) * f)
}
