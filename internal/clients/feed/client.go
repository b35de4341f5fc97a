// Package feed fetches the raw correlation feed document.
// Fetchers make a single attempt; retrying is the caller's concern.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/clientdata"
)

// maxFeedBytes bounds how much of a response body is read.
const maxFeedBytes = 64 << 20

// HTTPClient fetches the feed from a URL
type HTTPClient struct {
	url       string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	cacheTTL  time.Duration
}

// NewHTTPClient creates a feed client for url.
// cacheRepo is optional - if nil or cacheTTL <= 0, caching is disabled.
func NewHTTPClient(url string, cacheRepo *clientdata.Repository, cacheTTL time.Duration, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		url:       url,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("client", "correlation-feed").Logger(),
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
	}
}

// Source identifies the feed location
func (c *HTTPClient) Source() string {
	return c.url
}

// Fetch returns the raw feed document. A fresh cache entry is served without a
// request; expired entries are never used.
func (c *HTTPClient) Fetch(ctx context.Context) ([]byte, error) {
	if c.cachingEnabled() {
		data, err := c.cacheRepo.GetIfFresh(clientdata.TableCorrelationFeed, c.url)
		if err != nil {
			c.log.Warn().Err(err).Msg("Feed cache read failed")
		} else if data != nil {
			c.log.Debug().Str("url", c.url).Msg("Cache hit")
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", c.url).Msg("Fetching correlation feed")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	if c.cachingEnabled() && json.Valid(body) {
		if err := c.cacheRepo.Store(clientdata.TableCorrelationFeed, c.url, body, c.cacheTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache correlation feed")
		}
	}

	return body, nil
}

func (c *HTTPClient) cachingEnabled() bool {
	return c.cacheRepo != nil && c.cacheTTL > 0
}

// FileClient reads the feed from a local file
type FileClient struct {
	path string
	log  zerolog.Logger
}

// NewFileClient creates a feed client reading path
func NewFileClient(path string, log zerolog.Logger) *FileClient {
	return &FileClient{
		path: path,
		log:  log.With().Str("client", "correlation-feed-file").Logger(),
	}
}

// Source identifies the feed location
func (c *FileClient) Source() string {
	return c.path
}

// Fetch reads the whole file
func (c *FileClient) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	c.log.Debug().Str("path", c.path).Int("bytes", len(data)).Msg("Read correlation feed")
	return data, nil
}
