// Package fetch materializes source locators as local files.
//
// Remote locators are downloaded once into a cache keyed by manifest
// position. Local locators are resolved against the manifest directory and
// used in place.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/binder/internal/diag"
	"github.com/dgallion1/binder/internal/fsutil"
)

// Client downloads source PDFs into the cache directory.
type Client struct {
	cacheDir   string
	baseDir    string
	userAgent  string
	retries    int
	httpClient *http.Client
	log        *slog.Logger

	// Backoff is the wait before retry attempt n. Tests shorten it.
	Backoff func(attempt int) time.Duration
}

// Options configures a Client.
type Options struct {
	CacheDir  string
	BaseDir   string
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

func NewClient(opts Options, log *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	return &Client{
		cacheDir:  opts.CacheDir,
		baseDir:   opts.BaseDir,
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		log:     log,
		Backoff: Backoff,
	}
}

// IsRemote reports whether locator is fetched over HTTP.
func IsRemote(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// CachePath is the cache file for the item at manifest position index.
func (c *Client) CachePath(index int) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("src_%03d.pdf", index))
}

// Materialize returns a local path holding the source for the item at index.
// A non-empty cache entry is reused without contacting the server.
func (c *Client) Materialize(ctx context.Context, index int, locator string) (string, error) {
	if !IsRemote(locator) {
		return c.resolveLocal(locator)
	}

	path := c.CachePath(index)
	if fsutil.NonEmpty(path) {
		c.log.Debug("cache hit", "index", index, "path", path)
		return path, nil
	}

	var lastErr error
	for attempt := range c.retries {
		lastErr = c.download(ctx, locator, path)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		c.log.Warn("retryable fetch error", "locator", locator, "attempt", attempt, "error", lastErr)
		if attempt == c.retries-1 {
			break
		}
		select {
		case <-time.After(c.Backoff(attempt)):
		case <-ctx.Done():
			return "", &diag.RetrievalError{Locator: locator, Err: ctx.Err()}
		}
	}
	if lastErr != nil {
		return "", &diag.RetrievalError{Locator: locator, Err: lastErr}
	}
	return path, nil
}

func (c *Client) download(ctx context.Context, locator, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Err: errors.New(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("get %s: status %d: %s", locator, resp.StatusCode, string(body))
	}

	n, err := fsutil.WriteAtomic(path, resp.Body)
	if err != nil {
		_ = os.Remove(path)
		return &RetryableError{Err: fmt.Errorf("write cache: %w", err)}
	}
	if n == 0 {
		_ = os.Remove(path)
		return fmt.Errorf("get %s: empty body", locator)
	}
	c.log.Info("downloaded", "locator", locator, "path", path, "bytes", n)
	return nil
}

func (c *Client) resolveLocal(locator string) (string, error) {
	path := strings.TrimPrefix(locator, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.baseDir, filepath.FromSlash(path))
	}
	if !fsutil.NonEmpty(path) {
		return "", &diag.RetrievalError{Locator: locator, Err: fmt.Errorf("%s: missing or empty", path)}
	}
	return path, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
