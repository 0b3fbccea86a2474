package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	appLog "homeplan/internal/log"
)

// Feed is a single ICS subscription URL.
type Feed struct {
	ID  string
	URL string
}

// cacheMeta holds HTTP validators for one feed URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeedSource fetches whole ICS subscription feeds. Feeds cannot be queried
// by time range, so FetchRange returns every event and the caller filters.
//
// Responses are cached on disk keyed by URL. A 304 or a transport failure
// reuses the cached body; a feed with neither a fresh nor a cached body
// fails the whole fetch. Feeds served from cache after a failure are listed by
// StaleFeeds until the next FetchRange.
type FeedSource struct {
	client   *http.Client
	cacheDir string
	feeds    []Feed

	mu    sync.Mutex
	stale []string
}

// NewFeedSource creates a FeedSource caching under cacheDir.
func NewFeedSource(cacheDir string, feeds []Feed) *FeedSource {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &FeedSource{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
		feeds:    feeds,
	}
}

// FetchRange implements the presence calendar source.
func (f *FeedSource) FetchRange(ctx context.Context, _, _ time.Time) ([][]byte, error) {
	if len(f.feeds) == 0 {
		return nil, errors.New("no ICS feeds configured")
	}
	bodies := make([][]byte, 0, len(f.feeds))
	var stale []string
	for _, feed := range f.feeds {
		body, fromCache, err := f.fetchOne(ctx, feed)
		if err != nil {
			appLog.Error("ics fetch failed", err, "id", feed.ID, "url", redactURL(feed.URL))
			return nil, fmt.Errorf("feed %s: %w", feed.ID, err)
		}
		if fromCache {
			stale = append(stale, feed.ID)
		}
		bodies = append(bodies, body)
	}

	f.mu.Lock()
	f.stale = stale
	f.mu.Unlock()
	return bodies, nil
}

// StaleFeeds returns the ids of feeds the last FetchRange could not refresh
// and served from cache instead.
func (f *FeedSource) StaleFeeds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stale...)
}

// fetchOne reports whether the body came from cache because the server
// could not be used.
func (f *FeedSource) fetchOne(ctx context.Context, feed Feed) ([]byte, bool, error) {
	if feed.URL == "" {
		return nil, false, errors.New("feed URL is empty")
	}

	dir := f.cachePathForURL(feed.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, false, err
	}
	meta, _ := loadCacheMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, false, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("ics fetch start", "id", feed.ID, "url", redactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "id", feed.ID, "url", redactURL(feed.URL))
			return cached, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}
		next := cacheMeta{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, next, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("ics cache save failed", err, "id", feed.ID)
		}
		appLog.Info("ics fetch success", "id", feed.ID, "bytes", len(body))
		return body, false, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, false, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", feed.ID)
		return cached, false, nil

	default:
		if len(cached) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "id", feed.ID, "url", redactURL(feed.URL), "status", resp.StatusCode)
			return cached, true, nil
		}
		return nil, false, errors.New(resp.Status)
	}
}

func (f *FeedSource) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(dir string, meta cacheMeta, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; feed URLs often embed secrets.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
