// Package fetch retrieves the remote address list over HTTP with a fixed
// timeout and a best-effort on-disk cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grimm.is/palisade/internal/allowlist"
	"grimm.is/palisade/internal/brand"
	"grimm.is/palisade/internal/clock"
	"grimm.is/palisade/internal/logging"
	"grimm.is/palisade/internal/metrics"
)

// maxListSize caps the response body read, guarding against memory
// exhaustion from a misbehaving endpoint.
const maxListSize = 10 * 1024 * 1024

// Fetcher downloads and parses the remote address list. A failed fetch
// aborts the remote source only; the rest of the compile pipeline is
// unaffected.
type Fetcher struct {
	url      string
	cacheDir string
	cacheTTL time.Duration
	client   *http.Client
	clk      clock.Clock
	logger   *logging.Logger
}

// NewFetcher creates a fetcher for the given URL. cacheTTL of zero
// disables the cache.
func NewFetcher(url string, timeout time.Duration, cacheDir string, cacheTTL time.Duration, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		url:      url,
		cacheDir: cacheDir,
		cacheTTL: cacheTTL,
		client:   &http.Client{Timeout: timeout},
		clk:      &clock.RealClock{},
		logger:   logger,
	}
}

// Fetch downloads the list, or serves it from a fresh cache entry.
// coarsen selects whether bare hosts widen to their /24 during parsing.
func (f *Fetcher) Fetch(ctx context.Context, coarsen bool) (*allowlist.RemoteList, error) {
	if data, ok := f.loadFromCache(); ok {
		f.logger.Debug("Serving remote list from cache", "url", f.url)
		metrics.Get().RemoteFetches.WithLabelValues("cache").Inc()
		return allowlist.ParseRemoteList(strings.NewReader(string(data)), coarsen)
	}

	data, err := f.download(ctx)
	if err != nil {
		metrics.Get().RemoteFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Get().RemoteFetches.WithLabelValues("ok").Inc()

	list, err := allowlist.ParseRemoteList(strings.NewReader(string(data)), coarsen)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote list: %w", err)
	}

	if err := f.saveToCache(data); err != nil {
		// Cache failures are not worth failing the fetch over
		f.logger.Warn("Failed to cache remote list", "url", f.url, "error", err)
	}

	return list, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", f.url, err)
	}
	req.Header.Set("User-Agent", brand.UserAgent(brand.Version))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", f.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", f.url, err)
	}
	return data, nil
}

// cacheKey creates a SHA256 hash from the URL for the cache filename.
func (f *Fetcher) cacheKey() string {
	hash := sha256.Sum256([]byte(f.url))
	return hex.EncodeToString(hash[:])
}

type cacheMeta struct {
	CachedAt int64 `json:"cached_at"`
	Size     int   `json:"size"`
}

func (f *Fetcher) saveToCache(data []byte) error {
	if f.cacheTTL <= 0 || f.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	key := f.cacheKey()
	if err := os.WriteFile(filepath.Join(f.cacheDir, key+".txt"), data, 0644); err != nil {
		return fmt.Errorf("failed to write data cache: %w", err)
	}

	meta, err := json.Marshal(cacheMeta{CachedAt: f.clk.Now().Unix(), Size: len(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(f.cacheDir, key+".meta"), meta, 0644); err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

func (f *Fetcher) loadFromCache() ([]byte, bool) {
	if f.cacheTTL <= 0 || f.cacheDir == "" {
		return nil, false
	}

	key := f.cacheKey()
	metaData, err := os.ReadFile(filepath.Join(f.cacheDir, key+".meta"))
	if err != nil {
		return nil, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, false
	}
	if f.clk.Now().Unix()-meta.CachedAt > int64(f.cacheTTL.Seconds()) {
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(f.cacheDir, key+".txt"))
	if err != nil {
		return nil, false
	}
	return data, true
}
