package parser

import (
	"bufio"
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
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; RuleFetcher/1.0)"
	DefaultTimeout   = 30 * time.Second
	DefaultRetries   = 3

	maxLineSize = 1 << 20
)

// errRetryable marks a failed attempt that may succeed when repeated.
var errRetryable = errors.New("retryable")

// CacheEntry stores cached URL data with timestamp.
type CacheEntry struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	RulesFile string    `json:"rules_file"` // Relative filename for raw list data
	Lines     int       `json:"lines"`
}

// Loader fetches raw rule lists from URLs or local files. It does not parse
// them; classification is left to the engine.
type Loader struct {
	Client    *http.Client
	DataDir   string // Directory for caching URL data, empty disables caching
	UserAgent string
	Retries   int
	Backoff   time.Duration // Delay before the first retry, doubled each time
	CacheTTL  time.Duration // Zero means always fetch and use cache only as fallback
}

// Option customizes a Loader.
type Option func(*Loader)

func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		if ua != "" {
			l.UserAgent = ua
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.Client.Timeout = d
		}
	}
}

func WithRetries(n int, backoff time.Duration) Option {
	return func(l *Loader) {
		if n >= 0 {
			l.Retries = n
		}
		if backoff > 0 {
			l.Backoff = backoff
		}
	}
}

func WithCacheTTL(d time.Duration) Option {
	return func(l *Loader) {
		l.CacheTTL = d
	}
}

// NewLoader creates a new Loader with a default HTTP client.
func NewLoader(dataDir string, opts ...Option) *Loader {
	l := &Loader{
		Client: &http.Client{
			Timeout: DefaultTimeout,
		},
		DataDir:   dataDir,
		UserAgent: DefaultUserAgent,
		Retries:   DefaultRetries,
		Backoff:   time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFromPath reads raw lines from a local file.
func (l *Loader) LoadFromPath(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readLines(f)
}

// LoadFromURL returns the raw lines of a remote list. A cached copy younger
// than CacheTTL is served without a request; a stale copy is served when the
// fetch fails.
func (l *Loader) LoadFromURL(ctx context.Context, url string) ([]string, error) {
	cacheKey := urlToCacheKey(url)
	metaFile := filepath.Join(l.DataDir, cacheKey+".meta.json")
	rulesFile := filepath.Join(l.DataDir, cacheKey+".rules.txt")

	// 1. Fresh cache
	if l.DataDir != "" && l.CacheTTL > 0 {
		if meta, err := readCacheMeta(metaFile); err == nil && time.Since(meta.FetchedAt) < l.CacheTTL {
			if lines, err := l.LoadFromPath(rulesFile); err == nil {
				log.Debugf("Using cached list for '%s' (fetched %s)", url, meta.FetchedAt.Format(time.RFC3339))
				return lines, nil
			}
		}
	}

	// 2. Network
	lines, fetchErr := l.fetch(ctx, url)
	if fetchErr == nil {
		if l.DataDir != "" {
			if err := l.writeCache(url, metaFile, rulesFile, lines); err != nil {
				log.Warnf("Failed to cache '%s': %v", url, err)
			}
		}
		return lines, nil
	}

	// 3. Stale cache
	if l.DataDir != "" {
		if lines, err := l.LoadFromPath(rulesFile); err == nil {
			log.Warnf("Fetching '%s' failed (%v), using stale cache", url, fetchErr)
			return lines, nil
		}
	}
	return nil, fetchErr
}

func (l *Loader) fetch(ctx context.Context, url string) ([]string, error) {
	delay := l.Backoff
	var err error
	for attempt := 0; attempt <= l.Retries; attempt++ {
		if attempt > 0 {
			log.Debugf("Retrying '%s' in %v (attempt %d/%d)", url, delay, attempt, l.Retries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		var lines []string
		lines, err = l.fetchOnce(ctx, url)
		if err == nil {
			return lines, nil
		}
		if !errors.Is(err, errRetryable) {
			return nil, err
		}
	}
	return nil, err
}

func (l *Loader) fetchOnce(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", "*/*")

	log.Debugf("Fetching '%s'...", url)
	resp, err := l.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: bad status: %s", errRetryable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	lines, err := readLines(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errRetryable, err)
	}
	return lines, nil
}

func (l *Loader) writeCache(url, metaFile, rulesFile string, lines []string) error {
	if err := os.MkdirAll(l.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data := strings.Join(lines, "\n") + "\n"
	if err := writeFileAtomic(rulesFile, []byte(data)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	meta := CacheEntry{
		URL:       url,
		FetchedAt: time.Now(),
		RulesFile: filepath.Base(rulesFile),
		Lines:     len(lines),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(metaFile, raw)
}

func readCacheMeta(path string) (CacheEntry, error) {
	var entry CacheEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(data, &entry)
	return entry, err
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// writeFileAtomic replaces path through a uniquely named temp file, so
// concurrent writers of the same path never share one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func urlToCacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:8]) // First 8 bytes (16 chars)
}
