package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"hpi-affordability/utils"
)

const (
	// DefaultTimeout bounds a whole download. Spreadsheet sources are large.
	DefaultTimeout = 5 * time.Minute

	DefaultMaxRedirects = 10

	// DefaultMaxBodyBytes is the largest body Fetch will read (512MB).
	DefaultMaxBodyBytes = 512 << 20

	userAgent = "hpi-affordability/1.0 (+etl)"
)

// Source names one remote dataset.
type Source struct {
	Label string
	URL   string
}

// FetchError describes why a source could not be obtained.
type FetchError struct {
	Label      string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s returned status %d", e.Label, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Label, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrEmptyBody is reported when a source answers 2xx with no content.
var ErrEmptyBody = errors.New("empty response body")

// Config holds HTTP client configuration.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Fetcher downloads raw source content over HTTP.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
	logger       *utils.Logger
}

// New creates a Fetcher. Zero values in cfg fall back to the defaults.
func New(cfg Config, logger *utils.Logger) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	maxRedirects := cfg.MaxRedirects
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}
}

// Fetch GETs the source and returns its body. Any failure is logged and
// returned as a *FetchError; callers treat it as "source unavailable".
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	f.logger.Info("[fetcher] Fetching %s from %s", src.Label, src.URL)
	start := time.Now()

	body, err := f.get(ctx, src)
	if err != nil {
		f.logger.Error("[fetcher] %v", err)
		return nil, err
	}

	f.logger.Info("[fetcher] Fetched %s: %d bytes in %v", src.Label, len(body), time.Since(start).Round(time.Millisecond))
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &FetchError{Label: src.Label, URL: src.URL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Label: src.Label, URL: src.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Label: src.Label, URL: src.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{Label: src.Label, URL: src.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &FetchError{Label: src.Label, URL: src.URL, Err: fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes)}
	}
	if len(body) == 0 {
		return nil, &FetchError{Label: src.Label, URL: src.URL, Err: ErrEmptyBody}
	}
	return body, nil
}

// Result is the outcome of fetching one source in FetchAll.
type Result struct {
	Source Source
	Body   []byte
	Err    error
}

// FetchAll fetches every source concurrently and waits for all of them.
// Results are returned in the order of sources; a failure of one source
// never interrupts the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources ...Source) []Result {
	results := make([]Result, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			body, err := f.Fetch(ctx, src)
			results[i] = Result{Source: src, Body: body, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
