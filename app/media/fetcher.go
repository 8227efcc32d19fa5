package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrTransport    = errors.New("remote server did not respond")
	ErrSizeMismatch = errors.New("remote file is incorrect size")
	ErrZeroSize     = errors.New("zero size file downloaded")
	ErrOversize     = errors.New("remote file is too large")
)

// FetchError reports a failed download. Kind is one of the sentinel errors above.
type FetchError struct {
	URL  string
	Kind error
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxSize limits the download size in bytes. Zero disables the limit.
	MaxSize int64
	// Rate is the number of requests per second. Zero disables throttling.
	Rate float64
}

type FetchResult struct {
	Path     string
	Size     int64
	FinalURL string
}

type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxSize   int64
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		maxSize:   opts.MaxSize,
	}
}

// Fetch downloads url into dest. On failure dest is removed and a *FetchError is
// returned, except for context cancellation which is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (*FetchResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: ErrTransport, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: url, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Kind: ErrTransport, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return nil, &FetchError{URL: url, Kind: ErrOversize}
	}

	size, err := f.writeBody(resp, dest)
	if err != nil {
		os.Remove(dest)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	slog.Debug("Attachment downloaded", "url", url, "path", dest, "size", size)

	return &FetchResult{
		Path:     dest,
		Size:     size,
		FinalURL: resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) writeBody(resp *http.Response, dest string) (int64, error) {
	url := resp.Request.URL.String()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var body io.Reader = resp.Body
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}

	n, copyErr := io.Copy(out, body)
	closeErr := out.Close()

	switch {
	case copyErr != nil && errors.Is(copyErr, io.ErrUnexpectedEOF) && resp.ContentLength > 0:
		return 0, &FetchError{URL: url, Kind: ErrSizeMismatch, Err: copyErr}
	case copyErr != nil:
		return 0, &FetchError{URL: url, Kind: ErrTransport, Err: copyErr}
	case closeErr != nil:
		return 0, fmt.Errorf("failed to write file: %w", closeErr)
	case n == 0:
		return 0, &FetchError{URL: url, Kind: ErrZeroSize}
	case f.maxSize > 0 && n > f.maxSize:
		return 0, &FetchError{URL: url, Kind: ErrOversize}
	case resp.ContentLength >= 0 && n != resp.ContentLength:
		return 0, &FetchError{URL: url, Kind: ErrSizeMismatch}
	}

	return n, nil
}
