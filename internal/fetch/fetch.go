// Package fetch downloads a job's source video into its workspace.
//
// http and https URLs are streamed with the request bound to the job
// context; file:// URLs (produced by the local blob store) are copied with a
// size check.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"postroll/internal/logging"
	"postroll/internal/services"
)

// Fetcher retrieves source files.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// New constructs a Fetcher. timeout bounds one whole download; zero means
// no limit beyond the caller's context.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "fetch"),
	}
}

// WithHTTPClient replaces the HTTP client (for testing).
func (f *Fetcher) WithHTTPClient(client *http.Client) {
	if client != nil {
		f.client = client
	}
}

// Fetch writes sourceURL to dest and returns the byte count. dest only
// appears once the transfer is complete.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, dest string) (int64, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Scheme == "" {
		return 0, services.Wrap(services.ErrFetch, "fetch", "parse url", sourceURL, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, services.Wrap(services.ErrFileSystem, "fetch", "prepare destination", dest, err)
	}

	start := time.Now()
	var written int64
	switch parsed.Scheme {
	case "http", "https":
		written, err = f.download(ctx, parsed.String(), dest)
	case "file":
		written, err = copyLocal(parsed.Path, dest)
	default:
		err = services.Wrap(services.ErrFetch, "fetch", "parse url", "unsupported scheme "+parsed.Scheme, nil)
	}
	if err != nil {
		return 0, err
	}

	logging.WithContext(ctx, f.logger).Info("source downloaded",
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
		logging.String("scheme", parsed.Scheme),
	)
	return written, nil
}

func (f *Fetcher) download(ctx context.Context, sourceURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrFetch, "fetch", "build request", "", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrFetch, "fetch", "request", "source unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, services.Wrap(services.ErrFetch, "fetch", "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), errors.New(string(snippet)))
	}

	written, err := writeAtomically(dest, resp.Body)
	if err != nil {
		return 0, services.Wrap(services.ErrFetch, "fetch", "stream body", dest, err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		_ = os.Remove(dest)
		return 0, services.Wrap(services.ErrFetch, "fetch", "stream body",
			fmt.Sprintf("short body: got %d of %d bytes", written, resp.ContentLength), nil)
	}
	return written, nil
}

// copyLocal copies src to dest and checks the copied size against the source.
func copyLocal(src, dest string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, services.Wrap(services.ErrFetch, "fetch", "stat source", src, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, services.Wrap(services.ErrFetch, "fetch", "open source", src, err)
	}
	defer in.Close()

	written, err := writeAtomically(dest, in)
	if err != nil {
		return 0, services.Wrap(services.ErrFileSystem, "fetch", "copy source", dest, err)
	}
	if written != info.Size() {
		_ = os.Remove(dest)
		return 0, services.Wrap(services.ErrFileSystem, "fetch", "copy source",
			fmt.Sprintf("size mismatch: source %d bytes, copied %d bytes", info.Size(), written), nil)
	}
	return written, nil
}

func writeAtomically(dest string, r io.Reader) (int64, error) {
	partial := dest + ".part"
	out, err := os.Create(partial)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partial)
		return 0, err
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return 0, err
	}
	return written, nil
}
