// Package netfetch downloads packaging artifacts (interpreter
// archives, extension bundles) with resumable Range-based transfer,
// wrapped in AuroraView's retry/circuit-breaker taxonomy.
package netfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"auroraview/internal/aerrors"
	"auroraview/internal/alog"
)

// Client downloads to a local cache with resumable Range requests.
type Client struct {
	HTTP    *http.Client
	Retry   aerrors.RetryConfig
	Breaker *aerrors.CircuitBreaker
	log     *alog.Logger
}

// New creates a Client with sane defaults: a 5-minute total timeout
// (spec §5 "external subprocesses ... bounded by a configurable
// timeout, default 5 min" extended to cover network fetches) and the
// package's default retry/circuit-breaker configuration.
func New(name string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Retry:   aerrors.DefaultRetryConfig(),
		Breaker: aerrors.NewCircuitBreaker(name, aerrors.DefaultCircuitBreakerConfig()),
		log:     alog.Packer,
	}
}

// MinSize enforces the packer's "verify non-empty and above a
// minimum-size floor" rule on downloaded archives.
const MinSize = 1024

// Download fetches url into destPath, resuming from the current file
// size if destPath already exists (partial download). It fails with
// aerrors.NetworkFailure on any transport error (retryable) and with
// aerrors.IoFailure for anything downstream-of-the-wire.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	return aerrors.Retry(ctx, c.Retry, c.log, func(ctx context.Context) error {
		if c.Breaker != nil && !c.Breaker.Allow() {
			return aerrors.New(aerrors.NetworkFailure, "netfetch.download", "circuit breaker open")
		}
		err := c.downloadOnce(ctx, url, destPath)
		if c.Breaker != nil {
			if err != nil && aerrors.IsTransient(err) {
				c.Breaker.RecordFailure()
			} else {
				c.Breaker.RecordSuccess()
			}
		}
		return err
	})
}

func (c *Client) downloadOnce(ctx context.Context, url, destPath string) error {
	var resumeFrom int64
	if info, err := os.Stat(destPath + ".part"); err == nil {
		resumeFrom = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return aerrors.Wrap(aerrors.InvalidArgument, "netfetch.download", err)
	}
	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return aerrors.Wrap(aerrors.NetworkFailure, "netfetch.download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return aerrors.New(aerrors.NetworkFailure, "netfetch.download", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resp.StatusCode == http.StatusPartialContent {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
		resumeFrom = 0
	}

	f, err := os.OpenFile(destPath+".part", flags, 0o644)
	if err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "netfetch.download", err)
	}
	defer f.Close()

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		return aerrors.Wrap(aerrors.NetworkFailure, "netfetch.download", err)
	}

	if written+resumeFrom < MinSize {
		return aerrors.New(aerrors.IoFailure, "netfetch.download", "downloaded artifact is suspiciously small")
	}

	if err := f.Close(); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "netfetch.download", err)
	}
	if err := os.Rename(destPath+".part", destPath); err != nil {
		return aerrors.Wrap(aerrors.IoFailure, "netfetch.download", err)
	}
	return nil
}
