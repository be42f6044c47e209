package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/caldera-build/resolver/auth"
	resolverhttp "github.com/caldera-build/resolver/http"
	"github.com/caldera-build/resolver/resilience"
)

// checksumHeaders maps the response headers repositories commonly use to
// advertise a precomputed digest to the algorithm name callers key by.
var checksumHeaders = map[string]string{
	"X-Checksum-Sha1":   "sha1",
	"X-Checksum-Sha256": "sha256",
	"X-Checksum-Md5":    "md5",
	"ETag":              "etag",
}

// HTTPTransport is the concrete Transport backed by an HTTP client. A
// per-host token bucket throttles concurrent/rate of outbound requests
// independent of whatever concurrency the caller drives resolution with,
// and transient failures are retried with exponential backoff.
type HTTPTransport struct {
	client        *resolverhttp.Client
	authenticator auth.Authenticator
	limiter       *resilience.PerSourceLimiter
	maxTries      uint
}

// NewHTTPTransport builds an HTTPTransport. authenticator may be nil for
// anonymous repositories; limiter may be nil to disable per-host throttling.
func NewHTTPTransport(client *resolverhttp.Client, authenticator auth.Authenticator, limiter *resilience.PerSourceLimiter) *HTTPTransport {
	return &HTTPTransport{client: client, authenticator: authenticator, limiter: limiter, maxTries: 3}
}

// SetMaxTries overrides the default retry budget for transient failures.
func (t *HTTPTransport) SetMaxTries(n uint) { t.maxTries = n }

func (t *HTTPTransport) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if t.authenticator != nil {
		if err := t.authenticator.Authenticate(req); err != nil {
			return nil, fmt.Errorf("resolve: authenticate request: %w", err)
		}
	}
	return req, nil
}

func (t *HTTPTransport) wait(ctx context.Context, url string) error {
	if t.limiter == nil {
		return nil
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	return t.limiter.Wait(ctx, req.URL.Host)
}

func (t *HTTPTransport) Peek(ctx context.Context, url string) (bool, error) {
	if err := t.wait(ctx, url); err != nil {
		return false, err
	}
	req, err := t.newRequest(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, fmt.Errorf("resolve: HEAD %s: unexpected status %d", url, resp.StatusCode)
	}
}

func (t *HTTPTransport) Get(ctx context.Context, url, dataPath string, resumeOffset int64) (map[string][]string, map[string]string, error) {
	type getOutcome struct {
		headers   map[string][]string
		checksums map[string]string
	}

	op := func() (getOutcome, error) {
		if err := t.wait(ctx, url); err != nil {
			return getOutcome{}, backoff.Permanent(err)
		}
		req, err := t.newRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return getOutcome{}, backoff.Permanent(err)
		}
		if resumeOffset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeOffset))
		}

		resp, err := t.client.Do(ctx, req)
		if err != nil {
			return getOutcome{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return getOutcome{}, backoff.Permanent(fmt.Errorf("resolve: GET %s: not found", url))
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return getOutcome{}, backoff.Permanent(fmt.Errorf("resolve: GET %s: status %d", url, resp.StatusCode))
		}
		if resp.StatusCode >= 300 {
			return getOutcome{}, fmt.Errorf("resolve: GET %s: status %d", url, resp.StatusCode)
		}

		tmp := dataPath + fmt.Sprintf(".part.%d", time.Now().UnixNano())
		out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return getOutcome{}, backoff.Permanent(err)
		}

		if resumeOffset > 0 && resp.StatusCode == http.StatusPartialContent {
			existing, err := os.Open(dataPath)
			if err == nil {
				_, copyErr := io.CopyN(out, existing, resumeOffset)
				existing.Close()
				if copyErr != nil {
					out.Close()
					os.Remove(tmp)
					return getOutcome{}, backoff.Permanent(copyErr)
				}
			}
		}

		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			os.Remove(tmp)
			return getOutcome{}, err
		}
		if err := out.Close(); err != nil {
			os.Remove(tmp)
			return getOutcome{}, err
		}
		if err := os.Rename(tmp, dataPath); err != nil {
			os.Remove(tmp)
			return getOutcome{}, backoff.Permanent(err)
		}

		checksums := make(map[string]string)
		for header, alg := range checksumHeaders {
			if v := resp.Header.Get(header); v != "" {
				checksums[alg] = v
			}
		}
		return getOutcome{headers: resp.Header, checksums: checksums}, nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(t.maxTries),
	)
	if err != nil {
		return nil, nil, err
	}
	return result.headers, result.checksums, nil
}

func (t *HTTPTransport) Put(ctx context.Context, url, path string) error {
	if err := t.wait(ctx, url); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	req, err := t.newRequest(ctx, http.MethodPut, url, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("resolve: PUT %s: status %d", url, resp.StatusCode)
	}
	return nil
}
