package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultHeaders mimic a desktop browser; some asset hosts refuse bare clients.
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "audio/webm,audio/ogg,audio/wav,audio/*;q=0.9,application/ogg;q=0.7,video/*;q=0.6,*/*;q=0.5",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	"Referer":         "https://mixkit.co/",
}

type Fetcher struct {
	client  *http.Client
	headers map[string]string
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds connecting, the TLS handshake, waiting for response
// headers, and every gap between body reads. A slow but steady download is
// never cut off.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithHeaders overrides or adds request headers.
func WithHeaders(h map[string]string) Option {
	return func(f *Fetcher) {
		for k, v := range h {
			f.headers[k] = v
		}
	}
}

// WithClient replaces the underlying HTTP client. The body idle timeout
// still applies; connect and header timeouts are up to the client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		headers: make(map[string]string, len(DefaultHeaders)),
		timeout: 30 * time.Second,
	}
	for k, v := range DefaultHeaders {
		f.headers[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Transport: newTransport(f.timeout)}
	}
	return f
}

func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// Response is an open, successful HTTP response. Callers must close Body.
type Response struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentLength int64
	ContentType   string
	FinalURL      string
}

// Get issues a GET request, following redirects. Non-2xx statuses are
// returned as *HTTPError with the body already closed. Reading the body
// fails with ErrIdleTimeout when no data arrives for the timeout.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	return &Response{
		Body:          newIdleReader(resp.Body, f.timeout, cancel),
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
		FinalURL:      resp.Request.URL.String(),
	}, nil
}

// idleReader cancels the request when the body stalls. Every read that
// returns data pushes the deadline out again.
type idleReader struct {
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleReader(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	r := &idleReader{body: body, timeout: timeout, cancel: cancel}
	if timeout > 0 {
		r.timer = time.AfterFunc(timeout, func() {
			r.expired.Store(true)
			cancel()
		})
	}
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if err != nil && err != io.EOF && r.expired.Load() {
		return n, fmt.Errorf("%w after %s", ErrIdleTimeout, r.timeout)
	}
	if n > 0 && r.timer != nil {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

func (r *idleReader) Close() error {
	if r.timer != nil {
		r.timer.Stop()
	}
	err := r.body.Close()
	r.cancel()
	return err
}
