package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"packets/internal/types"
)

// Fetcher performs one HTTP exchange. Implementations must be safe for
// concurrent use; every Send runs Fetch on its own goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, w Wire) (*Response, error)
}

type Response struct {
	Status     int
	StatusText string
	Headers    []types.KV
	Body       []byte
	Duration   time.Duration
}

const DefaultTimeout = 30 * time.Second

type Options struct {
	Timeout            time.Duration
	ProxyURL           string
	InsecureSkipVerify bool
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local development
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout, Transport: transport}}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, w Wire) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, w.Method, w.URL, bytes.NewReader(w.Body))
	if err != nil {
		return nil, err
	}
	for _, h := range w.Headers {
		req.Header.Add(h.Key, h.Value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if !resp.Uncompressed {
		body, err = decode(body, resp.Header.Get("Content-Encoding"))
		if err != nil {
			return nil, err
		}
	}

	headers := make([]types.KV, 0, len(resp.Header))
	for k, vs := range resp.Header {
		for _, v := range vs {
			headers = append(headers, types.KV{Key: k, Value: v})
		}
	}
	return &Response{
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Headers:    headers,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// decode undoes a Content-Encoding the transport did not handle itself.
// Unknown encodings are passed through untouched.
func decode(body []byte, encoding string) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	default:
		return body, nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", encoding, err)
	}
	return out, nil
}
