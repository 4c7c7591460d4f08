// Package transport sends JSON and multipart requests to the backend and
// turns non-2xx responses into errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/and161185/vidvote/internal/limiter"
)

const requestIDHeader = "X-Request-ID"

// Request describes one backend call. Method defaults to GET.
// Body is either a *Form, sent unmodified, or any value encoded as JSON.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Token   string
	Headers map[string]string
}

// Client is a thin HTTP client bound to one backend base URL.
// It never retries and sets no timeout of its own.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
	lim  limiter.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithLogger sets the logger used for request metadata.
func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

// WithLimiter throttles outgoing requests.
func WithLimiter(l limiter.Limiter) Option { return func(c *Client) { c.lim = l } }

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		log:  zap.NewNop(),
		lim:  limiter.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	hc := &http.Client{}
	if c.http != nil {
		cp := *c.http
		hc = &cp
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = loggingTransport{next: next, log: c.log}
	c.http = hc
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// Do sends r and returns the raw JSON body of a successful response.
// A successful response without a JSON content type yields a nil result.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if !isJSON(resp.contentType) || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}
	return json.RawMessage(resp.body), nil
}

// Text sends r and returns the response body as text whatever its content type.
func (c *Client) Text(ctx context.Context, r Request) (string, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return "", err
	}
	return string(resp.body), nil
}

type response struct {
	contentType string
	body        []byte
}

func (c *Client) send(ctx context.Context, r Request) (*response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.base + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	if err := c.lim.Wait(ctx); err != nil {
		return nil, err
	}

	header := make(http.Header, len(r.Headers)+3)
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	var body io.Reader
	switch b := r.Body.(type) {
	case nil:
	case *Form:
		rd, ct := b.encode()
		body = rd
		header.Set("Content-Type", ct)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		if pr, ok := body.(*io.PipeReader); ok {
			pr.CloseWithError(err)
		}
		return nil, err
	}
	req.Header = header
	if r.Token != "" {
		(&oauth2.Token{AccessToken: r.Token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	if rid, err := uuid.NewV4(); err == nil {
		req.Header.Set(requestIDHeader, rid.String())
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, readErr := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &HTTPError{Status: res.StatusCode, Body: string(data)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read body: %w", readErr)
	}
	return &response{contentType: res.Header.Get("Content-Type"), body: data}, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
