// Package httpclient is the single point of outbound traffic to the
// platform API: base URL, timeout, bearer credentials and error mapping.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/huykn/teamup-client/cache"
)

// DefaultTimeout applies to every request that does not set its own.
const DefaultTimeout = 5 * time.Second

// TokenSource supplies the access token and drops credentials on 401.
type TokenSource interface {
	GetToken() string
	ClearTokens()
}

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent when set.
	UserAgent string

	// HTTPClient performs the requests. Its own Timeout should be zero;
	// per-request deadlines come from the context.
	HTTPClient *http.Client

	// Logger is the logger for debug logging.
	Logger cache.Logger

	// DebugMode logs every request and response.
	DebugMode bool

	// OnResponse is called after every request with the status (0 on
	// network failure) and the elapsed time.
	OnResponse func(method, path string, status int, elapsed time.Duration)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("httpclient: base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("httpclient: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("httpclient: unsupported scheme %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return errors.New("httpclient: negative timeout")
	}
	return nil
}

// File is one file part of a multipart upload.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Multipart is a multipart/form-data body.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// Request describes one API call.
type Request struct {
	Method    string
	Path      string
	Query     map[string]any
	Body      any
	Multipart *Multipart
	Header    http.Header

	// Timeout overrides the client timeout for this call.
	Timeout time.Duration
}

// Client wraps net/http with the platform conventions.
type Client struct {
	base   *url.URL
	cfg    Config
	http   *http.Client
	tokens TokenSource
	logger cache.Logger
}

// New creates a client. tokens may be nil for unauthenticated use.
func New(cfg Config, tokens TokenSource) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}

	return &Client{
		base:   base,
		cfg:    cfg,
		http:   cfg.HTTPClient,
		tokens: tokens,
		logger: cfg.Logger,
	}, nil
}

// Secure reports whether the API is reached over https.
func (c *Client) Secure() bool {
	return c.base.Scheme == "https"
}

// Do performs req and decodes a successful JSON body into out (which may be
// nil). Failures are returned as *Error. A 401 clears the stored tokens
// before the error is returned; navigation is left to the caller.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return &Error{Method: req.Method, Path: req.Path, Err: fmt.Errorf("%w: %w", ErrBuildRequest, err)}
	}

	if c.cfg.DebugMode {
		c.logger.Debug("HTTP: request", "method", req.Method, "url", httpReq.URL.String())
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		c.logger.Warn("HTTP: no response", "method", req.Method, "path", req.Path, "error", err)
		return &Error{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: err}
	}

	if c.cfg.DebugMode {
		c.logger.Debug("HTTP: response", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleError(req, resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) handleError(req Request, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	if status == http.StatusUnauthorized && c.tokens != nil {
		c.tokens.ClearTokens()
		c.logger.Info("HTTP: unauthorized, credentials cleared", "path", req.Path)
	}

	return &Error{
		Method:  req.Method,
		Path:    req.Path,
		Status:  status,
		Message: eb.Message,
	}
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.base
	u.Path = u.Path + "/" + strings.TrimLeft(req.Path, "/")
	if q := encodeQuery(req.Query); len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType = "application/json"
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := encodeMultipart(req.Multipart)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.tokens != nil {
		if tok := c.tokens.GetToken(); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return httpReq, nil
}

func (c *Client) observe(req Request, status int, start time.Time) {
	if c.cfg.OnResponse != nil {
		c.cfg.OnResponse(req.Method, req.Path, status, time.Since(start))
	}
}

// Get issues a GET with params encoded as the query string.
func (c *Client) Get(ctx context.Context, path string, params map[string]any, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: params}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Upload issues a multipart/form-data POST.
func (c *Client) Upload(ctx context.Context, path string, form *Multipart, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Multipart: form}, out)
}

// GetPage issues a GET and reshapes the {data, pagination} body.
func GetPage[T any](ctx context.Context, c *Client, path string, params map[string]any) (Page[T], error) {
	var page Page[T]
	if err := c.Get(ctx, path, params, &page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

func encodeQuery(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				q.Add(k, fmt.Sprint(rv.Index(i).Interface()))
			}
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	return q
}

func encodeMultipart(form *Multipart) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range form.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range form.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
