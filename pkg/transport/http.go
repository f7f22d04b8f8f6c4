package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient injects the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) Option {
	return func(c *HTTPClient) {
		c.base = strings.TrimSpace(base)
	}
}

// WithTimeout caps each request. Zero disables the cap.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(c *HTTPClient) {
		if strings.TrimSpace(name) == "" {
			return
		}
		c.headers.Set(name, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *HTTPClient) {
		c.userAgent = agent
	}
}

// WithHiddenFields appends fields to every submission.
func WithHiddenFields(fields ...HiddenField) Option {
	return func(c *HTTPClient) {
		c.hidden = c.hidden.with(fields...)
	}
}

// WithCSRF sends token both as a hidden form field and, when header is set,
// as a request header on submissions.
func WithCSRF(field, header, token string) Option {
	return func(c *HTTPClient) {
		if token == "" {
			return
		}
		if field != "" {
			c.hidden = c.hidden.with(CSRFToken(field, token))
		}
		if header != "" {
			c.csrfHeader = header
			c.csrfToken = token
		}
	}
}

// WithLegacyMarker treats a successful response whose body contains marker
// as a validation failure. An empty marker disables the check.
func WithLegacyMarker(marker string) Option {
	return func(c *HTTPClient) {
		c.legacyMarker = marker
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	http         *http.Client
	base         string
	timeout      time.Duration
	headers      http.Header
	userAgent    string
	hidden       hiddenSet
	csrfHeader   string
	csrfToken    string
	legacyMarker string
	logger       zerolog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a client with the supplied options.
func NewHTTPClient(options ...Option) *HTTPClient {
	c := &HTTPClient{
		http:      http.DefaultClient,
		headers:   make(http.Header),
		userAgent: "go-embedform",
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Resolve returns ref resolved against the configured base URL.
func (c *HTTPClient) Resolve(ref string) (string, error) {
	return ResolveURL(c.base, ref)
}

// Fetch issues a GET for an HTML fragment. Any non-2xx status is a failure.
func (c *HTTPClient) Fetch(ctx context.Context, ref string) (*Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, &Error{Op: "fetch", URL: ref, Err: err}
	}
	resp, err := c.do(ctx, "fetch", http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &Error{Op: "fetch", URL: target, StatusCode: resp.Status, Err: ErrUnexpectedStatus}
	}
	resp.Outcome = OutcomeSuccess
	return resp, nil
}

// Submit sends payload as multipart/form-data and classifies the answer.
func (c *HTTPClient) Submit(ctx context.Context, method, ref string, payload Payload) (*Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, &Error{Op: "submit", URL: ref, Err: err}
	}
	if strings.TrimSpace(method) == "" {
		method = http.MethodPost
	}
	payload = c.hidden.apply(payload)
	body, contentType, err := EncodeMultipart(payload)
	if err != nil {
		return nil, &Error{Op: "submit", URL: target, Err: err}
	}

	resp, err := c.do(ctx, "submit", strings.ToUpper(method), target, body, contentType)
	if err != nil {
		return nil, err
	}
	outcome, ok := Classify(resp.Status, resp.Header, resp.Body, c.legacyMarker)
	if !ok {
		return nil, &Error{Op: "submit", URL: target, StatusCode: resp.Status, Err: ErrUnexpectedStatus}
	}
	resp.Outcome = outcome
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, target string, body []byte, contentType string) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Op: op, URL: target, Err: err}
	}
	for name, values := range c.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequest, "fragment")
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if body != nil && c.csrfHeader != "" {
		req.Header.Set(c.csrfHeader, c.csrfToken)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("request_id", requestID).Str("method", method).Str("url", target).Err(err).Msg("request failed")
		return nil, &Error{Op: op, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", final).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request complete")

	return &Response{
		URL:    final,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
	}, nil
}

// Classify maps a write response onto an Outcome. The second result is false
// when the response is a transport failure.
func Classify(status int, header http.Header, body []byte, legacyMarker string) (Outcome, bool) {
	if status == http.StatusUnprocessableEntity {
		return OutcomeInvalid, true
	}
	if status < 200 || status >= 300 {
		return "", false
	}
	if strings.EqualFold(strings.TrimSpace(header.Get(HeaderOutcome)), OutcomeInvalidValue) {
		return OutcomeInvalid, true
	}
	if legacyMarker != "" && bytes.Contains(body, []byte(legacyMarker)) {
		return OutcomeInvalid, true
	}
	return OutcomeSuccess, true
}

// EncodeMultipart writes payload as multipart/form-data and returns the body
// with its content type.
func EncodeMultipart(payload Payload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, v := range payload.Fields {
		if err := w.WriteField(v.Name, v.Value); err != nil {
			return nil, "", fmt.Errorf("transport: encode field %q: %w", v.Name, err)
		}
	}
	for _, f := range payload.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Name)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("transport: encode file %q: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("transport: encode file %q: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("transport: encode multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ResolveURL resolves ref against base. An empty base requires ref to be
// absolute.
func ResolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyURL
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base == "" {
		if !refURL.IsAbs() {
			return "", errors.New("transport: relative url without base: " + ref)
		}
		return refURL.String(), nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
