package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/colonq/clonk/internal/client/logging"
)

// RequestIDHeader carries a per-request ID for correlating verbose logs
const RequestIDHeader = "X-Request-ID"

// Client wraps an HTTP client with its own cookie jar
type Client struct {
	HTTPClient *http.Client
	Jar        *cookiejar.Jar
	Logger     *logrus.Logger

	// replay maps a hostname to a Cookie header value sent verbatim
	replay map[string]string
}

// FormField is a single multipart text field. Fields are written in order.
type FormField struct {
	Name  string
	Value string
}

// NewClient creates a new client with an empty cookie jar.
// A zero timeout leaves the request unbounded.
func NewClient(timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		Jar:    jar,
		Logger: logger,
		replay: make(map[string]string),
	}, nil
}

// doRequest executes an HTTP request
func (c *Client) doRequest(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if header, ok := c.replay[req.URL.Hostname()]; ok {
		req.Header.Set("Cookie", header)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	log := c.Logger.WithFields(logrus.Fields{
		"method":     method,
		"url":        rawURL,
		"request_id": requestID,
	})
	log.Debug("sending request")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, err
	}

	log.WithField("status", resp.StatusCode).Debug("received response")
	return resp, nil
}

// PostJSON executes a POST request with a JSON body
func (c *Client) PostJSON(ctx context.Context, rawURL string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, rawURL, "application/json", bytes.NewReader(jsonData))
}

// PostMultipart executes a POST request with a multipart/form-data body
func (c *Client) PostMultipart(ctx context.Context, rawURL string, fields []FormField) (*http.Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.doRequest(ctx, http.MethodPost, rawURL, writer.FormDataContentType(), &body)
}

// CookieHeader returns the Cookie header value the jar would send to u
func (c *Client) CookieHeader(u *url.URL) string {
	cookies := c.Jar.Cookies(u)
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// SetCookieHeader replays a serialized Cookie header value unchanged on every
// request to the host of rawURL. The jar for that host must stay empty, since
// net/http appends jar cookies to an existing Cookie header.
func (c *Client) SetCookieHeader(rawURL, header string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse cookie url: %w", err)
	}

	if _, err := http.ParseCookie(header); err != nil {
		return fmt.Errorf("failed to parse cookie string: %w", err)
	}

	c.replay[u.Hostname()] = header
	return nil
}
