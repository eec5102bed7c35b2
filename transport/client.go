package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/docker/go-units"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is where MailCatcher serves its web interface and API unless
// told otherwise.
const DefaultBaseURL = "http://localhost:1080"

// Message sources can include large attachments, but nothing a test suite
// sends should come close to this.
const maxResponseSize int64 = 64 * units.MiB

// Client performs GET and DELETE requests against a single mail-capturing
// service. It holds no state besides the base URL and an *http.Client, so it's
// fine to create one per test case. Create it with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient validates baseURL and returns a Client bound to it. An empty
// baseURL means DefaultBaseURL. We don't set a timeout on the underlying
// *http.Client; use the context passed to Get/Delete for that.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("can't parse the base URL %q: %w", baseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("the base URL %v must use http or https", baseURL)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("the base URL %v should include a host", baseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{},
	}, nil
}

// BaseURL returns the URL that request paths are appended to, without a
// trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request for path, which must be already escaped and begin
// with a slash, and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path)
}

// Delete issues a DELETE request for path. The response body is discarded.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path)
	return err
}

func (c *Client) do(ctx context.Context, method string, path string) ([]byte, error) {
	u := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("can't build the %v request for %v: %w", method, u, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{
			Method: method,
			URL:    u,
			Err:    err,
		}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("url", u).
		Int("status", resp.StatusCode).
		Msg("mail-capturing service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain the body so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &RequestError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
		}
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, &TransportError{
			Method: method,
			URL:    u,
			Err:    fmt.Errorf("can't read the response body: %w", err),
		}
	}

	if n > maxResponseSize {
		return nil, &TransportError{
			Method: method,
			URL:    u,
			Err: errors.New(
				"the response body is larger than " + units.BytesSize(float64(maxResponseSize)),
			),
		}
	}

	return buf.Bytes(), nil
}
