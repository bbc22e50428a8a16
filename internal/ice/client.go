// Package ice uploads finished sequence files to an ICE registry entry and
// lists what an entry already holds.
package ice

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// HeaderSessionID carries the ICE session token on every request.
	HeaderSessionID = "X-ICE-Authentication-SessionId"

	// formField is the multipart field the registry reads the file from.
	formField = "file"

	// defaultTimeout is the per-request timeout.
	defaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4096
)

// Client talks to one ICE host with one session.
type Client struct {
	host       string
	sessionID  string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Registry
// hosts commonly use self-signed certificates.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		if !skip {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via ice.insecure_skip_verify
		c.httpClient.Transport = transport
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for host, an absolute http(s) URL.
func NewClient(host, sessionID string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "ice host %q must be an absolute http(s) URL", host)
	}
	if sessionID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ice session ID is not set")
	}

	c := &Client{
		host:      strings.TrimRight(host, "/"),
		sessionID: sessionID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SequencesURL returns the shotgun sequence collection of an entry.
func (c *Client) SequencesURL(entryID string) string {
	return c.host + "/rest/parts/" + url.PathEscape(entryID) + "/shotgunsequences"
}

// Upload posts one file to the entry. It is not retried.
func (c *Client) Upload(ctx context.Context, entryID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewUploadError("cannot open file", err).WithEntry(entryID).WithFile(path)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(formField, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SequencesURL(entryID), pr)
	if err != nil {
		_ = pr.Close()
		return errors.NewUploadError("create request", err).WithEntry(entryID).WithFile(path)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	_, err = c.do(req)
	if err != nil {
		var ue *errors.UploadError
		if errors.As(err, &ue) {
			ue.WithFile(path)
		}
		c.logger.Error("upload failed", "entry", entryID, "file", path, "error", err.Error())
		return err
	}

	c.logger.Info("file uploaded", "entry", entryID, "file", path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// List returns the raw response body describing the entry's sequences.
func (c *Client) List(ctx context.Context, entryID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SequencesURL(entryID), nil)
	if err != nil {
		return nil, errors.NewUploadError("create request", err).WithEntry(entryID)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do sends req with the session header and reads the whole response.
// Non-2xx responses become *errors.UploadError carrying the status code.
func (c *Client) do(req *http.Request) ([]byte, error) {
	entryID := entryFromPath(req.URL.Path)
	req.Header.Set(HeaderSessionID, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUploadError("send request", err).WithEntry(entryID)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUploadError("read response", err).WithEntry(entryID).WithStatus(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("%s %s returned %s", req.Method, req.URL.Path, resp.Status)
		if detail := strings.TrimSpace(string(body)); detail != "" {
			if len(detail) > maxErrorBody {
				detail = detail[:maxErrorBody]
			}
			msg += ": " + detail
		}
		return nil, errors.NewUploadError(msg, nil).WithEntry(entryID).WithStatus(resp.StatusCode)
	}
	return body, nil
}

// entryFromPath extracts the entry ID from /rest/parts/{id}/shotgunsequences.
func entryFromPath(p string) string {
	const prefix = "/rest/parts/"
	i := strings.Index(p, prefix)
	if i < 0 {
		return ""
	}
	rest := p[i+len(prefix):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// FileResult is the outcome of uploading one file.
type FileResult struct {
	Path string
	Err  error
}

// UploadAll uploads files to the entry with at most parallel requests in
// flight. Every file gets a result in input order; one failure does not stop
// the others.
func (c *Client) UploadAll(ctx context.Context, entryID string, files []string, parallel int) []FileResult {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, path := range files {
		g.Go(func() error {
			results[i] = FileResult{Path: path, Err: c.Upload(ctx, entryID, path)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
