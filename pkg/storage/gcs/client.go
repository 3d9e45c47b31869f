// Package gcs talks to the Cloud Storage JSON API for listing images.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

const (
	defaultAPIBase    = "https://storage.googleapis.com"
	defaultPublicBase = "https://storage.googleapis.com"
	scope             = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout       = 5 * time.Second
)

var ErrForeignURI = errors.New("uri is not owned by the platform bucket")

// Client uploads and deletes objects in a single bucket.
type Client struct {
	httpClient *http.Client
	bucket     string
	apiBase    string
	publicBase string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient resolves credentials (inline JSON, credentials file, or ADC) and
// verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	ts, err := tokenSource(ctx, gcp)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second

	client := newClient(httpClient, cfg.BucketName, defaultAPIBase, defaultPublicBase)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

func newClient(httpClient *http.Client, bucket, apiBase, publicBase string) *Client {
	return &Client{
		httpClient: httpClient,
		bucket:     bucket,
		apiBase:    strings.TrimRight(apiBase, "/"),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	raw := []byte(gcp.CredentialsJSON)
	if len(raw) == 0 && gcp.ApplicationCredentials != "" {
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		ts, err := google.DefaultTokenSource(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("default credentials: %w", err)
		}
		return ts, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, scope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// PublicURL is the URI stored on listings for object.
func (c *Client) PublicURL(object string) string {
	return c.publicBase + "/" + c.bucket + "/" + object
}

// ObjectFromURI extracts the object name when uri points into the bucket.
func (c *Client) ObjectFromURI(uri string) (string, bool) {
	object, ok := strings.CutPrefix(strings.TrimSpace(uri), c.publicBase+"/"+c.bucket+"/")
	if !ok || object == "" {
		return "", false
	}
	if i := strings.IndexAny(object, "?#"); i >= 0 {
		object = object[:i]
	}
	return object, object != ""
}

// Owns reports whether uri refers to an object this client manages.
func (c *Client) Owns(uri string) bool {
	_, ok := c.ObjectFromURI(uri)
	return ok
}

// Upload stores body under object and returns its public URI.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	if err := c.do(req); err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// Delete removes object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.apiBase, url.PathEscape(c.bucket), url.PathEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	if err := c.do(req); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", object, err)
	}
	return nil
}

// DeleteURI deletes the object behind a stored listing URI.
func (c *Client) DeleteURI(ctx context.Context, uri string) error {
	object, ok := c.ObjectFromURI(uri)
	if !ok {
		return ErrForeignURI
	}
	return c.Delete(ctx, object)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiBase, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) do(req *http.Request) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// IsNotFound reports whether err is a 404 from the storage API.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
