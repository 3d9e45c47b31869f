package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const metadataCheckTimeout = 10 * time.Second

type Client struct {
	client     *bigquery.Client
	dataset    *bigquery.Dataset
	statsTable string
}

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

type Pinger interface {
	Ping(context.Context) error
}

// NewClient creates a BigQuery client and verifies the stats dataset and table.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	table := strings.TrimSpace(cfg.StatsTable)
	if table == "" {
		return nil, errTableNameRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	client := &Client{
		client:     bqClient,
		dataset:    bqClient.Dataset(datasetID),
		statsTable: table,
	}
	if err := client.Ping(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "bigquery client initialized")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Ping verifies the dataset and stats table are accessible.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	if _, err := c.dataset.Table(c.statsTable).Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("table %q does not exist", c.statsTable)
		}
		return fmt.Errorf("checking table %q: %w", c.statsTable, err)
	}
	return nil
}

// InsertStats streams rows into the platform stats table. rows follows the
// bigquery Inserter.Put contract (struct, struct slice, or ValueSaver).
func (c *Client) InsertStats(ctx context.Context, rows any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	return c.dataset.Table(c.statsTable).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
