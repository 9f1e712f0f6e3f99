// Package catalog implements the authenticated HTTP client for the source
// data catalog's REST API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
)

// APIVersion is the catalog REST API version path segment.
const APIVersion = "2.1"

// Client is a stateless HTTP client for the catalog API. It holds no state
// between calls beyond the connection pool; one instance is scoped to one
// sync run and is safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	retry    retry.Config
	logger   *logger.Logger
}

// NewClient creates a new catalog API client from source configuration.
func NewClient(cfg *config.SourceConfig, retryCfg retry.Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("access token is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.WorkspaceURL), "/")
	if base == "" {
		return nil, fmt.Errorf("workspace URL is empty")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Client{
		baseURL:  base + "/api/" + APIVersion + "/unity-catalog",
		token:    cfg.AccessToken,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: cfg.Timeout()},
		retry:    retryCfg,
		logger:   log,
	}, nil
}

// ListCatalogs lists all catalogs in the metastore.
func (c *Client) ListCatalogs(ctx context.Context) ([]CatalogInfo, error) {
	var out []CatalogInfo
	err := c.paginate(ctx, "catalogs", nil, func(page []byte) error {
		var envelope struct {
			Catalogs []CatalogInfo `json:"catalogs"`
		}
		if err := json.Unmarshal(page, &envelope); err != nil {
			return fmt.Errorf("failed to decode catalogs page: %w", err)
		}
		out = append(out, envelope.Catalogs...)
		return nil
	})
	return out, err
}

// ListSchemas lists all schemas in a catalog.
func (c *Client) ListSchemas(ctx context.Context, catalogName string) ([]SchemaInfo, error) {
	params := url.Values{"catalog_name": {catalogName}}
	var out []SchemaInfo
	err := c.paginate(ctx, "schemas", params, func(page []byte) error {
		var envelope struct {
			Schemas []SchemaInfo `json:"schemas"`
		}
		if err := json.Unmarshal(page, &envelope); err != nil {
			return fmt.Errorf("failed to decode schemas page: %w", err)
		}
		out = append(out, envelope.Schemas...)
		return nil
	})
	return out, err
}

// ListTables lists table summaries in a schema. Column metadata requires a
// follow-up GetTable call per table.
func (c *Client) ListTables(ctx context.Context, catalogName, schemaName string) ([]TableInfo, error) {
	params := url.Values{
		"catalog_name": {catalogName},
		"schema_name":  {schemaName},
	}
	var out []TableInfo
	err := c.paginate(ctx, "tables", params, func(page []byte) error {
		var envelope struct {
			Tables []TableInfo `json:"tables"`
		}
		if err := json.Unmarshal(page, &envelope); err != nil {
			return fmt.Errorf("failed to decode tables page: %w", err)
		}
		out = append(out, envelope.Tables...)
		return nil
	})
	return out, err
}

// GetTable fetches detailed metadata for a table, including its columns.
func (c *Client) GetTable(ctx context.Context, fullName string) (*TableInfo, error) {
	body, err := c.getWithRetry(ctx, "tables/"+url.PathEscape(fullName), nil)
	if err != nil {
		return nil, err
	}
	var info TableInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", fullName, err)
	}
	return &info, nil
}

// ListVolumes lists all volumes in a schema. Installations without a volumes
// API return an empty slice, not an error.
func (c *Client) ListVolumes(ctx context.Context, catalogName, schemaName string) ([]VolumeInfo, error) {
	params := url.Values{
		"catalog_name": {catalogName},
		"schema_name":  {schemaName},
	}
	var out []VolumeInfo
	err := c.paginate(ctx, "volumes", params, func(page []byte) error {
		var envelope struct {
			Volumes []VolumeInfo `json:"volumes"`
		}
		if err := json.Unmarshal(page, &envelope); err != nil {
			return fmt.Errorf("failed to decode volumes page: %w", err)
		}
		out = append(out, envelope.Volumes...)
		return nil
	})
	if IsNotFound(err) {
		c.logger.Debugw("Volumes API not available on this installation, skipping",
			"catalog", catalogName,
			"schema", schemaName,
		)
		return nil, nil
	}
	return out, err
}

// paginate walks a paginated list endpoint, following next_page_token until
// exhausted, invoking consume for every raw page body.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values, consume func(page []byte) error) error {
	pageToken := ""
	for {
		p := url.Values{}
		for k, vs := range params {
			p[k] = vs
		}
		if c.pageSize > 0 {
			p.Set("max_results", strconv.Itoa(c.pageSize))
		}
		if pageToken != "" {
			p.Set("page_token", pageToken)
		}

		body, err := c.getWithRetry(ctx, endpoint, p)
		if err != nil {
			return err
		}
		if err := consume(body); err != nil {
			return err
		}

		pageToken = gjson.GetBytes(body, "next_page_token").String()
		if pageToken == "" {
			return nil
		}
	}
}

// getWithRetry issues a GET, retrying transient failures with backoff.
// Unauthorized and not-found responses surface immediately.
func (c *Client) getWithRetry(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.retry, c.logger, "GET "+endpoint, func(ctx context.Context) error {
		var err error
		body, err = c.get(ctx, endpoint, params)
		return err
	}, IsTransient)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u = u + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorCode:  gjson.GetBytes(body, "error_code").String(),
			Message:    gjson.GetBytes(body, "message").String(),
		}
	}

	return body, nil
}
