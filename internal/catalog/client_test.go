package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := &config.SourceConfig{
		WorkspaceURL:   server.URL,
		AccessToken:    "test-token",
		TimeoutSeconds: 5,
		PageSize:       2,
	}
	retryCfg := retry.Config{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 2.0,
	}
	client, err := NewClient(cfg, retryCfg, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, retry.DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = NewClient(&config.SourceConfig{WorkspaceURL: "https://x.example.com"}, retry.DefaultConfig(), nil)
	assert.Error(t, err, "missing token")

	_, err = NewClient(&config.SourceConfig{AccessToken: "tok"}, retry.DefaultConfig(), nil)
	assert.Error(t, err, "missing URL")
}

func TestListCatalogs_SendsAuthAndPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.1/unity-catalog/catalogs", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("max_results"))
		fmt.Fprint(w, `{"catalogs": [{"name": "main", "catalog_type": "MANAGED_CATALOG", "created_at": 1700000000000}]}`)
	}))
	defer server.Close()

	catalogs, err := testClient(t, server).ListCatalogs(context.Background())
	require.NoError(t, err)
	require.Len(t, catalogs, 1)
	assert.Equal(t, "main", catalogs[0].Name)
	assert.Equal(t, int64(1700000000000), catalogs[0].CreatedAt)
}

func TestListCatalogs_FollowsPagination(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("page_token")
		pages = append(pages, token)
		switch token {
		case "":
			fmt.Fprint(w, `{"catalogs": [{"name": "a"}, {"name": "b"}], "next_page_token": "page2"}`)
		case "page2":
			fmt.Fprint(w, `{"catalogs": [{"name": "c"}]}`)
		default:
			t.Errorf("unexpected page token %q", token)
		}
	}))
	defer server.Close()

	catalogs, err := testClient(t, server).ListCatalogs(context.Background())
	require.NoError(t, err)
	require.Len(t, catalogs, 3)
	assert.Equal(t, []string{"", "page2"}, pages)
	assert.Equal(t, "c", catalogs[2].Name)
}

func TestListSchemas_PassesCatalogName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.1/unity-catalog/schemas", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("catalog_name"))
		fmt.Fprint(w, `{"schemas": [{"name": "sales", "full_name": "main.sales", "catalog_name": "main"}]}`)
	}))
	defer server.Close()

	schemas, err := testClient(t, server).ListSchemas(context.Background(), "main")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "main.sales", schemas[0].FullName)
}

func TestGetTable_EscapesFullName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.1/unity-catalog/tables/main.sales.orders", r.URL.Path)
		fmt.Fprint(w, `{
			"name": "orders", "catalog_name": "main", "schema_name": "sales",
			"full_name": "main.sales.orders", "table_type": "MANAGED",
			"columns": [
				{"name": "id", "position": 0, "type_text": "bigint", "nullable": false},
				{"name": "email", "position": 1, "type_text": "string", "comment": "customer email"}
			]
		}`)
	}))
	defer server.Close()

	table, err := testClient(t, server).GetTable(context.Background(), "main.sales.orders")
	require.NoError(t, err)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "id", table.Columns[0].Name)
	require.NotNil(t, table.Columns[0].Nullable)
	assert.False(t, *table.Columns[0].Nullable)
	assert.Nil(t, table.Columns[1].Nullable)
}

func TestListVolumes_NotFoundMeansEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error_code": "ENDPOINT_NOT_FOUND", "message": "no volumes API"}`)
	}))
	defer server.Close()

	volumes, err := testClient(t, server).ListVolumes(context.Background(), "main", "sales")
	require.NoError(t, err)
	assert.Empty(t, volumes)
}

func TestGet_UnauthorizedNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error_code": "PERMISSION_DENIED", "message": "token expired"}`)
	}))
	defer server.Close()

	_, err := testClient(t, server).ListCatalogs(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "credential failures must not be retried")
	assert.Contains(t, err.Error(), "token expired")
}

func TestGet_ServerErrorRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"catalogs": [{"name": "main"}]}`)
	}))
	defer server.Close()

	catalogs, err := testClient(t, server).ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalogs, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_RateLimitRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"catalogs": []}`)
	}))
	defer server.Close()

	_, err := testClient(t, server).ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		unauthorized bool
		notFound     bool
		transient    bool
	}{
		{"401", &APIError{StatusCode: 401}, true, false, false},
		{"403", &APIError{StatusCode: 403}, true, false, false},
		{"404", &APIError{StatusCode: 404}, false, true, false},
		{"429", &APIError{StatusCode: 429}, false, false, true},
		{"500", &APIError{StatusCode: 500}, false, false, true},
		{"503", &APIError{StatusCode: 503}, false, false, true},
		{"400", &APIError{StatusCode: 400}, false, false, false},
		{"transport", fmt.Errorf("connection reset"), false, false, true},
		{"cancelled", context.Canceled, false, false, false},
		{"deadline", context.DeadlineExceeded, false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 400, Endpoint: "tables", ErrorCode: "BAD_REQUEST", Message: "malformed"}
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "malformed")

	bare := &APIError{StatusCode: 502, Endpoint: "catalogs"}
	assert.Contains(t, bare.Error(), "502")
}
