package config

import (
	"strings"
	"testing"
)

func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Source.WorkspaceURL = "https://workspace.example.com"
	cfg.Source.AccessToken = "dapi-test-token"
	cfg.Warehouse.Host = "localhost"
	cfg.Warehouse.User = "root"
	cfg.Warehouse.Database = "metadata"
	return cfg
}

func TestValidConfig(t *testing.T) {
	cfg := validTestConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestMissingWorkspaceURL(t *testing.T) {
	cfg := validTestConfig()
	cfg.Source.WorkspaceURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "source.workspace_url") {
		t.Errorf("expected workspace_url error, got: %v", err)
	}
}

func TestInvalidWorkspaceURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "workspace.example.com"},
		{"wrong scheme", "ftp://workspace.example.com"},
		{"no host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			cfg.Source.WorkspaceURL = tt.url

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %q, got nil", tt.url)
			}
			if !strings.Contains(err.Error(), "source.workspace_url") {
				t.Errorf("expected workspace_url error, got: %v", err)
			}
		})
	}
}

func TestMissingAccessToken(t *testing.T) {
	cfg := validTestConfig()
	cfg.Source.AccessToken = "   "

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "source.access_token") {
		t.Errorf("expected access_token error, got: %v", err)
	}
}

func TestMissingWarehouseFields(t *testing.T) {
	cfg := validTestConfig()
	cfg.Warehouse.Host = ""
	cfg.Warehouse.User = ""
	cfg.Warehouse.Database = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, field := range []string{"warehouse.host", "warehouse.user", "warehouse.database"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected %s error, got: %v", field, err)
		}
	}
}

func TestInvalidTLSMode(t *testing.T) {
	cfg := validTestConfig()
	cfg.Warehouse.TLS = "maybe"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "warehouse.tls") {
		t.Errorf("expected tls error, got: %v", err)
	}
}

func TestBatchSizeBounds(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		wantErr   bool
	}{
		{"zero", 0, true},
		{"negative", -1, true},
		{"minimum", 1, false},
		{"typical", 500, false},
		{"maximum", 5000, false},
		{"too large", 5001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			cfg.Processing.BatchSize = tt.batchSize

			err := cfg.Validate()
			if tt.wantErr && (err == nil || !strings.Contains(err.Error(), "processing.batch_size")) {
				t.Errorf("expected batch_size error for %d, got: %v", tt.batchSize, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error for batch size %d, got: %v", tt.batchSize, err)
			}
		})
	}
}

func TestWorkersBounds(t *testing.T) {
	cfg := validTestConfig()
	cfg.Processing.Workers = 65

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "processing.workers") {
		t.Errorf("expected workers error, got: %v", err)
	}
}

func TestMissingCheckpointPath(t *testing.T) {
	cfg := validTestConfig()
	cfg.Checkpoint.Path = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "checkpoint.path") {
		t.Errorf("expected checkpoint path error, got: %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := validTestConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("expected logging level error, got: %v", err)
	}
}

func TestMultipleErrorsCollected(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors for empty config, got nil")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) < 4 {
		t.Errorf("expected several errors for empty config, got %d: %v", len(verrs), verrs)
	}
}
