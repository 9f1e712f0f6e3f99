// Package warehouse provides MySQL destination connection management and
// schema bootstrap for metasync.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/logger"
	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/retry"
)

// Manager handles the destination warehouse connection.
type Manager struct {
	DB     *sql.DB
	config *config.WarehouseConfig
	logger *logger.Logger
}

// NewManager creates a new warehouse manager from configuration.
func NewManager(cfg *config.WarehouseConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Manager{
		config: cfg,
		logger: log,
	}
}

// Connect establishes the warehouse connection, retrying transient failures.
func (m *Manager) Connect(ctx context.Context) error {
	retryCfg := retry.Config{
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}

	err := retry.Do(ctx, retryCfg, m.logger, "warehouse connect", func(ctx context.Context) error {
		db, err := m.open()
		if err != nil {
			return err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return err
		}
		m.DB = db
		return nil
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	m.logger.Infow("Connected to warehouse",
		"host", m.config.Host,
		"database", m.config.Database,
	)
	return nil
}

// open creates the sql.DB handle with pool limits applied.
func (m *Manager) open() (*sql.DB, error) {
	db, err := sql.Open("mysql", m.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	db.SetMaxOpenConns(m.config.MaxConnections)
	db.SetMaxIdleConns(m.config.MaxIdleConnections)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// DSN builds the MySQL data source name. parseTime is required so timestamp
// columns scan into time.Time for the governance queries.
func (m *Manager) DSN() string {
	tlsMode := m.config.TLS
	if tlsMode == "" {
		tlsMode = "preferred"
	}
	if tlsMode == "disable" {
		tlsMode = "false"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&tls=%s",
		m.config.User,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.Database,
		tlsMode,
	)
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("warehouse not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("warehouse ping failed: %w", err)
	}
	return nil
}

// Close closes the warehouse connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	return m.DB.Close()
}
