package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/stockpulse/lib-core/log"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	connectionStringCredentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	connectionStringPasswordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
	dbNamePattern                      = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)
)

// Connection manages the primary and read-only replica database handles
// used by the event store. Reads are balanced across the replica pool;
// writes and migrations always go to the primary.
type Connection struct {
	ConnectionStringPrimary string
	ConnectionStringReplica string
	PrimaryDBName           string
	MigrationsPath          string
	Logger                  log.Logger
	MaxOpenConnections      int
	MaxIdleConnections      int

	primaryDB    *sql.DB
	connectionDB dbresolver.DB
	connected    bool
	mu           sync.RWMutex
}

func (c *Connection) initDefaults() {
	if c.Logger == nil {
		c.Logger = &log.NopLogger{}
	}

	if c.MaxOpenConnections <= 0 {
		c.MaxOpenConnections = defaultMaxOpenConns
	}

	if c.MaxIdleConnections <= 0 {
		c.MaxIdleConnections = defaultMaxIdleConns
	}
}

// Connect opens both databases, runs pending migrations on the primary and
// verifies connectivity with a ping. Reconnecting closes the previous
// handles first.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.initDefaults()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before database connection: %w", err)
	}

	if c.connectionDB != nil {
		if err := c.closeLocked(); err != nil {
			c.Logger.Warnf("failed to close previous connection before reconnect: %v", err)
		}
	}

	c.Logger.Info("Connecting to primary and replica databases...")

	dbPrimary, err := sql.Open("pgx", c.ConnectionStringPrimary)
	if err != nil {
		sanitizedErr := sanitizeSensitiveError(err)
		c.Logger.Errorf("failed to connect to primary database: %s", sanitizedErr)

		return fmt.Errorf("failed to connect to primary database: %s", sanitizedErr)
	}

	var success bool

	defer func() {
		if !success {
			dbPrimary.Close()
		}
	}()

	applyPoolLimits(dbPrimary, c.MaxOpenConnections, c.MaxIdleConnections)

	dbReplica, err := sql.Open("pgx", c.ConnectionStringReplica)
	if err != nil {
		sanitizedErr := sanitizeSensitiveError(err)
		c.Logger.Errorf("failed to connect to replica database: %s", sanitizedErr)

		return fmt.Errorf("failed to connect to replica database: %s", sanitizedErr)
	}

	defer func() {
		if !success {
			dbReplica.Close()
		}
	}()

	applyPoolLimits(dbReplica, c.MaxOpenConnections, c.MaxIdleConnections)

	connectionDB := dbresolver.New(
		dbresolver.WithPrimaryDBs(dbPrimary),
		dbresolver.WithReplicaDBs(dbReplica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	migrationsPath, err := sanitizePath(c.MigrationsPath)
	if err != nil {
		c.Logger.Errorf("failed to resolve migrations path: %v", err)
		return err
	}

	if err := runMigrations(dbPrimary, migrationsPath, c.PrimaryDBName, c.Logger); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before ping: %w", err)
	}

	if err := connectionDB.PingContext(ctx); err != nil {
		c.Logger.Errorf("failed to ping database: %v", err)
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.primaryDB = dbPrimary
	c.connectionDB = connectionDB
	c.connected = true

	c.Logger.Info("Connected to postgres")

	success = true

	return nil
}

// GetDB returns the read/write resolver, connecting lazily on first use.
func (c *Connection) GetDB(ctx context.Context) (dbresolver.DB, error) {
	c.mu.RLock()

	if c.connectionDB != nil {
		db := c.connectionDB
		c.mu.RUnlock()

		return db, nil
	}

	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connectionDB != nil {
		return c.connectionDB, nil
	}

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	return c.connectionDB, nil
}

// PrimaryDB returns the primary handle, connecting lazily on first use. The
// event store repository appends through this handle so writes never land
// on a replica.
func (c *Connection) PrimaryDB(ctx context.Context) (*sql.DB, error) {
	if _, err := c.GetDB(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.primaryDB, nil
}

// Close releases database connection resources.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeLocked()
}

func (c *Connection) closeLocked() error {
	if c.connectionDB == nil {
		return nil
	}

	err := c.connectionDB.Close()
	c.connectionDB = nil
	c.primaryDB = nil
	c.connected = false

	return err
}

// IsConnected reports whether the database resolver is initialized.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.connected
}

func applyPoolLimits(db *sql.DB, maxOpen, maxIdle int) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
}

// sanitizeSensitiveError strips credentials from connection errors before
// they reach the logs.
func sanitizeSensitiveError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := connectionStringCredentialsPattern.ReplaceAllString(err.Error(), "://***@")
	sanitized = connectionStringPasswordPattern.ReplaceAllString(sanitized, "${1}***")

	return sanitized
}

// sanitizePath rejects paths that climb out of the migrations directory.
func sanitizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("postgres: migrations path is required")
	}

	cleaned := filepath.Clean(path)

	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("invalid migrations path: %q", path)
		}
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	return absPath, nil
}

func validateDBName(name string) error {
	if !dbNamePattern.MatchString(name) {
		return fmt.Errorf("invalid database name: %q", name)
	}

	return nil
}

func runMigrations(dbPrimary *sql.DB, migrationsPath, primaryDBName string, logger log.Logger) error {
	if err := validateDBName(primaryDBName); err != nil {
		logger.Errorf("invalid primary database name: %v", err)
		return err
	}

	sourceURL, err := url.Parse(filepath.ToSlash(migrationsPath))
	if err != nil {
		logger.Errorf("failed to parse migrations url: %v", err)
		return fmt.Errorf("failed to parse migrations url: %w", err)
	}

	sourceURL.Scheme = "file"

	driver, err := migratepg.WithInstance(dbPrimary, &migratepg.Config{
		DatabaseName: primaryDBName,
		SchemaName:   "public",
	})
	if err != nil {
		logger.Errorf("failed to create postgres driver instance: %v", err)
		return fmt.Errorf("failed to create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), primaryDBName, driver)
	if err != nil {
		logger.Errorf("failed to get migrations: %v", err)
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations found. Skipping...")
			return nil
		}

		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("No migration files found. Skipping migration step...")
			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			logger.Errorf("Migration failed with dirty version %d", dirtyErr.Version)
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		logger.Errorf("Migration failed: %v", err)

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}
