package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"frame-cache/internal/logging"
	"frame-cache/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistence for the image cache.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex // serializes transaction creation
	txStart time.Time  // transaction start time for metrics
}

// New opens (creating if necessary) the cache database at dbPath and
// initializes the schema. The parent directory must already exist and be
// writable; use startup.LoadConfig to validate it first.
//
// The database is opened in WAL mode so that read queries keep working
// while the update cycle's transaction is in flight; busy_timeout prevents
// spurious "database is locked" errors from the rare second writer
// (geocode-cache inserts on the read path).
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer by construction, many readers.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS folder (
		folder_id INTEGER NOT NULL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		last_modified REAL DEFAULT 0 NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file (
		file_id INTEGER NOT NULL PRIMARY KEY,
		folder_id INTEGER NOT NULL,
		basename TEXT NOT NULL,
		extension TEXT NOT NULL,
		last_modified REAL DEFAULT 0 NOT NULL,
		UNIQUE(folder_id, basename, extension)
	);

	CREATE TABLE IF NOT EXISTS meta (
		file_id INTEGER NOT NULL PRIMARY KEY,
		orientation INTEGER DEFAULT 1 NOT NULL,
		taken_at REAL DEFAULT 0 NOT NULL,
		f_number REAL DEFAULT 0 NOT NULL,
		exposure_time TEXT,
		iso REAL DEFAULT 0 NOT NULL,
		focal_length TEXT,
		make TEXT,
		model TEXT,
		lens TEXT,
		rating INTEGER,
		latitude REAL,
		longitude REAL,
		width INTEGER DEFAULT 0 NOT NULL,
		height INTEGER DEFAULT 0 NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meta_taken_at ON meta(taken_at);

	CREATE TABLE IF NOT EXISTS location (
		id INTEGER NOT NULL PRIMARY KEY,
		latitude REAL,
		longitude REAL,
		description TEXT,
		UNIQUE(latitude, longitude)
	);

	-- Everything a reader needs, joined into one view. Coordinates match
	-- the location cache exactly because both sides are rounded to four
	-- decimal places before storage.
	CREATE VIEW IF NOT EXISTS all_data AS
	SELECT
		file.file_id AS file_id,
		folder.name || '/' || file.basename || '.' || file.extension AS fname,
		file.last_modified AS last_modified,
		meta.orientation AS orientation,
		meta.taken_at AS taken_at,
		meta.f_number AS f_number,
		meta.exposure_time AS exposure_time,
		meta.iso AS iso,
		meta.focal_length AS focal_length,
		meta.make AS make,
		meta.model AS model,
		meta.lens AS lens,
		meta.rating AS rating,
		meta.latitude AS latitude,
		meta.longitude AS longitude,
		meta.width AS width,
		meta.height AS height,
		meta.height > meta.width AS is_portrait,
		location.description AS location
	FROM file
		INNER JOIN folder ON folder.folder_id = file.folder_id
		LEFT JOIN meta ON file.file_id = meta.file_id
		LEFT JOIN location
			ON location.latitude = meta.latitude AND location.longitude = meta.longitude;

	-- Deleting a folder removes its files, deleting a file removes its meta.
	CREATE TRIGGER IF NOT EXISTS clean_file_trigger
	AFTER DELETE ON folder
	FOR EACH ROW
	BEGIN
		DELETE FROM file WHERE folder_id = OLD.folder_id;
	END;

	CREATE TRIGGER IF NOT EXISTS clean_meta_trigger
	AFTER DELETE ON file
	FOR EACH ROW
	BEGIN
		DELETE FROM meta WHERE file_id = OLD.file_id;
	END;
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts the update cycle's transaction. The caller must call
// EndBatch when done; the cycle's upserts and purges all land inside this
// one commit boundary so readers see either the pre- or post-cycle state.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction's lifetime is bounded by
	// EndBatch, not by a timeout.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.txStart = txStart
	return tx, nil
}

// EndBatch commits the transaction, or rolls it back when err is non-nil.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
