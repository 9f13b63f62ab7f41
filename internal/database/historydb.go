package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/fprdiff/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "fprdiff.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("database not found")

// timestampLayout is how comparison start times are stored.
const timestampLayout = "2006-01-02 15:04:05"

// HistoryDB provides SQLite-based storage for past comparisons.
// It is safe for concurrent use; writes are serialized on a single connection.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// Otherwise a missing database yields ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS comparisons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		previous_path TEXT NOT NULL,
		current_path TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		previous_digest TEXT,
		current_digest TEXT,
		went_away INTEGER DEFAULT 0,
		new_findings INTEGER DEFAULT 0,
		dropped INTEGER DEFAULT 0,
		output_path TEXT,
		comparison_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comparisons_pair ON comparisons(previous_path, current_path);
	CREATE INDEX IF NOT EXISTS idx_comparisons_started ON comparisons(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveComparison stores a comparison and returns its database ID.
func (hdb *HistoryDB) SaveComparison(ctx context.Context, c *model.Comparison) (int64, error) {
	if c.Error != nil {
		c.ErrorMessage = c.Error.Error()
	}

	comparisonJSON, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize comparison: %w", err)
	}

	var wentAway, newFindings, dropped int
	if c.Delta != nil {
		wentAway = len(c.Delta.WentAway())
		newFindings = len(c.Delta.NewFindings())
		dropped = c.Delta.DroppedCount
	}

	query := `
	INSERT INTO comparisons (
		previous_path, current_path, started_at, previous_digest, current_digest,
		went_away, new_findings, dropped, output_path, comparison_json
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		c.Pair.Previous,
		c.Pair.Current,
		c.StartedAt.UTC().Format(timestampLayout),
		c.Previous.Digest,
		c.Current.Digest,
		wentAway,
		newFindings,
		dropped,
		c.OutputPath,
		string(comparisonJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save comparison: %w", err)
	}

	return result.LastInsertId()
}

// ComparisonMetadata contains summary information about a saved comparison.
// This is used for listing history without loading the full comparison.
type ComparisonMetadata struct {
	// ID is the unique identifier of the comparison in the database.
	ID int64

	// Previous is the previous archive path.
	Previous string

	// Current is the current archive path.
	Current string

	// StartedAt is when the comparison was performed, in UTC.
	StartedAt time.Time

	// WentAway is the number of findings that went away.
	WentAway int

	// NewFindings is the number of new findings.
	NewFindings int

	// Dropped is the number of rows dropped for non-unique instance IDs.
	Dropped int

	// OutputPath is the CSV file that was written.
	OutputPath string
}

// ListComparisons returns metadata of saved comparisons, newest first.
// A limit of zero or less returns every row.
func (hdb *HistoryDB) ListComparisons(ctx context.Context, limit int) ([]ComparisonMetadata, error) {
	query := `
	SELECT id, previous_path, current_path, started_at, went_away, new_findings, dropped, output_path
	FROM comparisons
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer rows.Close()

	var results []ComparisonMetadata
	for rows.Next() {
		var meta ComparisonMetadata
		var startedAt string
		var outputPath sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.Previous,
			&meta.Current,
			&startedAt,
			&meta.WentAway,
			&meta.NewFindings,
			&meta.Dropped,
			&outputPath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.OutputPath = outputPath.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetComparisonByID retrieves a saved comparison by its database ID.
// It returns nil and no error when the ID does not exist.
func (hdb *HistoryDB) GetComparisonByID(ctx context.Context, id int64) (*model.Comparison, error) {
	query := `
	SELECT comparison_json FROM comparisons
	WHERE id = ?
	`

	var comparisonJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&comparisonJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}

	var c model.Comparison
	if err := json.Unmarshal([]byte(comparisonJSON), &c); err != nil {
		return nil, fmt.Errorf("failed to parse comparison: %w", err)
	}
	c.HistoryID = id

	return &c, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
