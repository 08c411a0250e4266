package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescribe/internal/model"
)

// FileName is the name of the history database inside the data directory.
const FileName = "sitescribe.db"

// timeLayout stores timestamps with fixed-width fractions so that text
// ordering in SQL matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunExists is returned by SaveRun when the run ID is already stored.
var ErrRunExists = errors.New("run already saved")

// CrawlDB stores the history of runs: one row per run and one row per
// visited page, so that later runs of the same site can be compared.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
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

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run 'sitescribe crawl' first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	// history may read while a crawl is saving.
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		host TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		max_pages INTEGER NOT NULL,
		pages_succeeded INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		discarded INTEGER NOT NULL DEFAULT 0,
		modules_succeeded INTEGER NOT NULL DEFAULT 0,
		modules_failed INTEGER NOT NULL DEFAULT 0,
		analysis_fallbacks INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		index_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Visited pages of a run, in crawl order
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		module TEXT,
		title TEXT,
		status TEXT NOT NULL,
		failure_kind TEXT,
		failure_reason TEXT,
		status_code INTEGER,
		content_type TEXT,
		word_count INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the stored summary of one run.
type RunRecord struct {
	ID                string    `json:"id"`
	TargetURL         string    `json:"target_url"`
	Host              string    `json:"host"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	MaxPages          int       `json:"max_pages"`
	PagesSucceeded    int       `json:"pages_succeeded"`
	PagesFailed       int       `json:"pages_failed"`
	Discarded         int       `json:"discarded"`
	ModulesSucceeded  int       `json:"modules_succeeded"`
	ModulesFailed     int       `json:"modules_failed"`
	AnalysisFallbacks int       `json:"analysis_fallbacks"`
	Cancelled         bool      `json:"cancelled"`
	IndexPath         string    `json:"index_path,omitempty"`
}

// PageRecord is one stored page of a run.
type PageRecord struct {
	RunID         string    `json:"run_id"`
	Position      int       `json:"position"`
	URL           string    `json:"url"`
	Module        string    `json:"module"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	FailureKind   string    `json:"failure_kind,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	ContentType   string    `json:"content_type,omitempty"`
	WordCount     int       `json:"word_count"`
	ContentHash   string    `json:"content_hash,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// SiteRecord summarizes the runs of one host.
type SiteRecord struct {
	Host    string    `json:"host"`
	Runs    int       `json:"runs"`
	LastRun time.Time `json:"last_run"`
}

// SaveRun stores a run and its pages in one transaction.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.RunReport) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, run.RunID)
	}

	s := run.Summary()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, target_url, host, started_at, finished_at, max_pages,
		pages_succeeded, pages_failed, discarded, modules_succeeded, modules_failed,
		analysis_fallbacks, cancelled, index_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.TargetURL,
		run.Host,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.MaxPages,
		s.PagesSucceeded,
		s.PagesFailed,
		s.Discarded,
		s.ModulesSucceeded,
		s.ModulesFailed,
		s.AnalysisFallbacks,
		s.Cancelled,
		run.IndexPath,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	moduleOf := make(map[*model.Page]string, len(run.Pages))
	for _, m := range run.Modules {
		for _, p := range m.Pages {
			moduleOf[p] = m.Name
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, position, url, module, title, status, failure_kind,
		failure_reason, status_code, content_type, word_count, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range run.Pages {
		var kind, reason string
		if p.Failure != nil {
			kind, reason = string(p.Failure.Kind), p.Failure.Reason
		}
		_, err = stmt.ExecContext(ctx,
			run.RunID,
			i,
			p.URL,
			moduleOf[p],
			p.Title,
			string(p.Status),
			kind,
			reason,
			p.StatusCode,
			p.ContentType,
			p.WordCount,
			p.Hash,
			formatTimestamp(p.FetchedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the runs of a host, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context, host string) ([]RunRecord, error) {
	query := `
	SELECT id, target_url, host, started_at, finished_at, max_pages,
		pages_succeeded, pages_failed, discarded, modules_succeeded, modules_failed,
		analysis_fallbacks, cancelled, index_path
	FROM runs
	WHERE host = ?
	ORDER BY started_at DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, host)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r                   RunRecord
			started             string
			finished, indexPath sql.NullString
		)
		err := rows.Scan(
			&r.ID,
			&r.TargetURL,
			&r.Host,
			&started,
			&finished,
			&r.MaxPages,
			&r.PagesSucceeded,
			&r.PagesFailed,
			&r.Discarded,
			&r.ModulesSucceeded,
			&r.ModulesFailed,
			&r.AnalysisFallbacks,
			&r.Cancelled,
			&indexPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished.String)
		r.IndexPath = indexPath.String
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// ListSites returns every host with stored runs, ordered by host.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]SiteRecord, error) {
	query := `
	SELECT host, COUNT(*), MAX(started_at)
	FROM runs
	GROUP BY host
	ORDER BY host
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []SiteRecord
	for rows.Next() {
		var (
			s    SiteRecord
			last string
		)
		if err := rows.Scan(&s.Host, &s.Runs, &last); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		s.LastRun = parseTimestamp(last)
		sites = append(sites, s)
	}

	return sites, rows.Err()
}

// GetRunPages returns the pages of a run in crawl order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID string) ([]PageRecord, error) {
	query := `
	SELECT run_id, position, url, module, title, status, failure_kind, failure_reason,
		status_code, content_type, word_count, content_hash, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY position
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var (
			p                                            PageRecord
			module, title, kind, reason, ctype, hash, at sql.NullString
			statusCode                                   sql.NullInt64
		)
		err := rows.Scan(
			&p.RunID,
			&p.Position,
			&p.URL,
			&module,
			&title,
			&p.Status,
			&kind,
			&reason,
			&statusCode,
			&ctype,
			&p.WordCount,
			&hash,
			&at,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Module = module.String
		p.Title = title.String
		p.FailureKind = kind.String
		p.FailureReason = reason.String
		p.StatusCode = int(statusCode.Int64)
		p.ContentType = ctype.String
		p.ContentHash = hash.String
		p.FetchedAt = parseTimestamp(at.String)
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// formatTimestamp returns the stored form of t, or an empty string for the zero time.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
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
