package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/postop-collector/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "collector.db"

// timeLayout keeps stored timestamps fixed-width so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a unified SQLite-based storage that provides access to
// all collector store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to $XDG_DATA_HOME/postop-collector.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, "postop-collector")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL for concurrent readers; immediate transactions so writers queue on busy_timeout
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// AnalysisStore returns an AnalysisStore interface backed by this store.
func (s *Store) AnalysisStore() driven.AnalysisStore {
	return &analysisStore{store: s}
}

// SearchCache returns a SearchCache interface backed by this store.
func (s *Store) SearchCache() driven.SearchCache {
	return &searchCache{store: s}
}

// StatisticsStore returns a StatisticsStore interface backed by this store.
func (s *Store) StatisticsStore() driven.StatisticsStore {
	return &statisticsStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `file_hash, url, filename, file_path, file_size, source_domain, fetched_at,
	text_content, confidence_score, procedure_type, content_quality,
	timeline_snippets, medication_snippets, warning_signs, language,
	page_count, has_images, has_tables, created_at, updated_at`

// SaveDocument inserts a document or overwrites the existing row with the same hash.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	return upsertDocument(ctx, s.store.db, doc, s.store.now())
}

// GetDocument retrieves a document by hash.
func (s *documentStore) GetDocument(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM pdf_documents WHERE file_hash = ?`, hash)
	return scanDocument(row)
}

// DeleteDocument removes a document. Run links and analysis results cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, hash string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM pdf_documents WHERE file_hash = ?", hash)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProcedure returns documents of one category, most confident first.
func (s *documentStore) ListByProcedure(
	ctx context.Context, category domain.ProcedureCategory, minConfidence float64, limit int,
) ([]domain.Document, error) {
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM pdf_documents
		WHERE procedure_type = ? AND confidence_score >= ?
		ORDER BY confidence_score DESC, file_hash
		LIMIT ?
	`, string(category), minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("querying documents by procedure: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// SearchDocuments returns documents matching every set filter, most confident first.
func (s *documentStore) SearchDocuments(ctx context.Context, q domain.DocumentQuery) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)

	if q.Text != "" {
		where = append(where, `LOWER(text_content) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Text))+"%")
	}
	if len(q.Procedures) > 0 {
		marks := make([]string, len(q.Procedures))
		for i, p := range q.Procedures {
			marks[i] = "?"
			args = append(args, string(p))
		}
		where = append(where, "procedure_type IN ("+strings.Join(marks, ", ")+")")
	}
	if q.Quality != "" {
		where = append(where, "content_quality = ?")
		args = append(args, string(q.Quality))
	}
	if q.MinConfidence > 0 {
		where = append(where, "confidence_score >= ?")
		args = append(args, q.MinConfidence)
	}
	if q.MaxConfidence > 0 {
		where = append(where, "confidence_score <= ?")
		args = append(args, q.MaxConfidence)
	}

	query := `SELECT ` + documentColumns + ` FROM pdf_documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY confidence_score DESC, file_hash LIMIT ? OFFSET ?"
	args = append(args, q.EffectiveLimit(), max(q.Offset, 0))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// KnownURLs returns every URL a stored document was fetched from.
func (s *documentStore) KnownURLs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT DISTINCT url FROM pdf_documents ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("querying known urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating urls: %w", err)
	}
	return urls, nil
}

// upsertDocument writes doc, keeping the original created_at on conflict.
// doc is bounded in place and its timestamps are filled in.
func upsertDocument(ctx context.Context, q querier, doc *domain.Document, now time.Time) error {
	if doc == nil || doc.Hash == "" {
		return fmt.Errorf("%w: document hash is required", domain.ErrInvalidInput)
	}
	if doc.Confidence < 0 || doc.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrInvalidInput, doc.Confidence)
	}

	doc.Bound()
	if doc.Language == "" {
		doc.Language = domain.DefaultLanguage
	}
	if doc.Procedure == "" {
		doc.Procedure = domain.ProcedureUnknown
	}
	if doc.Quality == "" {
		doc.Quality = domain.QualityUnassessed
	}
	if doc.FetchedAt.IsZero() {
		doc.FetchedAt = now
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	timeline, err := marshalStrings(doc.TimelineSnippets)
	if err != nil {
		return err
	}
	meds, err := marshalStrings(doc.MedicationSnippets)
	if err != nil {
		return err
	}
	warnings, err := marshalStrings(doc.WarningSigns)
	if err != nil {
		return err
	}

	var createdAt string
	err = q.QueryRowContext(ctx, `
		INSERT INTO pdf_documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_hash) DO UPDATE SET
			url = excluded.url,
			filename = excluded.filename,
			file_path = excluded.file_path,
			file_size = excluded.file_size,
			source_domain = excluded.source_domain,
			fetched_at = excluded.fetched_at,
			text_content = excluded.text_content,
			confidence_score = excluded.confidence_score,
			procedure_type = excluded.procedure_type,
			content_quality = excluded.content_quality,
			timeline_snippets = excluded.timeline_snippets,
			medication_snippets = excluded.medication_snippets,
			warning_signs = excluded.warning_signs,
			language = excluded.language,
			page_count = excluded.page_count,
			has_images = excluded.has_images,
			has_tables = excluded.has_tables,
			updated_at = excluded.updated_at
		RETURNING created_at
	`, doc.Hash, doc.URL, doc.Filename, doc.FilePath, doc.Size, doc.SourceDomain,
		formatTime(doc.FetchedAt), doc.Text, doc.Confidence, string(doc.Procedure),
		string(doc.Quality), timeline, meds, warnings, doc.Language, doc.PageCount,
		boolToInt(doc.HasImages), boolToInt(doc.HasTables),
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt)).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	doc.CreatedAt = parseTime(createdAt)
	return nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

const runColumns = `id, queries, urls, status, started_at, completed_at, discovered, collected,
	rejected, failed, success_rate, average_confidence, errors, max_pdfs_per_source, quality_threshold`

// CreateRun allocates an id and stores the run as running.
func (s *runStore) CreateRun(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	run.ID = uuid.NewString()
	run.Status = domain.RunRunning
	run.CompletedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = s.store.now()
	}

	queries, err := marshalStrings(run.Queries)
	if err != nil {
		return err
	}
	urls, err := marshalStrings(run.URLs)
	if err != nil {
		return err
	}
	errs, err := marshalStrings(run.Errors)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO collection_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, queries, urls, string(run.Status), formatTime(run.StartedAt),
		run.Discovered, run.Collected, run.Rejected, run.Failed,
		run.SuccessRate, run.AverageConfidence, errs,
		run.MaxPDFsPerSource, run.QualityThreshold)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.CollectionRun, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM collection_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM collection_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CollectionRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// CommitDocument upserts the document, links it to the run and inserts its
// analysis results in one transaction.
func (s *runStore) CommitDocument(
	ctx context.Context, doc *domain.Document, link domain.RunDocument, results []domain.AnalysisResult,
) error {
	now := s.store.now()

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertDocument(ctx, tx, doc, now); err != nil {
			return err
		}

		if link.CreatedAt.IsZero() {
			link.CreatedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collection_run_pdfs (run_id, document_hash, ordinal, method, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, document_hash) DO NOTHING
		`, link.RunID, doc.Hash, link.Ordinal, string(link.Method), formatTime(link.CreatedAt))
		if err != nil {
			return fmt.Errorf("linking document to run: %w", err)
		}

		for i := range results {
			results[i].DocumentHash = doc.Hash
			if results[i].RunID == "" {
				results[i].RunID = link.RunID
			}
			if err := insertAnalysis(ctx, tx, &results[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// SealRun writes the run's aggregates, status and completion time atomically.
func (s *runStore) SealRun(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil || !run.Status.IsTerminal() {
		return fmt.Errorf("%w: run must be sealed in a terminal state", domain.ErrInvalidInput)
	}

	errs, err := marshalStrings(run.Errors)
	if err != nil {
		return err
	}

	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM collection_runs WHERE id = ?", run.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading run status: %w", err)
		}

		from := domain.RunStatus(current)
		if !from.CanTransitionTo(run.Status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, run.Status)
		}

		completed := s.store.now()
		if run.CompletedAt != nil {
			completed = *run.CompletedAt
		}
		if completed.Before(run.StartedAt) {
			completed = run.StartedAt
		}
		run.CompletedAt = &completed

		_, err = tx.ExecContext(ctx, `
			UPDATE collection_runs SET
				status = ?, completed_at = ?, discovered = ?, collected = ?,
				rejected = ?, failed = ?, success_rate = ?, average_confidence = ?, errors = ?
			WHERE id = ?
		`, string(run.Status), formatTime(completed), run.Discovered, run.Collected,
			run.Rejected, run.Failed, run.SuccessRate, run.AverageConfidence, errs, run.ID)
		if err != nil {
			return fmt.Errorf("sealing run: %w", err)
		}
		return nil
	})
}

// RunDocuments returns the run's document links in ordinal order.
func (s *runStore) RunDocuments(ctx context.Context, runID string) ([]domain.RunDocument, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, document_hash, ordinal, method, created_at
		FROM collection_run_pdfs
		WHERE run_id = ?
		ORDER BY ordinal, document_hash
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run documents: %w", err)
	}
	defer rows.Close()

	var links []domain.RunDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			link      domain.RunDocument
			method    string
			createdAt string
		)
		if err := rows.Scan(&link.RunID, &link.DocumentHash, &link.Ordinal, &method, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning run document: %w", err)
		}
		link.Method = domain.DiscoveryMethod(method)
		link.CreatedAt = parseTime(createdAt)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run documents: %w", err)
	}
	return links, nil
}

// ==================== Analysis Store ====================

// analysisStore implements driven.AnalysisStore.
type analysisStore struct {
	store *Store
}

var _ driven.AnalysisStore = (*analysisStore)(nil)

// SaveAnalysis inserts a result and sets its ID.
func (s *analysisStore) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	return insertAnalysis(ctx, s.store.db, result, s.store.now())
}

// ListAnalyses returns results for a document, newest first.
func (s *analysisStore) ListAnalyses(
	ctx context.Context, documentHash string, analysisType domain.AnalysisType,
) ([]domain.AnalysisResult, error) {
	query := `
		SELECT id, document_hash, run_id, analysis_type, version, payload, confidence,
			processing_ms, error, created_at
		FROM analysis_results
		WHERE document_hash = ?`
	args := []any{documentHash}
	if analysisType != "" {
		query += " AND analysis_type = ?"
		args = append(args, string(analysisType))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var results []domain.AnalysisResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r         domain.AnalysisResult
			runID     sql.NullString
			errMsg    sql.NullString
			typ       string
			payload   string
			ms        int64
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.DocumentHash, &runID, &typ, &r.Version, &payload,
			&r.Confidence, &ms, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		r.RunID = runID.String
		r.Error = errMsg.String
		r.Type = domain.AnalysisType(typ)
		r.ProcessingTime = time.Duration(ms) * time.Millisecond
		r.CreatedAt = parseTime(createdAt)
		if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling payload: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analyses: %w", err)
	}
	return results, nil
}

func insertAnalysis(ctx context.Context, q querier, r *domain.AnalysisResult, now time.Time) error {
	if r == nil || r.DocumentHash == "" || r.Type == "" {
		return fmt.Errorf("%w: analysis needs a document hash and type", domain.ErrInvalidInput)
	}
	if r.Version == "" {
		r.Version = domain.DefaultAnalysisVersion
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	payload := "{}"
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		payload = string(data)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO analysis_results (document_hash, run_id, analysis_type, version, payload,
			confidence, processing_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.DocumentHash, nullString(r.RunID), string(r.Type), r.Version, payload,
		r.Confidence, r.ProcessingTime.Milliseconds(), nullString(r.Error), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading analysis id: %w", err)
	}
	r.ID = id
	return nil
}

// ==================== Search Cache ====================

// searchCache implements driven.SearchCache.
type searchCache struct {
	store *Store
}

var _ driven.SearchCache = (*searchCache)(nil)

// SetCached stores results for (query, provider), replacing any previous entry.
func (s *searchCache) SetCached(
	ctx context.Context, query, provider string, results []string, ttl time.Duration,
) error {
	data, err := marshalStrings(results)
	if err != nil {
		return err
	}

	now := s.store.now()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO search_cache (cache_key, query, provider, results, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			results = excluded.results,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, domain.CacheKey(query, provider), query, provider, data,
		formatTime(now), formatTime(now.Add(ttl)))
	if err != nil {
		return fmt.Errorf("caching search results: %w", err)
	}
	return nil
}

// GetCached returns the live entry for (query, provider).
func (s *searchCache) GetCached(ctx context.Context, query, provider string) (*domain.SearchCacheEntry, error) {
	var (
		entry   domain.SearchCacheEntry
		results string
		created string
		expires string
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT cache_key, query, provider, results, created_at, expires_at
		FROM search_cache WHERE cache_key = ?
	`, domain.CacheKey(query, provider)).Scan(&entry.Key, &entry.Query, &entry.Provider,
		&results, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading search cache: %w", err)
	}

	entry.CreatedAt = parseTime(created)
	entry.ExpiresAt = parseTime(expires)
	if entry.Expired(s.store.now()) {
		return nil, domain.ErrNotFound
	}

	if entry.Results, err = unmarshalStrings(results); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *searchCache) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM search_cache WHERE expires_at <= ?", formatTime(s.store.now()))
	if err != nil {
		return 0, fmt.Errorf("purging search cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}
	return int(n), nil
}

// ==================== Statistics Store ====================

// statisticsStore implements driven.StatisticsStore.
type statisticsStore struct {
	store *Store
}

var _ driven.StatisticsStore = (*statisticsStore)(nil)

// Statistics computes totals and breakdowns over the stored corpus.
func (s *statisticsStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		ByProcedure: make(map[domain.ProcedureCategory]int),
		ByQuality:   make(map[domain.QualityTier]int),
	}
	db := s.store.db

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(confidence_score), 0), COALESCE(SUM(file_size), 0)
		FROM pdf_documents
	`).Scan(&stats.TotalDocuments, &stats.AverageConfidence, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collection_runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_cache WHERE expires_at > ?",
		formatTime(s.store.now())).Scan(&stats.CachedQueries)
	if err != nil {
		return nil, fmt.Errorf("counting cached queries: %w", err)
	}

	if err := groupCounts(ctx, db, "procedure_type", func(k string, n int) {
		stats.ByProcedure[domain.ProcedureCategory(k)] = n
	}); err != nil {
		return nil, err
	}
	if err := groupCounts(ctx, db, "content_quality", func(k string, n int) {
		stats.ByQuality[domain.QualityTier(k)] = n
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCounts counts documents per value of column. column is never user input.
func groupCounts(ctx context.Context, q querier, column string, fn func(string, int)) error {
	rows, err := q.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM pdf_documents GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning %s count: %w", column, err)
		}
		fn(key, n)
	}
	return rows.Err()
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc                       domain.Document
		fetched, created, updated string
		timeline, meds, warnings  string
		procedure, quality        string
		hasImages, hasTables      int
	)

	if err := row.Scan(&doc.Hash, &doc.URL, &doc.Filename, &doc.FilePath, &doc.Size,
		&doc.SourceDomain, &fetched, &doc.Text, &doc.Confidence, &procedure, &quality,
		&timeline, &meds, &warnings, &doc.Language, &doc.PageCount,
		&hasImages, &hasTables, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Procedure = domain.ProcedureCategory(procedure)
	doc.Quality = domain.QualityTier(quality)
	doc.HasImages = hasImages == 1
	doc.HasTables = hasTables == 1
	doc.FetchedAt = parseTime(fetched)
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)

	var err error
	if doc.TimelineSnippets, err = unmarshalStrings(timeline); err != nil {
		return nil, err
	}
	if doc.MedicationSnippets, err = unmarshalStrings(meds); err != nil {
		return nil, err
	}
	if doc.WarningSigns, err = unmarshalStrings(warnings); err != nil {
		return nil, err
	}

	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// scanRun scans a single run row.
func scanRun(row scanner) (*domain.CollectionRun, error) {
	var (
		run                 domain.CollectionRun
		queries, urls, errs string
		status, started     string
		completed           sql.NullString
	)

	if err := row.Scan(&run.ID, &queries, &urls, &status, &started, &completed,
		&run.Discovered, &run.Collected, &run.Rejected, &run.Failed,
		&run.SuccessRate, &run.AverageConfidence, &errs,
		&run.MaxPDFsPerSource, &run.QualityThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.StartedAt = parseTime(started)
	if completed.Valid {
		t := parseTime(completed.String)
		run.CompletedAt = &t
	}

	var err error
	if run.Queries, err = unmarshalStrings(queries); err != nil {
		return nil, err
	}
	if run.URLs, err = unmarshalStrings(urls); err != nil {
		return nil, err
	}
	if run.Errors, err = unmarshalStrings(errs); err != nil {
		return nil, err
	}

	return &run, nil
}

// formatTime renders t in UTC with a fixed width.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp, returning zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}
		}
	}
	return t
}

func marshalStrings(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshalling list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	var s []string
	if data == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshalling list: %w", err)
	}
	return s, nil
}

// escapeLike escapes LIKE wildcards using backslash.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
