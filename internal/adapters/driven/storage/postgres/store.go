package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore   = (*Store)(nil)
	_ driven.RunStore        = (*Store)(nil)
	_ driven.AnalysisStore   = (*Store)(nil)
	_ driven.SearchCache     = (*Store)(nil)
	_ driven.StatisticsStore = (*Store)(nil)
	_ driven.SchedulerStore  = (*Store)(nil)
)

// Connection retry policy used by Open.
const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// migrationLockID serialises concurrent migrators through pg_advisory_lock.
const migrationLockID = 7_318_004

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL implementation of the metadata store ports.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to databaseURL, retrying while the server comes up,
// and applies pending migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: database url is required", domain.ErrInvalidInput)
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}

		logger.Warn("postgres: connect attempt %d/%d failed: %v", attempt, connectAttempts, err)
		if attempt == connectAttempts {
			return nil, fmt.Errorf("connecting to database after %d attempts: %w", connectAttempts, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectDelay):
		}
	}

	s := &Store{pool: pool, now: now}
	if err := s.migrate(ctx, migrationsFS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// now returns the current time at the column precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context, fsys embed.FS) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("taking migration lock: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID) //nolint:errcheck

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	err = conn.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	names, err := fs.Glob(fsys, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, "migrations/"), "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Documents ====================

const documentColumns = `file_hash, url, filename, file_path, file_size, source_domain, fetched_at,
	text_content, confidence_score, procedure_type, content_quality, timeline_snippets,
	medication_snippets, warning_signs, language, page_count, has_images, has_tables,
	created_at, updated_at`

// SaveDocument inserts a document or overwrites the row with the same hash.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	return upsertDocument(ctx, s.pool, doc, s.now())
}

// GetDocument retrieves a document by hash.
func (s *Store) GetDocument(ctx context.Context, hash string) (*domain.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM pdf_documents WHERE file_hash = $1`, hash)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := pgx.CollectExactlyOneRow(rows, scanDocument)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document; links and analyses cascade.
func (s *Store) DeleteDocument(ctx context.Context, hash string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM pdf_documents WHERE file_hash = $1", hash)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProcedure returns documents of one category at or above minConfidence.
func (s *Store) ListByProcedure(
	ctx context.Context, category domain.ProcedureCategory, minConfidence float64, limit int,
) ([]domain.Document, error) {
	return s.SearchDocuments(ctx, domain.DocumentQuery{
		Procedures:    []domain.ProcedureCategory{category},
		MinConfidence: minConfidence,
		Limit:         limit,
	})
}

// SearchDocuments returns documents matching q, ordered by confidence descending.
func (s *Store) SearchDocuments(ctx context.Context, q domain.DocumentQuery) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Text != "" {
		where = append(where, `text_content ILIKE '%' || `+arg(escapeLike(q.Text))+` || '%' ESCAPE '\'`)
	}
	if len(q.Procedures) > 0 {
		procedures := make([]string, len(q.Procedures))
		for i, p := range q.Procedures {
			procedures[i] = string(p)
		}
		where = append(where, "procedure_type = ANY("+arg(procedures)+")")
	}
	if q.Quality != "" {
		where = append(where, "content_quality = "+arg(string(q.Quality)))
	}
	if q.MinConfidence > 0 {
		where = append(where, "confidence_score >= "+arg(q.MinConfidence))
	}
	if q.MaxConfidence > 0 {
		where = append(where, "confidence_score <= "+arg(q.MaxConfidence))
	}

	query := `SELECT ` + documentColumns + ` FROM pdf_documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY confidence_score DESC, file_hash LIMIT " + arg(q.EffectiveLimit()) +
		" OFFSET " + arg(max(q.Offset, 0))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	return docs, nil
}

// KnownURLs returns every distinct document URL in sorted order.
func (s *Store) KnownURLs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT url FROM pdf_documents WHERE url <> '' ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("querying known urls: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning urls: %w", err)
	}
	return urls, nil
}

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

	err := q.QueryRow(ctx, `
		INSERT INTO pdf_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (file_hash) DO UPDATE SET
			url = EXCLUDED.url,
			filename = EXCLUDED.filename,
			file_path = EXCLUDED.file_path,
			file_size = EXCLUDED.file_size,
			source_domain = EXCLUDED.source_domain,
			fetched_at = EXCLUDED.fetched_at,
			text_content = EXCLUDED.text_content,
			confidence_score = EXCLUDED.confidence_score,
			procedure_type = EXCLUDED.procedure_type,
			content_quality = EXCLUDED.content_quality,
			timeline_snippets = EXCLUDED.timeline_snippets,
			medication_snippets = EXCLUDED.medication_snippets,
			warning_signs = EXCLUDED.warning_signs,
			language = EXCLUDED.language,
			page_count = EXCLUDED.page_count,
			has_images = EXCLUDED.has_images,
			has_tables = EXCLUDED.has_tables,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`, doc.Hash, doc.URL, doc.Filename, doc.FilePath, doc.Size, doc.SourceDomain,
		doc.FetchedAt, doc.Text, doc.Confidence, string(doc.Procedure), string(doc.Quality),
		orEmpty(doc.TimelineSnippets), orEmpty(doc.MedicationSnippets), orEmpty(doc.WarningSigns),
		doc.Language, doc.PageCount, doc.HasImages, doc.HasTables,
		doc.CreatedAt, doc.UpdatedAt).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func scanDocument(row pgx.CollectableRow) (domain.Document, error) {
	var (
		doc                domain.Document
		procedure, quality string
	)
	err := row.Scan(&doc.Hash, &doc.URL, &doc.Filename, &doc.FilePath, &doc.Size,
		&doc.SourceDomain, &doc.FetchedAt, &doc.Text, &doc.Confidence, &procedure, &quality,
		&doc.TimelineSnippets, &doc.MedicationSnippets, &doc.WarningSigns, &doc.Language,
		&doc.PageCount, &doc.HasImages, &doc.HasTables, &doc.CreatedAt, &doc.UpdatedAt)
	doc.Procedure = domain.ProcedureCategory(procedure)
	doc.Quality = domain.QualityTier(quality)
	return doc, err
}

// ==================== Runs ====================

const runColumns = `id::text, queries, urls, status, started_at, completed_at, discovered, collected,
	rejected, failed, success_rate, average_confidence, errors, max_pdfs_per_source, quality_threshold`

// CreateRun allocates an id and stores the run as running.
func (s *Store) CreateRun(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	run.ID = uuid.NewString()
	run.Status = domain.RunRunning
	run.CompletedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO collection_runs (id, queries, urls, status, started_at, discovered, collected,
			rejected, failed, success_rate, average_confidence, errors, max_pdfs_per_source, quality_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, run.ID, orEmpty(run.Queries), orEmpty(run.URLs), string(run.Status), run.StartedAt,
		run.Discovered, run.Collected, run.Rejected, run.Failed, run.SuccessRate,
		run.AverageConfidence, orEmpty(run.Errors), run.MaxPDFsPerSource, run.QualityThreshold)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.CollectionRun, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM collection_runs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("reading run: %w", err)
	}
	run, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM collection_runs
		ORDER BY started_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("scanning runs: %w", err)
	}
	return runs, nil
}

// CommitDocument upserts the document, links it and stores its analyses in one transaction.
func (s *Store) CommitDocument(
	ctx context.Context, doc *domain.Document, link domain.RunDocument, results []domain.AnalysisResult,
) error {
	now := s.now()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := upsertDocument(ctx, tx, doc, now); err != nil {
			return err
		}

		if link.CreatedAt.IsZero() {
			link.CreatedAt = now
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO collection_run_pdfs (run_id, document_hash, ordinal, method, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id, document_hash) DO NOTHING
		`, link.RunID, doc.Hash, link.Ordinal, string(link.Method), link.CreatedAt)
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
func (s *Store) SealRun(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil || !run.Status.IsTerminal() {
		return fmt.Errorf("%w: run must be sealed in a terminal state", domain.ErrInvalidInput)
	}
	if uuid.Validate(run.ID) != nil {
		return domain.ErrNotFound
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, "SELECT status FROM collection_runs WHERE id = $1 FOR UPDATE", run.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading run status: %w", err)
		}

		from := domain.RunStatus(current)
		if !from.CanTransitionTo(run.Status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, run.Status)
		}

		completed := s.now()
		if run.CompletedAt != nil {
			completed = *run.CompletedAt
		}
		if completed.Before(run.StartedAt) {
			completed = run.StartedAt
		}
		run.CompletedAt = &completed

		_, err = tx.Exec(ctx, `
			UPDATE collection_runs SET
				status = $1, completed_at = $2, discovered = $3, collected = $4, rejected = $5,
				failed = $6, success_rate = $7, average_confidence = $8, errors = $9
			WHERE id = $10
		`, string(run.Status), completed, run.Discovered, run.Collected, run.Rejected,
			run.Failed, run.SuccessRate, run.AverageConfidence, orEmpty(run.Errors), run.ID)
		if err != nil {
			return fmt.Errorf("sealing run: %w", err)
		}
		return nil
	})
}

// RunDocuments returns the run's document links in ordinal order.
func (s *Store) RunDocuments(ctx context.Context, runID string) ([]domain.RunDocument, error) {
	if uuid.Validate(runID) != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id::text, document_hash, ordinal, method, created_at
		FROM collection_run_pdfs
		WHERE run_id = $1
		ORDER BY ordinal, document_hash
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run documents: %w", err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RunDocument, error) {
		var (
			link   domain.RunDocument
			method string
		)
		err := row.Scan(&link.RunID, &link.DocumentHash, &link.Ordinal, &method, &link.CreatedAt)
		link.Method = domain.DiscoveryMethod(method)
		return link, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning run documents: %w", err)
	}
	return links, nil
}

func scanRun(row pgx.CollectableRow) (domain.CollectionRun, error) {
	var (
		run    domain.CollectionRun
		status string
	)
	err := row.Scan(&run.ID, &run.Queries, &run.URLs, &status, &run.StartedAt, &run.CompletedAt,
		&run.Discovered, &run.Collected, &run.Rejected, &run.Failed, &run.SuccessRate,
		&run.AverageConfidence, &run.Errors, &run.MaxPDFsPerSource, &run.QualityThreshold)
	run.Status = domain.RunStatus(status)
	return run, err
}

// ==================== Analyses ====================

// SaveAnalysis inserts a result and sets its ID.
func (s *Store) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	return insertAnalysis(ctx, s.pool, result, s.now())
}

// ListAnalyses returns results for a document, newest first.
func (s *Store) ListAnalyses(
	ctx context.Context, documentHash string, analysisType domain.AnalysisType,
) ([]domain.AnalysisResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_hash, COALESCE(run_id::text, ''), analysis_type, version, payload,
			confidence, processing_ms, COALESCE(error, ''), created_at
		FROM analysis_results
		WHERE document_hash = $1 AND ($2 = '' OR analysis_type = $2)
		ORDER BY created_at DESC, id DESC
	`, documentHash, string(analysisType))
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AnalysisResult, error) {
		var (
			r   domain.AnalysisResult
			typ string
			ms  int64
		)
		err := row.Scan(&r.ID, &r.DocumentHash, &r.RunID, &typ, &r.Version, &r.Payload,
			&r.Confidence, &ms, &r.Error, &r.CreatedAt)
		r.Type = domain.AnalysisType(typ)
		r.ProcessingTime = time.Duration(ms) * time.Millisecond
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning analyses: %w", err)
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
	payload := r.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	err := q.QueryRow(ctx, `
		INSERT INTO analysis_results (document_hash, run_id, analysis_type, version, payload,
			confidence, processing_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.DocumentHash, nullIfEmpty(r.RunID), string(r.Type), r.Version, payload,
		r.Confidence, r.ProcessingTime.Milliseconds(), nullIfEmpty(r.Error), r.CreatedAt).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// ==================== Search Cache ====================

// SetCached stores results for (query, provider), replacing any previous entry.
func (s *Store) SetCached(ctx context.Context, query, provider string, results []string, ttl time.Duration) error {
	now := s.now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_cache (cache_key, query, provider, results, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			results = EXCLUDED.results,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, domain.CacheKey(query, provider), query, provider, orEmpty(results), now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("caching search results: %w", err)
	}
	return nil
}

// GetCached returns the live entry for (query, provider).
func (s *Store) GetCached(ctx context.Context, query, provider string) (*domain.SearchCacheEntry, error) {
	var entry domain.SearchCacheEntry
	err := s.pool.QueryRow(ctx, `
		SELECT cache_key, query, provider, results, created_at, expires_at
		FROM search_cache WHERE cache_key = $1
	`, domain.CacheKey(query, provider)).Scan(&entry.Key, &entry.Query, &entry.Provider,
		&entry.Results, &entry.CreatedAt, &entry.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading search cache: %w", err)
	}
	if entry.Expired(s.now()) {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM search_cache WHERE expires_at <= $1", s.now())
	if err != nil {
		return 0, fmt.Errorf("purging search cache: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ==================== Statistics ====================

// Statistics computes totals and breakdowns over the stored corpus.
func (s *Store) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		ByProcedure: make(map[domain.ProcedureCategory]int),
		ByQuality:   make(map[domain.QualityTier]int),
	}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM pdf_documents),
			(SELECT COALESCE(AVG(confidence_score), 0) FROM pdf_documents),
			(SELECT COALESCE(SUM(file_size), 0)::BIGINT FROM pdf_documents),
			(SELECT COUNT(*) FROM collection_runs),
			(SELECT COUNT(*) FROM search_cache WHERE expires_at > $1)
	`, s.now()).Scan(&stats.TotalDocuments, &stats.AverageConfidence, &stats.TotalBytes,
		&stats.TotalRuns, &stats.CachedQueries)
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT 'procedure', procedure_type, COUNT(*) FROM pdf_documents GROUP BY procedure_type
		UNION ALL
		SELECT 'quality', content_quality, COUNT(*) FROM pdf_documents GROUP BY content_quality
	`)
	if err != nil {
		return nil, fmt.Errorf("grouping documents: %w", err)
	}
	var dimension, key string
	var n int
	_, err = pgx.ForEachRow(rows, []any{&dimension, &key, &n}, func() error {
		if dimension == "procedure" {
			stats.ByProcedure[domain.ProcedureCategory(key)] = n
		} else {
			stats.ByQuality[domain.QualityTier(key)] = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning group counts: %w", err)
	}
	return stats, nil
}

// ==================== Scheduler ====================

const taskColumns = `id, name, interval_seconds, last_run, next_run, COALESCE(last_error, ''), last_success, enabled`

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *Store) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = $1`, taskID)
	if err != nil {
		return nil, fmt.Errorf("reading scheduled task: %w", err)
	}
	task, err := pgx.CollectExactlyOneRow(rows, scanTask)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scheduled task: %w", err)
	}
	return &task, nil
}

// ListTasks returns all scheduled tasks ordered by id.
func (s *Store) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask creates or updates a task.
func (s *Store) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_tasks (id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			interval_seconds = EXCLUDED.interval_seconds,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error = EXCLUDED.last_error,
			last_success = EXCLUDED.last_success,
			enabled = EXCLUDED.enabled
	`, task.ID, task.Name, int64(task.Interval.Seconds()), nullTime(task.LastRun),
		nullTime(task.NextRun), nullIfEmpty(task.LastError), nullTime(task.LastSuccess), task.Enabled)
	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// DeleteTask removes a task from storage.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM scheduled_tasks WHERE id = $1", taskID); err != nil {
		return fmt.Errorf("deleting scheduled task: %w", err)
	}
	return nil
}

// RecordResult logs a task execution result.
func (s *Store) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, result.TaskID, result.StartedAt, result.EndedAt, result.Success,
		nullIfEmpty(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// GetTaskHistory returns recent results for a task, most recent first.
// A limit of zero or less returns the full history.
func (s *Store) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT task_id, started_at, ended_at, success, COALESCE(error, ''), items_processed
		FROM task_results
		WHERE task_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, taskID, lim)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TaskResult, error) {
		var r domain.TaskResult
		err := row.Scan(&r.TaskID, &r.StartedAt, &r.EndedAt, &r.Success, &r.Error, &r.ItemsProcessed)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning task history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps the most recent keep results per task.
func (s *Store) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM task_results
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC) AS rn
				FROM task_results
			) ranked WHERE rn > $1
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanTask(row pgx.CollectableRow) (domain.ScheduledTask, error) {
	var (
		task                           domain.ScheduledTask
		seconds                        int64
		lastRun, nextRun, lastSuccess *time.Time
	)
	err := row.Scan(&task.ID, &task.Name, &seconds, &lastRun, &nextRun,
		&task.LastError, &lastSuccess, &task.Enabled)
	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = derefTime(lastRun)
	task.NextRun = derefTime(nextRun)
	task.LastSuccess = derefTime(lastSuccess)
	return task, err
}

// ==================== Helpers ====================

// orEmpty keeps NOT NULL array columns from receiving NULL.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
