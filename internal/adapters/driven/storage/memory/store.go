package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore   = (*Store)(nil)
	_ driven.RunStore        = (*Store)(nil)
	_ driven.AnalysisStore   = (*Store)(nil)
	_ driven.SearchCache     = (*Store)(nil)
	_ driven.StatisticsStore = (*Store)(nil)
	_ driven.SchedulerStore  = (*Store)(nil)
)

// Store is an in-memory implementation of the metadata store ports for testing.
// A single mutex guards every table so multi-table writes are atomic.
type Store struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	runs      map[string]domain.CollectionRun
	links     map[string][]domain.RunDocument
	analyses  []domain.AnalysisResult
	nextID    int64
	cache     map[string]domain.SearchCacheEntry
	tasks     map[string]domain.ScheduledTask
	history   []domain.TaskResult

	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		runs:      make(map[string]domain.CollectionRun),
		links:     make(map[string][]domain.RunDocument),
		cache:     make(map[string]domain.SearchCacheEntry),
		tasks:     make(map[string]domain.ScheduledTask),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for timestamps and cache expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ==================== Documents ====================

// SaveDocument inserts or overwrites a document, keeping its creation time.
func (s *Store) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateDocument(doc); err != nil {
		return err
	}
	s.putDocument(doc)
	return nil
}

// GetDocument retrieves a document by hash.
func (s *Store) GetDocument(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(doc), nil
}

// DeleteDocument removes a document with its run links and analyses.
func (s *Store) DeleteDocument(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[hash]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, hash)

	for runID, links := range s.links {
		s.links[runID] = slices.DeleteFunc(links, func(l domain.RunDocument) bool {
			return l.DocumentHash == hash
		})
	}
	s.analyses = slices.DeleteFunc(s.analyses, func(r domain.AnalysisResult) bool {
		return r.DocumentHash == hash
	})
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

// SearchDocuments filters documents, ordered by confidence descending.
func (s *Store) SearchDocuments(_ context.Context, q domain.DocumentQuery) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(q.Text)
	var matched []domain.Document
	for _, doc := range s.documents {
		if text != "" && !strings.Contains(strings.ToLower(doc.Text), text) {
			continue
		}
		if len(q.Procedures) > 0 && !slices.Contains(q.Procedures, doc.Procedure) {
			continue
		}
		if q.Quality != "" && doc.Quality != q.Quality {
			continue
		}
		if doc.Confidence < q.MinConfidence {
			continue
		}
		if q.MaxConfidence > 0 && doc.Confidence > q.MaxConfidence {
			continue
		}
		matched = append(matched, *cloneDocument(doc))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Confidence != matched[j].Confidence {
			return matched[i].Confidence > matched[j].Confidence
		}
		return matched[i].Hash < matched[j].Hash
	})

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[max(q.Offset, 0):]
	if limit := q.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// KnownURLs returns every distinct document URL in sorted order.
func (s *Store) KnownURLs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.documents))
	for _, doc := range s.documents {
		if doc.URL != "" {
			seen[doc.URL] = true
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// putDocument applies defaults and stores doc (caller must hold lock).
func (s *Store) putDocument(doc *domain.Document) {
	now := s.now()

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
	if existing, ok := s.documents[doc.Hash]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	s.documents[doc.Hash] = *cloneDocument(*doc)
}

func validateDocument(doc *domain.Document) error {
	if doc == nil || doc.Hash == "" {
		return fmt.Errorf("%w: document hash is required", domain.ErrInvalidInput)
	}
	if doc.Confidence < 0 || doc.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrInvalidInput, doc.Confidence)
	}
	return nil
}

func cloneDocument(doc domain.Document) *domain.Document {
	doc.TimelineSnippets = slices.Clone(doc.TimelineSnippets)
	doc.MedicationSnippets = slices.Clone(doc.MedicationSnippets)
	doc.WarningSigns = slices.Clone(doc.WarningSigns)
	return &doc
}

// ==================== Runs ====================

// CreateRun allocates an id and stores the run as running.
func (s *Store) CreateRun(_ context.Context, run *domain.CollectionRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = uuid.NewString()
	run.Status = domain.RunRunning
	run.CompletedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(_ context.Context, id string) (*domain.CollectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneRun(run)
	return &clone, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(_ context.Context, limit int) ([]domain.CollectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.CollectionRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})

	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// CommitDocument upserts the document, links it and stores its analyses atomically.
// Nothing is written when any part is invalid.
func (s *Store) CommitDocument(
	_ context.Context, doc *domain.Document, link domain.RunDocument, results []domain.AnalysisResult,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateDocument(doc); err != nil {
		return err
	}
	if _, ok := s.runs[link.RunID]; !ok {
		return fmt.Errorf("linking document to run: %w", domain.ErrNotFound)
	}
	for i := range results {
		if results[i].Type == "" {
			return fmt.Errorf("%w: analysis needs a document hash and type", domain.ErrInvalidInput)
		}
	}

	s.putDocument(doc)

	now := s.now()
	linked := slices.ContainsFunc(s.links[link.RunID], func(l domain.RunDocument) bool {
		return l.DocumentHash == doc.Hash
	})
	if !linked {
		link.DocumentHash = doc.Hash
		if link.CreatedAt.IsZero() {
			link.CreatedAt = now
		}
		s.links[link.RunID] = append(s.links[link.RunID], link)
	}

	for i := range results {
		results[i].DocumentHash = doc.Hash
		if results[i].RunID == "" {
			results[i].RunID = link.RunID
		}
		s.appendAnalysis(&results[i], now)
	}
	return nil
}

// SealRun writes the run's aggregates, status and completion time.
func (s *Store) SealRun(_ context.Context, run *domain.CollectionRun) error {
	if run == nil || !run.Status.IsTerminal() {
		return fmt.Errorf("%w: run must be sealed in a terminal state", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[run.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !stored.Status.CanTransitionTo(run.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, stored.Status, run.Status)
	}

	completed := s.now()
	if run.CompletedAt != nil {
		completed = *run.CompletedAt
	}
	if completed.Before(run.StartedAt) {
		completed = run.StartedAt
	}
	run.CompletedAt = &completed

	stored.Status = run.Status
	stored.CompletedAt = &completed
	stored.Discovered = run.Discovered
	stored.Collected = run.Collected
	stored.Rejected = run.Rejected
	stored.Failed = run.Failed
	stored.SuccessRate = run.SuccessRate
	stored.AverageConfidence = run.AverageConfidence
	stored.Errors = slices.Clone(run.Errors)
	s.runs[run.ID] = stored
	return nil
}

// RunDocuments returns the run's document links in ordinal order.
func (s *Store) RunDocuments(_ context.Context, runID string) ([]domain.RunDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := slices.Clone(s.links[runID])
	sort.Slice(links, func(i, j int) bool {
		if links[i].Ordinal != links[j].Ordinal {
			return links[i].Ordinal < links[j].Ordinal
		}
		return links[i].DocumentHash < links[j].DocumentHash
	})
	return links, nil
}

func cloneRun(run domain.CollectionRun) domain.CollectionRun {
	run.Queries = slices.Clone(run.Queries)
	run.URLs = slices.Clone(run.URLs)
	run.Errors = slices.Clone(run.Errors)
	if run.CompletedAt != nil {
		completed := *run.CompletedAt
		run.CompletedAt = &completed
	}
	return run
}

// ==================== Analyses ====================

// SaveAnalysis stores a result and sets its ID.
func (s *Store) SaveAnalysis(_ context.Context, result *domain.AnalysisResult) error {
	if result == nil || result.DocumentHash == "" || result.Type == "" {
		return fmt.Errorf("%w: analysis needs a document hash and type", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[result.DocumentHash]; !ok {
		return fmt.Errorf("saving analysis: %w", domain.ErrNotFound)
	}
	s.appendAnalysis(result, s.now())
	return nil
}

// ListAnalyses returns results for a document, newest first.
func (s *Store) ListAnalyses(
	_ context.Context, documentHash string, analysisType domain.AnalysisType,
) ([]domain.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.AnalysisResult
	for _, r := range s.analyses {
		if r.DocumentHash != documentHash {
			continue
		}
		if analysisType != "" && r.Type != analysisType {
			continue
		}
		r.Payload = maps.Clone(r.Payload)
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}

// appendAnalysis assigns an id and stores r (caller must hold lock).
func (s *Store) appendAnalysis(r *domain.AnalysisResult, now time.Time) {
	s.nextID++
	r.ID = s.nextID
	if r.Version == "" {
		r.Version = domain.DefaultAnalysisVersion
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	stored := *r
	stored.Payload = maps.Clone(r.Payload)
	s.analyses = append(s.analyses, stored)
}

// ==================== Search Cache ====================

// SetCached stores results for (query, provider), replacing any previous entry.
func (s *Store) SetCached(_ context.Context, query, provider string, results []string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := domain.CacheKey(query, provider)
	s.cache[key] = domain.SearchCacheEntry{
		Key:       key,
		Query:     query,
		Provider:  provider,
		Results:   slices.Clone(results),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// GetCached returns the live entry for (query, provider).
func (s *Store) GetCached(_ context.Context, query, provider string) (*domain.SearchCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[domain.CacheKey(query, provider)]
	if !ok || entry.Expired(s.now()) {
		return nil, domain.ErrNotFound
	}
	entry.Results = slices.Clone(entry.Results)
	return &entry, nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *Store) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for key, entry := range s.cache {
		if entry.Expired(now) {
			delete(s.cache, key)
			purged++
		}
	}
	return purged, nil
}

// ==================== Statistics ====================

// Statistics aggregates the stored corpus.
func (s *Store) Statistics(_ context.Context) (*domain.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Statistics{
		TotalDocuments: len(s.documents),
		TotalRuns:      len(s.runs),
		ByProcedure:    make(map[domain.ProcedureCategory]int),
		ByQuality:      make(map[domain.QualityTier]int),
	}

	var sum float64
	for _, doc := range s.documents {
		sum += doc.Confidence
		stats.TotalBytes += doc.Size
		stats.ByProcedure[doc.Procedure]++
		stats.ByQuality[doc.Quality]++
	}
	if len(s.documents) > 0 {
		stats.AverageConfidence = sum / float64(len(s.documents))
	}

	now := s.now()
	for _, entry := range s.cache {
		if !entry.Expired(now) {
			stats.CachedQueries++
		}
	}
	return stats, nil
}

// ==================== Scheduler ====================

// GetTask retrieves a scheduled task by ID, or nil when absent.
func (s *Store) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// ListTasks returns all scheduled tasks ordered by id.
func (s *Store) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, id := range slices.Sorted(maps.Keys(s.tasks)) {
		tasks = append(tasks, s.tasks[id])
	}
	return tasks, nil
}

// SaveTask creates or updates a task.
func (s *Store) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// DeleteTask removes a task and its history.
func (s *Store) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, taskID)
	s.history = slices.DeleteFunc(s.history, func(r domain.TaskResult) bool {
		return r.TaskID == taskID
	})
	return nil
}

// RecordResult logs a task execution result.
func (s *Store) RecordResult(_ context.Context, result *domain.TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *result)
	return nil
}

// GetTaskHistory returns recent results for a task, most recent first.
func (s *Store) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := s.taskHistory(taskID)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PruneHistory keeps the most recent keep results per task.
func (s *Store) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []domain.TaskResult
	for _, id := range s.historyTaskIDs() {
		results := s.taskHistory(id)
		if len(results) > keep {
			results = results[:keep]
		}
		kept = append(kept, results...)
	}
	s.history = kept
	return nil
}

func (s *Store) taskHistory(taskID string) []domain.TaskResult {
	var results []domain.TaskResult
	for _, r := range s.history {
		if r.TaskID == taskID {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results
}

func (s *Store) historyTaskIDs() []string {
	ids := make(map[string]bool)
	for _, r := range s.history {
		ids[r.TaskID] = true
	}
	return slices.Sorted(maps.Keys(ids))
}
