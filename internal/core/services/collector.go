package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Collector implements the interface.
var _ driving.CollectionService = (*Collector)(nil)

const (
	// maxRunErrors caps the error text kept on a run.
	maxRunErrors = 100

	// alternativeCategories is how many ranked categories the procedure result keeps.
	alternativeCategories = 3

	defaultSearchResults = 10
)

// errRejected marks a filtering decision rather than a failure.
var errRejected = errors.New("rejected")

// CollectorConfig bounds the work a run performs.
type CollectorConfig struct {
	// MaxPDFsPerSource caps the PDFs taken from one crawled site.
	MaxPDFsPerSource int

	// MinConfidence is the relevance floor for documents not flagged relevant.
	MinConfidence float64

	// Workers is the number of URLs processed concurrently.
	Workers int

	// SearchResults is the result count requested per query.
	SearchResults int

	// MinTextLength rejects documents whose cleaned text is shorter. Zero disables the check.
	MinTextLength int
}

// CollectorPorts are the collaborators a Collector drives.
// Search may be nil, which disables query-based discovery.
type CollectorPorts struct {
	Runs        driven.RunStore
	Blobs       driven.BlobStore
	Fetcher     driven.Fetcher
	Crawler     driven.Crawler
	Search      driven.SearchProvider
	Extractor   driven.TextExtractor
	Analyser    driven.ContentAnalyser
	Categoriser driven.ProcedureCategoriser
	Timeline    driven.TimelineParser
}

// Collector runs the ingestion pipeline: discover, download, extract,
// analyse, categorise, parse the timeline and commit.
type Collector struct {
	ports  CollectorPorts
	cfg    CollectorConfig
	now    func() time.Time
	hashes *keyedMutex

	mu     sync.Mutex
	active map[string]*activeRun
}

// NewCollector creates a collector.
func NewCollector(ports CollectorPorts, cfg CollectorConfig) *Collector {
	return &Collector{
		ports:  ports,
		cfg:    cfg,
		now:    time.Now,
		hashes: newKeyedMutex(),
		active: make(map[string]*activeRun),
	}
}

// SetClock replaces the clock used for run and document timestamps.
func (c *Collector) SetClock(now func() time.Time) {
	c.now = now
}

// candidate is a PDF URL queued for processing.
type candidate struct {
	url    string
	method domain.DiscoveryMethod
}

// activeRun tracks a run executing in this process.
type activeRun struct {
	id     string
	cfg    CollectorConfig
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	run         *domain.CollectionRun
	confidences []float64
	ordinal     int
}

func (a *activeRun) update(fn func(run *domain.CollectionRun)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.run)
}

func (a *activeRun) addError(msg string) {
	a.update(func(run *domain.CollectionRun) {
		if len(run.Errors) < maxRunErrors {
			run.Errors = append(run.Errors, msg)
		}
	})
}

func (a *activeRun) collected(confidence float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.run.Collected++
	a.confidences = append(a.confidences, confidence)
}

func (a *activeRun) nextOrdinal() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ordinal++
	return a.ordinal
}

func (a *activeRun) progress() *driving.RunProgress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &driving.RunProgress{
		RunID:      a.id,
		Running:    true,
		Status:     a.run.Status,
		Discovered: a.run.Discovered,
		Collected:  a.run.Collected,
		Rejected:   a.run.Rejected,
		Failed:     a.run.Failed,
	}
}

// ==================== Run lifecycle ====================

// Run executes a collection run to completion and returns the sealed run.
// Cancelling ctx seals the run as cancelled with its partial counters.
func (c *Collector) Run(ctx context.Context, req driving.CollectionRequest) (*domain.CollectionRun, error) {
	ar, runCtx, err := c.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	c.execute(runCtx, ar, req)
	return c.finish(runCtx, ar)
}

// Start launches a run in the background and returns its id.
// The run outlives ctx; stop it with Cancel.
func (c *Collector) Start(ctx context.Context, req driving.CollectionRequest) (string, error) {
	ar, runCtx, err := c.begin(context.WithoutCancel(ctx), req)
	if err != nil {
		return "", err
	}

	go func() {
		c.execute(runCtx, ar, req)
		if _, err := c.finish(runCtx, ar); err != nil {
			logger.Error("Run %s: %v", ar.id, err)
		}
	}()

	return ar.id, nil
}

// Cancel stops an active run. Documents already committed are kept.
func (c *Collector) Cancel(_ context.Context, runID string) error {
	ar := c.lookup(runID)
	if ar == nil {
		return fmt.Errorf("%w: %s", domain.ErrRunNotActive, runID)
	}
	logger.Info("Cancelling run %s", runID)
	ar.cancel()
	return nil
}

// Wait blocks until the run stops executing in this process or ctx ends.
// It returns immediately for runs that are not active.
func (c *Collector) Wait(ctx context.Context, runID string) error {
	ar := c.lookup(runID)
	if ar == nil {
		return nil
	}
	select {
	case <-ar.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every active run and waits for them to be sealed.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	runs := make([]*activeRun, 0, len(c.active))
	for _, ar := range c.active {
		runs = append(runs, ar)
	}
	c.mu.Unlock()

	for _, ar := range runs {
		ar.cancel()
	}
	for _, ar := range runs {
		select {
		case <-ar.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Status returns live progress for active runs, stored counters otherwise.
func (c *Collector) Status(ctx context.Context, runID string) (*driving.RunProgress, error) {
	if ar := c.lookup(runID); ar != nil {
		return ar.progress(), nil
	}

	run, err := c.ports.Runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &driving.RunProgress{
		RunID:      run.ID,
		Status:     run.Status,
		Discovered: run.Discovered,
		Collected:  run.Collected,
		Rejected:   run.Rejected,
		Failed:     run.Failed,
	}, nil
}

// GetRun retrieves a stored run.
func (c *Collector) GetRun(ctx context.Context, runID string) (*domain.CollectionRun, error) {
	return c.ports.Runs.GetRun(ctx, runID)
}

// ListRuns returns the most recent runs.
func (c *Collector) ListRuns(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	return c.ports.Runs.ListRuns(ctx, limit)
}

// RunDocuments returns the documents a run collected, in collection order.
func (c *Collector) RunDocuments(ctx context.Context, runID string) ([]domain.RunDocument, error) {
	return c.ports.Runs.RunDocuments(ctx, runID)
}

func (c *Collector) lookup(runID string) *activeRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[runID]
}

// effective applies request overrides and defaults to the configured bounds.
func (c *Collector) effective(req driving.CollectionRequest) CollectorConfig {
	cfg := c.cfg
	if req.MaxPDFsPerSource > 0 {
		cfg.MaxPDFsPerSource = req.MaxPDFsPerSource
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	if cfg.MaxPDFsPerSource < 1 {
		cfg.MaxPDFsPerSource = domain.DefaultSettings().Collection.MaxPDFsPerSource
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SearchResults < 1 {
		cfg.SearchResults = defaultSearchResults
	}
	return cfg
}

// begin stores a new run and registers it as active.
func (c *Collector) begin(ctx context.Context, req driving.CollectionRequest) (*activeRun, context.Context, error) {
	if req.IsEmpty() {
		return nil, nil, fmt.Errorf("%w: nothing to collect", domain.ErrInvalidInput)
	}

	cfg := c.effective(req)
	run := &domain.CollectionRun{
		Queries:          slices.Clone(req.Queries),
		URLs:             slices.Clone(req.URLs),
		Status:           domain.RunPending,
		StartedAt:        c.now(),
		MaxPDFsPerSource: cfg.MaxPDFsPerSource,
		QualityThreshold: cfg.MinConfidence,
	}
	if err := c.ports.Runs.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("creating run: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	ar := &activeRun{
		id:     run.ID,
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		run:    run,
	}

	c.mu.Lock()
	c.active[run.ID] = ar
	c.mu.Unlock()

	logger.Section("Collection Run")
	logger.Info("Run %s started: %d queries, %d urls, %d workers",
		run.ID, len(run.Queries), len(run.URLs), cfg.Workers)
	return ar, runCtx, nil
}

// finish decides the terminal status, seals the run and deregisters it.
func (c *Collector) finish(runCtx context.Context, ar *activeRun) (*domain.CollectionRun, error) {
	defer func() {
		c.mu.Lock()
		delete(c.active, ar.id)
		c.mu.Unlock()
		ar.cancel()
		close(ar.done)
	}()

	ar.mu.Lock()
	run := ar.run
	next := domain.RunCompleted
	switch err := runCtx.Err(); {
	case errors.Is(err, context.Canceled):
		next = domain.RunCancelled
	case err != nil:
		next = domain.RunFailed
		run.Errors = append(run.Errors, err.Error())
	}
	run.Finalise(ar.confidences)
	err := run.Transition(next, c.now())
	ar.mu.Unlock()
	if err != nil {
		return run, err
	}

	if err := c.ports.Runs.SealRun(context.WithoutCancel(runCtx), run); err != nil {
		return run, fmt.Errorf("sealing run %s: %w", run.ID, err)
	}

	logger.Info("Run %s %s: discovered %d, collected %d, rejected %d, failed %d, success rate %.2f",
		run.ID, run.Status, run.Discovered, run.Collected, run.Rejected, run.Failed, run.SuccessRate)
	return run, nil
}

// ==================== Discovery ====================

// execute feeds discovered PDF URLs to a bounded pool of workers.
func (c *Collector) execute(ctx context.Context, ar *activeRun, req driving.CollectionRequest) {
	candidates := make(chan candidate)

	go func() {
		defer close(candidates)
		c.discover(ctx, ar, req, candidates)
	}()

	var wg sync.WaitGroup
	for range ar.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range candidates {
				if ctx.Err() != nil {
					continue
				}
				c.collect(ctx, ar, cand)
			}
		}()
	}
	wg.Wait()
}

// discover resolves queries and URLs into PDF candidates. A URL is queued at
// most once per run. It stops as soon as ctx is cancelled.
func (c *Collector) discover(ctx context.Context, ar *activeRun, req driving.CollectionRequest, out chan<- candidate) {
	queued := make(map[string]struct{})
	emit := func(u string, method domain.DiscoveryMethod) bool {
		if _, dup := queued[u]; dup {
			return true
		}
		queued[u] = struct{}{}
		select {
		case out <- candidate{url: u, method: method}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if len(req.Queries) > 0 && c.ports.Search == nil {
		logger.Warn("Skipping %d queries: %v", len(req.Queries), domain.ErrSearchUnavailable)
		ar.addError(domain.ErrSearchUnavailable.Error())
	} else {
		for _, q := range req.Queries {
			if ctx.Err() != nil {
				return
			}
			results, err := c.ports.Search.Search(ctx, q, ar.cfg.SearchResults)
			if err != nil {
				logger.Warn("Search %q failed: %v", q, err)
				ar.addError(fmt.Sprintf("search %q: %v", q, err))
				continue
			}
			logger.Info("Search %q returned %d results", q, len(results))
			for _, u := range results {
				if !c.expand(ctx, ar, u, domain.DiscoverySearch, emit) {
					return
				}
			}
		}
	}

	for _, u := range req.URLs {
		if !c.expand(ctx, ar, u, domain.DiscoveryDirect, emit) {
			return
		}
	}
}

// expand emits u when it names a PDF and otherwise crawls its site, emitting
// at most MaxPDFsPerSource links. It returns false once ctx is cancelled.
func (c *Collector) expand(
	ctx context.Context, ar *activeRun, u string, method domain.DiscoveryMethod,
	emit func(string, domain.DiscoveryMethod) bool,
) bool {
	if isPDFURL(u) {
		return emit(u, method)
	}

	links, err := c.ports.Crawler.DiscoverFromSite(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Warn("Crawl of %s failed: %v", u, err)
		ar.addError(fmt.Sprintf("crawl %s: %v", u, err))
		return true
	}

	logger.Debug("Crawl of %s found %d PDFs", u, len(links))
	if len(links) > ar.cfg.MaxPDFsPerSource {
		links = links[:ar.cfg.MaxPDFsPerSource]
	}
	for _, link := range links {
		if !emit(link, domain.DiscoveryCrawl) {
			return false
		}
	}
	return ctx.Err() == nil
}

// ==================== Processing ====================

// collect processes one candidate and records the outcome on the run.
func (c *Collector) collect(ctx context.Context, ar *activeRun, cand candidate) {
	ar.update(func(run *domain.CollectionRun) { run.Discovered++ })

	confidence, err := c.process(ctx, ar, cand)
	switch {
	case err == nil:
		ar.collected(confidence)
	case errors.Is(err, errRejected):
		logger.Debug("Skipped %s: %v", cand.url, err)
		ar.update(func(run *domain.CollectionRun) { run.Rejected++ })
	case ctx.Err() != nil:
		logger.Debug("Abandoned %s: %v", cand.url, err)
	default:
		logger.Warn("Failed to collect %s: %v", cand.url, err)
		ar.update(func(run *domain.CollectionRun) { run.Failed++ })
		ar.addError(fmt.Sprintf("%s: %v", cand.url, err))
	}
}

// process runs the per-document pipeline and returns the stored confidence.
// Work on one hash is serialised so concurrent ingestions of the same bytes
// cannot interleave their upserts.
func (c *Collector) process(ctx context.Context, ar *activeRun, cand candidate) (float64, error) {
	data, err := c.ports.Fetcher.Download(ctx, cand.url)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	if data == nil {
		return 0, fmt.Errorf("%w: not a PDF or already collected", errRejected)
	}
	fetchedAt := c.now()

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	unlock := c.hashes.Lock(hash)
	defer unlock()

	ex := c.ports.Extractor.Extract(ctx, data)
	text := c.ports.Extractor.Clean(ex.Text)
	if n := utf8.RuneCountInString(text); n < ar.cfg.MinTextLength {
		return 0, fmt.Errorf("%w: %d characters of text, need %d", errRejected, n, ar.cfg.MinTextLength)
	}

	started := time.Now()
	analysis := c.ports.Analyser.Analyse(text)
	if !analysis.IsRelevant && analysis.RelevanceScore < ar.cfg.MinConfidence {
		return 0, fmt.Errorf("%w: relevance %.2f below %.2f", errRejected, analysis.RelevanceScore, ar.cfg.MinConfidence)
	}
	sections := slices.Sorted(maps.Keys(c.ports.Extractor.Sections(text)))
	results := []domain.AnalysisResult{contentResult(analysis, ex, sections, time.Since(started))}

	started = time.Now()
	category, categoryConfidence := c.ports.Categoriser.Categorise(text)
	results = append(results, procedureResult(
		category, categoryConfidence,
		c.ports.Categoriser.CategoriseMultiple(text, alternativeCategories),
		c.ports.Categoriser.ExtractDetails(text),
		time.Since(started),
	))

	started = time.Now()
	events := c.ports.Timeline.Parse(text)
	if len(events) > 0 {
		results = append(results, c.timelineResult(events, time.Since(started)))
	}

	doc := &domain.Document{
		Hash:               hash,
		URL:                cand.url,
		Size:               int64(len(data)),
		SourceDomain:       sourceDomain(cand.url),
		FetchedAt:          fetchedAt,
		Text:               text,
		Confidence:         c.ports.Analyser.ConfidenceScore(analysis),
		Procedure:          category,
		Quality:            analysis.Quality,
		TimelineSnippets:   eventDescriptions(events, domain.MaxStoredSnippets),
		MedicationSnippets: analysis.Medications,
		WarningSigns:       analysis.WarningSigns,
		Language:           domain.DefaultLanguage,
		PageCount:          ex.PageCount,
		HasImages:          ex.HasImages,
		HasTables:          ex.HasTables,
	}

	// The file must exist before the row that points at it.
	name, filePath, err := c.ports.Blobs.Put(ctx, filenameFor(cand.url), hash, data)
	if err != nil {
		return 0, fmt.Errorf("storing pdf: %w", err)
	}
	doc.Filename = name
	doc.FilePath = filePath

	link := domain.RunDocument{
		RunID:   ar.id,
		Ordinal: ar.nextOrdinal(),
		Method:  cand.method,
	}
	if err := c.ports.Runs.CommitDocument(ctx, doc, link, results); err != nil {
		return 0, fmt.Errorf("committing document: %w", err)
	}
	c.ports.Fetcher.MarkSeen(cand.url)

	logger.Info("Collected %s: %s, %s quality, confidence %.2f", doc.Filename, doc.Procedure, doc.Quality, doc.Confidence)
	return doc.Confidence, nil
}

func contentResult(a domain.ContentAnalysis, ex domain.Extraction, sections []string, took time.Duration) domain.AnalysisResult {
	return domain.AnalysisResult{
		Type:    domain.AnalysisContent,
		Version: domain.DefaultAnalysisVersion,
		Payload: map[string]any{
			"is_relevant":           a.IsRelevant,
			"relevance_score":       a.RelevanceScore,
			"quality":               string(a.Quality),
			"sections_found":        a.SectionsFound,
			"sections":              sections,
			"procedure_hints":       a.ProcedureHints,
			"keyword_matches":       a.KeywordMatches,
			"stats":                 a.Stats,
			"extraction_method":     ex.Method,
			"extraction_confidence": ex.Confidence,
			"page_count":            ex.PageCount,
		},
		Confidence:     a.RelevanceScore,
		ProcessingTime: took,
	}
}

func procedureResult(
	category domain.ProcedureCategory, confidence float64,
	alternatives []domain.ProcedureMatch, details domain.ProcedureDetails, took time.Duration,
) domain.AnalysisResult {
	ranked := make([]map[string]any, 0, len(alternatives))
	for _, m := range alternatives {
		ranked = append(ranked, map[string]any{
			"category":   string(m.Category),
			"confidence": m.Confidence,
		})
	}

	return domain.AnalysisResult{
		Type:    domain.AnalysisProcedure,
		Version: domain.DefaultAnalysisVersion,
		Payload: map[string]any{
			"category":     string(category),
			"description":  category.Description(),
			"confidence":   confidence,
			"alternatives": ranked,
			"name":         details.Name,
			"body_part":    details.BodyPart,
			"approach":     details.Approach,
			"implants":     details.Implants,
			"complexity":   details.Complexity,
		},
		Confidence:     confidence,
		ProcessingTime: took,
	}
}

func (c *Collector) timelineResult(events []domain.TimelineEvent, took time.Duration) domain.AnalysisResult {
	var sum float64
	for _, e := range events {
		sum += e.Confidence
	}

	return domain.AnalysisResult{
		Type:    domain.AnalysisTimeline,
		Version: domain.DefaultAnalysisVersion,
		Payload: map[string]any{
			"events":      events,
			"event_count": len(events),
			"schedule":    c.ports.Timeline.Schedule(events),
			"milestones":  c.ports.Timeline.Milestones(events),
			"summary":     c.ports.Timeline.Summary(events),
		},
		Confidence:     sum / float64(len(events)),
		ProcessingTime: took,
	}
}

// ==================== Helpers ====================

func eventDescriptions(events []domain.TimelineEvent, n int) []string {
	out := make([]string, 0, min(len(events), n))
	for _, e := range events {
		if len(out) == n {
			break
		}
		out = append(out, e.Description)
	}
	return out
}

// isPDFURL reports whether the URL path ends in .pdf, ignoring case.
func isPDFURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(raw), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func sourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// filenameFor returns the last path segment of the URL. The blob store
// substitutes a hash-derived name when it is empty.
func filenameFor(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
