package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postop-collector/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/core/services"
)

const (
	testHash      = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	testOtherHash = "60303ae22b998861bce3b28f33eec1be758a213c86c93c076dbe9f558c11c752"
)

var testStarted = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeCollection is a scripted driving.CollectionService.
type fakeCollection struct {
	mu         sync.Mutex
	requests   []driving.CollectionRequest
	status     domain.RunStatus
	runErr     error
	active     map[string]bool
	cancelled  []string
	shutdowns  int
	runs       []domain.CollectionRun
	links      []domain.RunDocument
	progress   *driving.RunProgress
	sawContext bool
}

func (f *fakeCollection) Run(ctx context.Context, req driving.CollectionRequest) (*domain.CollectionRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.sawContext = ctx != nil
	if f.runErr != nil {
		return nil, f.runErr
	}
	status := f.status
	if status == "" {
		status = domain.RunCompleted
	}
	completed := testStarted.Add(90 * time.Second)
	return &domain.CollectionRun{
		ID:                "run-1",
		Queries:           req.Queries,
		URLs:              req.URLs,
		Status:            status,
		StartedAt:         testStarted,
		CompletedAt:       &completed,
		Discovered:        4,
		Collected:         2,
		Rejected:          1,
		Failed:            1,
		SuccessRate:       0.5,
		AverageConfidence: 0.8,
		Errors:            []string{"https://a.org/broken.pdf: status 404"},
	}, nil
}

func (f *fakeCollection) Start(context.Context, driving.CollectionRequest) (string, error) {
	return "run-1", nil
}

func (f *fakeCollection) Cancel(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active[runID] {
		return domain.ErrRunNotActive
	}
	f.cancelled = append(f.cancelled, runID)
	return nil
}

func (f *fakeCollection) Status(_ context.Context, runID string) (*driving.RunProgress, error) {
	if f.progress != nil && f.progress.RunID == runID {
		return f.progress, nil
	}
	return &driving.RunProgress{RunID: runID}, nil
}

func (f *fakeCollection) GetRun(_ context.Context, runID string) (*domain.CollectionRun, error) {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			return &f.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCollection) ListRuns(context.Context, int) ([]domain.CollectionRun, error) {
	return f.runs, nil
}

func (f *fakeCollection) RunDocuments(_ context.Context, runID string) ([]domain.RunDocument, error) {
	var out []domain.RunDocument
	for _, l := range f.links {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCollection) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

// fakeScheduler returns when its context is cancelled.
type fakeScheduler struct {
	started bool
	stopped bool
	err     error
}

func (s *fakeScheduler) Start(ctx context.Context) error {
	s.started = true
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeScheduler) Stop() error {
	s.stopped = true
	return nil
}

// testServices holds the fakes and stores behind the installed services.
type testServices struct {
	store      *memory.Store
	config     *memory.ConfigStore
	collection *fakeCollection
	scheduler  *fakeScheduler
}

// setupTestServices installs services backed by in-memory stores seeded with
// two documents and one run. The returned func restores the previous state.
func setupTestServices() (*testServices, func()) {
	store := memory.NewStore()
	store.SetClock(func() time.Time { return testStarted })
	ctx := context.Background()

	_ = store.SaveDocument(ctx, &domain.Document{
		Hash:             testHash,
		URL:              "https://hospital.example.org/leaflets/knee-replacement.pdf",
		Filename:         "knee-replacement.pdf",
		FilePath:         "/data/pdfs/" + testHash + ".pdf",
		Size:             2048,
		SourceDomain:     "hospital.example.org",
		FetchedAt:        testStarted,
		Text:             "After your knee replacement keep the wound dry for 48 hours.",
		Confidence:       0.82,
		Procedure:        domain.ProcedureOrthopedic,
		Quality:          domain.QualityHigh,
		TimelineSnippets: []string{"keep the wound dry for 48 hours"},
		WarningSigns:     []string{"fever above 38C"},
		Language:         domain.DefaultLanguage,
		PageCount:        3,
	})
	_ = store.SaveDocument(ctx, &domain.Document{
		Hash:         testOtherHash,
		URL:          "https://clinic.example.com/cataract.pdf",
		Filename:     "cataract.pdf",
		Size:         1024,
		SourceDomain: "clinic.example.com",
		FetchedAt:    testStarted,
		Text:         "Use your eye drops four times a day after cataract surgery.",
		Confidence:   0.55,
		Procedure:    domain.ProcedureOphthalmic,
		Quality:      domain.QualityMedium,
		Language:     domain.DefaultLanguage,
	})
	_ = store.SaveAnalysis(ctx, &domain.AnalysisResult{
		DocumentHash: testHash,
		Type:         domain.AnalysisProcedure,
		Version:      domain.DefaultAnalysisVersion,
		Payload:      map[string]any{"category": "orthopedic"},
		Confidence:   0.9,
	})

	completed := testStarted.Add(time.Minute)
	collection := &fakeCollection{
		active: map[string]bool{"run-active": true},
		runs: []domain.CollectionRun{{
			ID:          "run-1",
			Queries:     []string{"knee replacement recovery"},
			Status:      domain.RunCompleted,
			StartedAt:   testStarted,
			CompletedAt: &completed,
			Discovered:  2,
			Collected:   2,
			SuccessRate: 1,
		}},
		links: []domain.RunDocument{
			{RunID: "run-1", DocumentHash: testHash, Ordinal: 1, Method: domain.DiscoverySearch},
			{RunID: "run-1", DocumentHash: testOtherHash, Ordinal: 2, Method: domain.DiscoveryCrawl},
		},
	}

	ts := &testServices{
		store:      store,
		config:     memory.NewConfigStore(),
		collection: collection,
		scheduler:  &fakeScheduler{},
	}

	old := Services{
		Collection: collectionService,
		Document:   documentService,
		Search:     searchService,
		Settings:   settingsService,
		Scheduler:  scheduler,
	}
	SetServices(Services{
		Collection: collection,
		Document:   services.NewDocumentService(store, store, store, nil),
		Search:     services.NewCachedSearch(emptyProvider{}, store, time.Hour),
		Settings:   services.NewSettingsService(ts.config),
		Scheduler:  ts.scheduler,
	})

	return ts, func() {
		SetServices(old)
		resetFlags()
	}
}

// emptyProvider finds nothing.
type emptyProvider struct{}

func (emptyProvider) Name() string { return "empty" }

func (emptyProvider) Search(context.Context, string, int) ([]string, error) { return nil, nil }

// resetFlags restores flag variables that persist between executions.
func resetFlags() {
	collectQueries, collectURLs = nil, nil
	collectWorkers, collectMaxPDFs = 0, 0
	docMinConfidence, docMaxConfidence = 0, 0
	docLimit, docOffset = 20, 0
	docProcedures, docQuality = nil, ""
	docShowAnalyses, docShowText = false, false
	runListLimit = 20
	verbose = false
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// newBufferedCommand returns a bare command writing to a buffer.
func newBufferedCommand() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd, buf
}
