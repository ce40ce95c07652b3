package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
)

func newDoc(hash string, procedure domain.ProcedureCategory, confidence float64) *domain.Document {
	return &domain.Document{
		Hash:       hash,
		URL:        "https://example.org/" + hash + ".pdf",
		Filename:   hash + ".pdf",
		Size:       1024,
		Text:       "Keep the incision dry after knee surgery",
		Confidence: confidence,
		Procedure:  procedure,
		Quality:    domain.QualityMedium,
	}
}

func newRun(t *testing.T, s *Store) *domain.CollectionRun {
	t.Helper()
	run := &domain.CollectionRun{Queries: []string{"knee"}}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	doc := newDoc("h1", "", 0.7)
	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProcedureUnknown, got.Procedure)
	assert.Equal(t, domain.DefaultLanguage, got.Language)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveDocument_Invalid(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.SaveDocument(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SaveDocument(ctx, newDoc("", "", 0.5)), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SaveDocument(ctx, newDoc("h", "", 1.5)), domain.ErrInvalidInput)
}

func TestStore_UpsertKeepsCreatedAt(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return first })

	require.NoError(t, s.SaveDocument(ctx, newDoc("h1", domain.ProcedureCardiac, 0.4)))

	later := first.Add(time.Hour)
	s.SetClock(func() time.Time { return later })
	require.NoError(t, s.SaveDocument(ctx, newDoc("h1", domain.ProcedureOrthopedic, 0.9)))

	got, err := s.GetDocument(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProcedureOrthopedic, got.Procedure)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, first, got.CreatedAt)
	assert.Equal(t, later, got.UpdatedAt)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	doc := newDoc("h1", "", 0.5)
	doc.WarningSigns = []string{"fever"}
	require.NoError(t, s.SaveDocument(ctx, doc))
	doc.WarningSigns[0] = "changed"

	got, err := s.GetDocument(ctx, "h1")
	require.NoError(t, err)
	got.WarningSigns[0] = "also changed"

	again, err := s.GetDocument(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fever"}, again.WarningSigns)
}

func TestStore_SearchDocuments(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, newDoc("a", domain.ProcedureOrthopedic, 0.9)))
	require.NoError(t, s.SaveDocument(ctx, newDoc("b", domain.ProcedureOrthopedic, 0.6)))
	require.NoError(t, s.SaveDocument(ctx, newDoc("c", domain.ProcedureCardiac, 0.8)))
	other := newDoc("d", domain.ProcedureDental, 0.9)
	other.Text = "Rinse gently after extraction"
	other.Quality = domain.QualityHigh
	require.NoError(t, s.SaveDocument(ctx, other))

	tests := []struct {
		name     string
		query    domain.DocumentQuery
		expected []string
	}{
		{"all ordered by confidence", domain.DocumentQuery{}, []string{"a", "d", "c", "b"}},
		{"text is case-insensitive", domain.DocumentQuery{Text: "RINSE"}, []string{"d"}},
		{"procedures", domain.DocumentQuery{
			Procedures: []domain.ProcedureCategory{domain.ProcedureCardiac, domain.ProcedureDental},
		}, []string{"d", "c"}},
		{"quality", domain.DocumentQuery{Quality: domain.QualityHigh}, []string{"d"}},
		{"confidence range", domain.DocumentQuery{MinConfidence: 0.7, MaxConfidence: 0.85}, []string{"c"}},
		{"limit and offset", domain.DocumentQuery{Limit: 2, Offset: 1}, []string{"d", "c"}},
		{"offset past end", domain.DocumentQuery{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.SearchDocuments(ctx, tt.query)
			require.NoError(t, err)

			var hashes []string
			for _, d := range docs {
				hashes = append(hashes, d.Hash)
			}
			assert.Equal(t, tt.expected, hashes)
		})
	}

	byProcedure, err := s.ListByProcedure(ctx, domain.ProcedureOrthopedic, 0.7, 10)
	require.NoError(t, err)
	require.Len(t, byProcedure, 1)
	assert.Equal(t, "a", byProcedure[0].Hash)
}

func TestStore_KnownURLs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, newDoc("b", "", 0.5)))
	require.NoError(t, s.SaveDocument(ctx, newDoc("a", "", 0.5)))

	urls, err := s.KnownURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/a.pdf", "https://example.org/b.pdf"}, urls)
}

func TestStore_CommitDocument(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	run := newRun(t, s)

	results := []domain.AnalysisResult{
		{Type: domain.AnalysisProcedure, Confidence: 0.6, Payload: map[string]any{"category": "orthopedic"}},
		{Type: domain.AnalysisTimeline, Confidence: 0.7},
	}
	link := domain.RunDocument{RunID: run.ID, Ordinal: 1, Method: domain.DiscoveryDirect}
	require.NoError(t, s.CommitDocument(ctx, newDoc("h1", domain.ProcedureOrthopedic, 0.7), link, results))

	links, err := s.RunDocuments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "h1", links[0].DocumentHash)

	analyses, err := s.ListAnalyses(ctx, "h1", "")
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, run.ID, analyses[0].RunID)
	assert.Equal(t, domain.DefaultAnalysisVersion, analyses[0].Version)

	procedure, err := s.ListAnalyses(ctx, "h1", domain.AnalysisProcedure)
	require.NoError(t, err)
	require.Len(t, procedure, 1)
	assert.Equal(t, "orthopedic", procedure[0].Payload["category"])
}

func TestStore_CommitDocument_KeepsFirstOrdinal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	run := newRun(t, s)

	require.NoError(t, s.CommitDocument(ctx, newDoc("h1", "", 0.5),
		domain.RunDocument{RunID: run.ID, Ordinal: 1, Method: domain.DiscoverySearch}, nil))
	require.NoError(t, s.CommitDocument(ctx, newDoc("h1", "", 0.5),
		domain.RunDocument{RunID: run.ID, Ordinal: 5, Method: domain.DiscoveryCrawl}, nil))

	links, err := s.RunDocuments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 1, links[0].Ordinal)
	assert.Equal(t, domain.DiscoverySearch, links[0].Method)
}

func TestStore_CommitDocument_NothingWrittenOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	run := newRun(t, s)

	err := s.CommitDocument(ctx, newDoc("h1", "", 0.5),
		domain.RunDocument{RunID: "unknown", Ordinal: 1}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.CommitDocument(ctx, newDoc("h1", "", 0.5),
		domain.RunDocument{RunID: run.ID, Ordinal: 1}, []domain.AnalysisResult{{}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.GetDocument(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteDocumentCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	run := newRun(t, s)

	require.NoError(t, s.CommitDocument(ctx, newDoc("h1", "", 0.5),
		domain.RunDocument{RunID: run.ID, Ordinal: 1},
		[]domain.AnalysisResult{{Type: domain.AnalysisContent}}))

	require.NoError(t, s.DeleteDocument(ctx, "h1"))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "h1"), domain.ErrNotFound)

	links, err := s.RunDocuments(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	analyses, err := s.ListAnalyses(ctx, "h1", "")
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestStore_SaveAnalysis_RequiresDocument(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.SaveAnalysis(ctx, &domain.AnalysisResult{DocumentHash: "missing", Type: domain.AnalysisContent})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveDocument(ctx, newDoc("h1", "", 0.5)))
	result := &domain.AnalysisResult{DocumentHash: "h1", Type: domain.AnalysisContent}
	require.NoError(t, s.SaveAnalysis(ctx, result))
	assert.Positive(t, result.ID)
}

func TestStore_Runs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	older := &domain.CollectionRun{StartedAt: start}
	newer := &domain.CollectionRun{StartedAt: start.Add(time.Hour)}
	require.NoError(t, s.CreateRun(ctx, older))
	require.NoError(t, s.CreateRun(ctx, newer))
	assert.NotEqual(t, older.ID, newer.ID)
	assert.Equal(t, domain.RunRunning, older.Status)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)

	older.Status = domain.RunCompleted
	older.Collected = 3
	completed := start.Add(-time.Minute)
	older.CompletedAt = &completed
	require.NoError(t, s.SealRun(ctx, older))

	got, err := s.GetRun(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 3, got.Collected)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, start, *got.CompletedAt)

	older.Status = domain.RunFailed
	assert.ErrorIs(t, s.SealRun(ctx, older), domain.ErrInvalidTransition)

	newer.Status = domain.RunRunning
	assert.ErrorIs(t, s.SealRun(ctx, newer), domain.ErrInvalidInput)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SearchCache(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.SetCached(ctx, "knee", "google", []string{"u1"}, time.Hour))
	require.NoError(t, s.SetCached(ctx, "hip", "google", []string{"u2"}, 0))

	entry, err := s.GetCached(ctx, "knee", "google")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, entry.Results)

	_, err = s.GetCached(ctx, "hip", "google")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	now = now.Add(time.Hour)
	_, err = s.GetCached(ctx, "knee", "google")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	purged, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
}

func TestStore_Statistics(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	empty, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDocuments)
	assert.Zero(t, empty.AverageConfidence)

	require.NoError(t, s.SaveDocument(ctx, newDoc("a", domain.ProcedureCardiac, 0.4)))
	require.NoError(t, s.SaveDocument(ctx, newDoc("b", domain.ProcedureCardiac, 0.8)))
	newRun(t, s)
	require.NoError(t, s.SetCached(ctx, "q", "google", nil, time.Hour))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalRuns)
	assert.InDelta(t, 0.6, stats.AverageConfidence, 1e-9)
	assert.Equal(t, int64(2048), stats.TotalBytes)
	assert.Equal(t, 2, stats.ByProcedure[domain.ProcedureCardiac])
	assert.Equal(t, 2, stats.ByQuality[domain.QualityMedium])
	assert.Equal(t, 1, stats.CachedQueries)
}

func TestStore_Scheduler(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	task, err := s.GetTask(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, task)

	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: "b", Interval: time.Hour}))
	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: "a", Interval: time.Minute}))

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{
			TaskID:    "a",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{TaskID: "b", StartedAt: base}))

	history, err := s.GetTaskHistory(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, base.Add(4*time.Minute), history[0].StartedAt)

	require.NoError(t, s.PruneHistory(ctx, 3))
	history, err = s.GetTaskHistory(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	require.NoError(t, s.DeleteTask(ctx, "b"))
	history, err = s.GetTaskHistory(ctx, "b", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_ConcurrentCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	run := newRun(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(ordinal int) {
			defer wg.Done()
			_ = s.CommitDocument(ctx, newDoc("same", "", 0.5),
				domain.RunDocument{RunID: run.ID, Ordinal: ordinal}, nil)
		}(i + 1)
	}
	wg.Wait()

	links, err := s.RunDocuments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}
