package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/postop-collector/internal/core/domain"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driven"
	"github.com/custodia-labs/postop-collector/internal/core/ports/driving"
	"github.com/custodia-labs/postop-collector/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is how many results are retained per task.
const historyKeep = 100

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config    domain.SchedulerConfig
	store     driven.SchedulerStore
	collector driving.CollectionService
	search    driving.SearchService

	now  func() time.Time
	tick time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
// The collector and search service are optional; their tasks become no-ops.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	collector driving.CollectionService,
	search driving.SearchService,
) *Scheduler {
	return &Scheduler{
		config:    config,
		store:     store,
		collector: collector,
		search:    search,
		now:       time.Now,
		tick:      time.Minute,
		inflight:  make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks makes the stored tasks match the configuration.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	collection := s.config.GetTaskConfig(domain.TaskIDScheduledCollection)
	if collection.Enabled && len(s.config.Queries) == 0 && len(s.config.URLs) == 0 {
		logger.Warn("scheduler: %s enabled without queries or urls; nothing will be collected",
			domain.TaskIDScheduledCollection)
	}
	if err := s.ensureTask(ctx, domain.TaskIDScheduledCollection, "Scheduled Collection", collection); err != nil {
		return err
	}

	purge := s.config.GetTaskConfig(domain.TaskIDSearchCachePurge)
	return s.ensureTask(ctx, domain.TaskIDSearchCachePurge, "Search Cache Purge", purge)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		if !cfg.Enabled {
			return nil
		}
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  true,
			NextRun:  s.now().Add(cfg.Interval),
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval && cfg.Interval > 0 {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background. A task still running
// from an earlier tick is not started again.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inflight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.inflight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDScheduledCollection:
			result.ItemsProcessed, err = s.runCollection(ctx)
		case domain.TaskIDSearchCachePurge:
			result.ItemsProcessed, err = s.runCachePurge(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// The run context may be cancelled by now; bookkeeping still has to land.
		storeCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
			logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		// Record result for history
		if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
			logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(storeCtx, historyKeep); pruneErr != nil {
			logger.Error("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runCollection runs one collection over the configured queries and URLs
// and reports how many documents it stored.
func (s *Scheduler) runCollection(ctx context.Context) (int, error) {
	req := driving.CollectionRequest{Queries: s.config.Queries, URLs: s.config.URLs}
	if s.collector == nil || req.IsEmpty() {
		return 0, nil
	}

	run, err := s.collector.Run(ctx, req)
	if err != nil {
		return 0, err
	}
	logger.Info("scheduler: run %s %s with %d documents", run.ID, run.Status, run.Collected)
	return run.Collected, nil
}

// runCachePurge deletes expired search cache entries.
func (s *Scheduler) runCachePurge(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, nil
	}
	return s.search.PurgeExpired(ctx)
}
