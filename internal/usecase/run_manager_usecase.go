package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/registry-crawler/internal/entity"
	"go.uber.org/zap"
)

// Runner executes one crawl run. *Crawler satisfies it.
type Runner interface {
	Run(ctx context.Context, cfg RunConfig) (*entity.RunStats, error)
}

// RunManager defines the interface for submitting crawl runs and checking
// on them.
type RunManager interface {
	Submit(ctx context.Context, queries []string, exactMatch bool, maxRequests int) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.RunStatus, error)
	// Wait blocks until every submitted run has finished.
	Wait()
}

type runManagerUseCase struct {
	runner  Runner
	baseCtx context.Context
	logger  *zap.Logger

	mu   sync.RWMutex
	runs map[string]*entity.RunStatus
	wg   sync.WaitGroup
}

// NewRunManager creates a RunManager. Runs are executed in the background
// and inherit baseCtx, so cancelling it stops issuing new tasks in every
// active run.
func NewRunManager(baseCtx context.Context, runner Runner, logger *zap.Logger) RunManager {
	return &runManagerUseCase{
		runner:  runner,
		baseCtx: baseCtx,
		logger:  logger.Named("run_manager"),
		runs:    make(map[string]*entity.RunStatus),
	}
}

// Submit validates the queries and starts a run asynchronously. It returns
// ErrNoQueries without creating a run when nothing usable was supplied.
func (m *runManagerUseCase) Submit(_ context.Context, queries []string, exactMatch bool, maxRequests int) (string, error) {
	if !hasQuery(queries) {
		return "", ErrNoQueries
	}

	id := uuid.NewString()
	status := &entity.RunStatus{
		ID:         id,
		Queries:    queries,
		ExactMatch: exactMatch,
		State:      entity.RunPending,
		StartedAt:  time.Now().UTC(),
	}
	m.mu.Lock()
	m.runs[id] = status
	m.mu.Unlock()

	cfg := RunConfig{ID: id, Queries: queries, ExactMatch: exactMatch, MaxRequests: maxRequests}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(cfg)
	}()
	return id, nil
}

func (m *runManagerUseCase) execute(cfg RunConfig) {
	m.update(cfg.ID, func(s *entity.RunStatus) { s.State = entity.RunRunning })

	stats, err := m.runner.Run(m.baseCtx, cfg)
	finished := time.Now().UTC()

	m.update(cfg.ID, func(s *entity.RunStatus) {
		s.FinishedAt = &finished
		if stats != nil {
			s.Stats = *stats
		}
		if err != nil {
			s.State = entity.RunFailed
			s.FailureReason = err.Error()
			return
		}
		s.State = entity.RunCompleted
	})
	if err != nil && !errors.Is(err, ErrNoQueries) {
		m.logger.Error("crawl run failed", zap.String("run_id", cfg.ID), zap.Error(err))
	}
}

func (m *runManagerUseCase) update(id string, fn func(*entity.RunStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.runs[id]; ok {
		fn(s)
	}
}

// GetStatus returns a snapshot of the run's status.
func (m *runManagerUseCase) GetStatus(_ context.Context, id string) (*entity.RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	snapshot := *s
	snapshot.Queries = append([]string(nil), s.Queries...)
	return &snapshot, nil
}

func (m *runManagerUseCase) Wait() {
	m.wg.Wait()
}

func hasQuery(queries []string) bool {
	for _, q := range queries {
		if normalizeSpace(q) != "" {
			return true
		}
	}
	return false
}
