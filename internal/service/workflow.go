package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
)

const workflowTreeKey = "workflow:tree"

// WorkflowService manages the workflow template. The assembled tree is
// cached in Redis and invalidated on every write; reads fall back to the
// database when Redis is unavailable.
type WorkflowService struct {
	repo     repository.WorkflowRepository
	cache    *redis.Client
	cacheTTL time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(repo repository.WorkflowRepository, cache *redis.Client, cacheTTL time.Duration, clk clock.Clock, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		clock:    clk,
		logger:   logger,
	}
}

// GetTree returns the full workflow template ordered by sequence.
func (s *WorkflowService) GetTree(ctx context.Context) ([]domain.Stage, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, workflowTreeKey).Bytes()
		switch {
		case err == nil:
			var stages []domain.Stage
			if err := json.Unmarshal(data, &stages); err == nil {
				return stages, nil
			}
			s.logger.WarnContext(ctx, "corrupt workflow tree cache entry, rebuilding")
		case !errors.Is(err, redis.Nil):
			s.logger.WarnContext(ctx, "workflow tree cache read failed",
				slog.String("error", err.Error()))
		}
	}

	stages, err := s.repo.GetTree(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(stages); err == nil {
			if err := s.cache.Set(ctx, workflowTreeKey, data, s.cacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "workflow tree cache write failed",
					slog.String("error", err.Error()))
			}
		}
	}
	return stages, nil
}

func (s *WorkflowService) invalidateTree(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, workflowTreeKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "workflow tree cache invalidation failed",
			slog.String("error", err.Error()))
	}
}

// StageInput holds the mutable fields of a stage.
type StageInput struct {
	Name     string
	Sequence int
}

// CreateStage adds a stage to the template.
func (s *WorkflowService) CreateStage(ctx context.Context, input StageInput) (*domain.Stage, error) {
	now := s.clock.Now()
	stage := &domain.Stage{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Sequence:  input.Sequence,
		Processes: []domain.Process{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateStage(ctx, stage); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return stage, nil
}

// UpdateStage rewrites a stage's name and sequence.
func (s *WorkflowService) UpdateStage(ctx context.Context, id string, input StageInput) (*domain.Stage, error) {
	stage, err := s.repo.GetStage(ctx, id)
	if err != nil {
		return nil, err
	}
	stage.Name = input.Name
	stage.Sequence = input.Sequence
	if err := s.repo.UpdateStage(ctx, stage); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return stage, nil
}

// DeleteStage removes a stage and everything under it, unless tracking
// history protects a contained subprocess.
func (s *WorkflowService) DeleteStage(ctx context.Context, id string) error {
	if err := s.repo.DeleteStage(ctx, id); err != nil {
		return err
	}
	s.invalidateTree(ctx)
	return nil
}

// ProcessInput holds the mutable fields of a process.
type ProcessInput struct {
	StageID  string
	Name     string
	Sequence int
}

// CreateProcess adds a process under a stage.
func (s *WorkflowService) CreateProcess(ctx context.Context, input ProcessInput) (*domain.Process, error) {
	now := s.clock.Now()
	process := &domain.Process{
		ID:           uuid.NewString(),
		StageID:      input.StageID,
		Name:         input.Name,
		Sequence:     input.Sequence,
		Subprocesses: []domain.Subprocess{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateProcess(ctx, process); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return process, nil
}

// UpdateProcess rewrites a process's mutable fields.
func (s *WorkflowService) UpdateProcess(ctx context.Context, id string, input ProcessInput) (*domain.Process, error) {
	process, err := s.repo.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	process.StageID = input.StageID
	process.Name = input.Name
	process.Sequence = input.Sequence
	if err := s.repo.UpdateProcess(ctx, process); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return process, nil
}

// DeleteProcess removes a process and its subprocesses.
func (s *WorkflowService) DeleteProcess(ctx context.Context, id string) error {
	if err := s.repo.DeleteProcess(ctx, id); err != nil {
		return err
	}
	s.invalidateTree(ctx)
	return nil
}

// SubprocessInput holds the mutable fields of a subprocess.
type SubprocessInput struct {
	ProcessID string
	Name      string
	Sequence  int
}

// CreateSubprocess adds a subprocess under a process.
func (s *WorkflowService) CreateSubprocess(ctx context.Context, input SubprocessInput) (*domain.Subprocess, error) {
	now := s.clock.Now()
	sub := &domain.Subprocess{
		ID:        uuid.NewString(),
		ProcessID: input.ProcessID,
		Name:      input.Name,
		Sequence:  input.Sequence,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSubprocess(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return sub, nil
}

// UpdateSubprocess rewrites a subprocess's mutable fields.
func (s *WorkflowService) UpdateSubprocess(ctx context.Context, id string, input SubprocessInput) (*domain.Subprocess, error) {
	sub, err := s.repo.GetSubprocess(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.ProcessID = input.ProcessID
	sub.Name = input.Name
	sub.Sequence = input.Sequence
	if err := s.repo.UpdateSubprocess(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return sub, nil
}

// DeleteSubprocess removes a subprocess with no tracking history.
func (s *WorkflowService) DeleteSubprocess(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubprocess(ctx, id); err != nil {
		return err
	}
	s.invalidateTree(ctx)
	return nil
}

// GetSubprocess loads one subprocess.
func (s *WorkflowService) GetSubprocess(ctx context.Context, id string) (*domain.Subprocess, error) {
	return s.repo.GetSubprocess(ctx, id)
}
