package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
)

// WorkflowRepository implements repository.WorkflowRepository using
// PostgreSQL.
type WorkflowRepository struct {
	pool database.DBTX
}

// NewWorkflowRepository creates a new PostgreSQL-backed workflow repository.
func NewWorkflowRepository(pool database.DBTX) *WorkflowRepository {
	return &WorkflowRepository{pool: pool}
}

// GetTree loads the full workflow template ordered by sequence at every
// level. Three queries keep the assembly simple; the template is small and
// the result is cached by the service layer.
func (r *WorkflowRepository) GetTree(ctx context.Context) ([]domain.Stage, error) {
	stageRows, err := r.pool.Query(ctx, `
		SELECT id, name, sequence, created_at, updated_at
		FROM workflow_stages
		ORDER BY sequence, name`)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer stageRows.Close()

	stages := make([]domain.Stage, 0)
	stageIndex := make(map[string]int)
	for stageRows.Next() {
		var s domain.Stage
		if err := stageRows.Scan(&s.ID, &s.Name, &s.Sequence, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		s.Processes = []domain.Process{}
		stageIndex[s.ID] = len(stages)
		stages = append(stages, s)
	}
	if err := stageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage rows: %w", err)
	}

	processRows, err := r.pool.Query(ctx, `
		SELECT id, stage_id, name, sequence, created_at, updated_at
		FROM workflow_processes
		ORDER BY sequence, name`)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer processRows.Close()

	processIndex := make(map[string][2]int)
	for processRows.Next() {
		var p domain.Process
		if err := processRows.Scan(&p.ID, &p.StageID, &p.Name, &p.Sequence, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.Subprocesses = []domain.Subprocess{}
		si, ok := stageIndex[p.StageID]
		if !ok {
			continue
		}
		processIndex[p.ID] = [2]int{si, len(stages[si].Processes)}
		stages[si].Processes = append(stages[si].Processes, p)
	}
	if err := processRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate process rows: %w", err)
	}

	subRows, err := r.pool.Query(ctx, `
		SELECT id, process_id, name, sequence, created_at, updated_at
		FROM workflow_subprocesses
		ORDER BY sequence, name`)
	if err != nil {
		return nil, fmt.Errorf("query subprocesses: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var sp domain.Subprocess
		if err := subRows.Scan(&sp.ID, &sp.ProcessID, &sp.Name, &sp.Sequence, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subprocess: %w", err)
		}
		idx, ok := processIndex[sp.ProcessID]
		if !ok {
			continue
		}
		proc := &stages[idx[0]].Processes[idx[1]]
		proc.Subprocesses = append(proc.Subprocesses, sp)
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subprocess rows: %w", err)
	}

	return stages, nil
}

// CreateStage inserts a workflow stage.
func (r *WorkflowRepository) CreateStage(ctx context.Context, s *domain.Stage) error {
	query := `
		INSERT INTO workflow_stages (id, name, sequence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Sequence, s.CreatedAt, s.UpdatedAt); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("stage", "name", s.Name)
		}
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

// GetStage retrieves a stage by ID.
func (r *WorkflowRepository) GetStage(ctx context.Context, id string) (*domain.Stage, error) {
	var s domain.Stage
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, sequence, created_at, updated_at
		FROM workflow_stages
		WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Sequence, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("stage", id)
		}
		return nil, fmt.Errorf("scan stage: %w", err)
	}
	return &s, nil
}

// UpdateStage rewrites a stage's name and sequence.
func (r *WorkflowRepository) UpdateStage(ctx context.Context, s *domain.Stage) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE workflow_stages
		SET name = $1, sequence = $2, updated_at = $3
		WHERE id = $4`, s.Name, s.Sequence, time.Now().UTC(), s.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.AlreadyExists("stage", "name", s.Name)
		}
		return fmt.Errorf("update stage: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stage", s.ID)
	}
	return nil
}

// DeleteStage removes a stage and cascades to its processes and
// subprocesses unless a subprocess has tracking history.
func (r *WorkflowRepository) DeleteStage(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM workflow_stages WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.Conflict("stage contains subprocesses with tracking history and cannot be deleted")
		}
		return fmt.Errorf("delete stage: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stage", id)
	}
	return nil
}

// CreateProcess inserts a workflow process.
func (r *WorkflowRepository) CreateProcess(ctx context.Context, p *domain.Process) error {
	query := `
		INSERT INTO workflow_processes (id, stage_id, name, sequence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.pool.Exec(ctx, query, p.ID, p.StageID, p.Name, p.Sequence, p.CreatedAt, p.UpdatedAt); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("stage %s does not exist", p.StageID))
		}
		return fmt.Errorf("insert process: %w", err)
	}
	return nil
}

// GetProcess retrieves a process by ID.
func (r *WorkflowRepository) GetProcess(ctx context.Context, id string) (*domain.Process, error) {
	var p domain.Process
	err := r.pool.QueryRow(ctx, `
		SELECT id, stage_id, name, sequence, created_at, updated_at
		FROM workflow_processes
		WHERE id = $1`, id).Scan(&p.ID, &p.StageID, &p.Name, &p.Sequence, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("process", id)
		}
		return nil, fmt.Errorf("scan process: %w", err)
	}
	return &p, nil
}

// UpdateProcess rewrites a process's mutable fields.
func (r *WorkflowRepository) UpdateProcess(ctx context.Context, p *domain.Process) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE workflow_processes
		SET stage_id = $1, name = $2, sequence = $3, updated_at = $4
		WHERE id = $5`, p.StageID, p.Name, p.Sequence, time.Now().UTC(), p.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("stage %s does not exist", p.StageID))
		}
		return fmt.Errorf("update process: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("process", p.ID)
	}
	return nil
}

// DeleteProcess removes a process unless one of its subprocesses has
// tracking history.
func (r *WorkflowRepository) DeleteProcess(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM workflow_processes WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.Conflict("process contains subprocesses with tracking history and cannot be deleted")
		}
		return fmt.Errorf("delete process: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("process", id)
	}
	return nil
}

// CreateSubprocess inserts a workflow subprocess.
func (r *WorkflowRepository) CreateSubprocess(ctx context.Context, sp *domain.Subprocess) error {
	query := `
		INSERT INTO workflow_subprocesses (id, process_id, name, sequence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.pool.Exec(ctx, query, sp.ID, sp.ProcessID, sp.Name, sp.Sequence, sp.CreatedAt, sp.UpdatedAt); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("process %s does not exist", sp.ProcessID))
		}
		return fmt.Errorf("insert subprocess: %w", err)
	}
	return nil
}

// GetSubprocess retrieves a subprocess by ID.
func (r *WorkflowRepository) GetSubprocess(ctx context.Context, id string) (*domain.Subprocess, error) {
	var sp domain.Subprocess
	err := r.pool.QueryRow(ctx, `
		SELECT id, process_id, name, sequence, created_at, updated_at
		FROM workflow_subprocesses
		WHERE id = $1`, id).Scan(&sp.ID, &sp.ProcessID, &sp.Name, &sp.Sequence, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("subprocess", id)
		}
		return nil, fmt.Errorf("scan subprocess: %w", err)
	}
	return &sp, nil
}

// UpdateSubprocess rewrites a subprocess's mutable fields.
func (r *WorkflowRepository) UpdateSubprocess(ctx context.Context, sp *domain.Subprocess) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE workflow_subprocesses
		SET process_id = $1, name = $2, sequence = $3, updated_at = $4
		WHERE id = $5`, sp.ProcessID, sp.Name, sp.Sequence, time.Now().UTC(), sp.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput(fmt.Sprintf("process %s does not exist", sp.ProcessID))
		}
		return fmt.Errorf("update subprocess: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("subprocess", sp.ID)
	}
	return nil
}

// DeleteSubprocess removes a subprocess. Tracking records reference
// subprocesses with ON DELETE RESTRICT, so history blocks deletion.
func (r *WorkflowRepository) DeleteSubprocess(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM workflow_subprocesses WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.Conflict("subprocess has tracking history and cannot be deleted")
		}
		return fmt.Errorf("delete subprocess: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("subprocess", id)
	}
	return nil
}
