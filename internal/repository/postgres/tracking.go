package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// TrackingRepository implements repository.TrackingRepository using
// PostgreSQL. Timer events and worker assignment run in transactions with
// the tracking row locked, which serializes concurrent writes per record.
type TrackingRepository struct {
	pool database.DBTX
}

// NewTrackingRepository creates a new PostgreSQL-backed tracking repository.
func NewTrackingRepository(pool database.DBTX) *TrackingRepository {
	return &TrackingRepository{pool: pool}
}

// Create inserts a new tracking record.
func (r *TrackingRepository) Create(ctx context.Context, t *domain.ProductionTracking) error {
	query := `
		INSERT INTO production_trackings (id, order_item_id, subprocess_id, status, started_at, finished_at, total_duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.OrderItemID, t.SubprocessID, t.Status, t.StartedAt, t.FinishedAt, t.TotalDurationSeconds, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.Conflict("tracking already exists for this order item and subprocess")
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.InvalidInput("order item or subprocess does not exist")
		}
		return fmt.Errorf("insert tracking: %w", err)
	}
	return nil
}

const trackingSelect = `
	SELECT
		t.id, t.order_item_id, t.subprocess_id, t.status, t.started_at, t.finished_at,
		t.total_duration_seconds, t.created_at, t.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', w.id,
					'first_name', w.first_name,
					'last_name', w.last_name,
					'document_id', w.document_id,
					'worker_type', w.worker_type,
					'company_id', w.company_id,
					'is_active', w.is_active
				) ORDER BY w.last_name, w.first_name
			) FILTER (WHERE w.id IS NOT NULL),
			'[]'::jsonb
		) AS workers
	FROM production_trackings t
	LEFT JOIN tracking_workers tw ON t.id = tw.tracking_id
	LEFT JOIN workers w ON tw.worker_id = w.id
	%s
	GROUP BY t.id, t.order_item_id, t.subprocess_id, t.status, t.started_at, t.finished_at,
		t.total_duration_seconds, t.created_at, t.updated_at`

// GetByID retrieves a tracking record with its assigned workers.
func (r *TrackingRepository) GetByID(ctx context.Context, id string) (*domain.ProductionTracking, error) {
	query := fmt.Sprintf(trackingSelect, "WHERE t.id = $1")

	var (
		t           domain.ProductionTracking
		workersJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.OrderItemID, &t.SubprocessID, &t.Status, &t.StartedAt, &t.FinishedAt,
		&t.TotalDurationSeconds, &t.CreatedAt, &t.UpdatedAt, &workersJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tracking", id)
		}
		return nil, fmt.Errorf("scan tracking: %w", err)
	}

	t.Workers = []domain.Worker{}
	if len(workersJSON) > 0 && string(workersJSON) != "null" && string(workersJSON) != "[]" {
		if err := json.Unmarshal(workersJSON, &t.Workers); err != nil {
			return nil, fmt.Errorf("unmarshal tracking workers: %w", err)
		}
	}
	return &t, nil
}

// List returns tracking records matching the filter with the total count.
// Workers are not loaded; use GetByID for the full record.
func (r *TrackingRepository) List(ctx context.Context, filter repository.TrackingFilter, params pagination.Params) ([]domain.ProductionTracking, int64, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.OrderItemID != "" {
		conditions = append(conditions, fmt.Sprintf("order_item_id = $%d", argIndex))
		args = append(args, filter.OrderItemID)
		argIndex++
	}
	if filter.SubprocessID != "" {
		conditions = append(conditions, fmt.Sprintf("subprocess_id = $%d", argIndex))
		args = append(args, filter.SubprocessID)
		argIndex++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, order_item_id, subprocess_id, status, started_at, finished_at, total_duration_seconds, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM production_trackings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)

	args = append(args, params.PerPage, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trackings: %w", err)
	}
	defer rows.Close()

	var total int64
	trackings := make([]domain.ProductionTracking, 0)
	for rows.Next() {
		var t domain.ProductionTracking
		if err := rows.Scan(
			&t.ID, &t.OrderItemID, &t.SubprocessID, &t.Status, &t.StartedAt, &t.FinishedAt,
			&t.TotalDurationSeconds, &t.CreatedAt, &t.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan tracking row: %w", err)
		}
		trackings = append(trackings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tracking rows: %w", err)
	}
	return trackings, total, nil
}

// ReplaceWorkers swaps the worker set assigned to a tracking record and
// upserts one attendance record per assigned worker for the given date.
// Unknown worker IDs are dropped and reported, not treated as an error.
func (r *TrackingRepository) ReplaceWorkers(ctx context.Context, trackingID string, workerIDs []string, date time.Time) ([]domain.Worker, []string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var lockedID string
	err = tx.QueryRow(ctx, `SELECT id FROM production_trackings WHERE id = $1 FOR UPDATE`, trackingID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NotFound("tracking", trackingID)
		}
		return nil, nil, fmt.Errorf("lock tracking: %w", err)
	}

	assigned := make([]domain.Worker, 0)
	known := make(map[string]struct{})
	if len(workerIDs) > 0 {
		rows, err := tx.Query(ctx, `
			SELECT id, first_name, last_name, document_id, worker_type, company_id, is_active, created_at, updated_at
			FROM workers
			WHERE id = ANY($1)
			ORDER BY last_name, first_name`, workerIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("query workers: %w", err)
		}
		for rows.Next() {
			var w domain.Worker
			if err := rows.Scan(
				&w.ID, &w.FirstName, &w.LastName, &w.DocumentID, &w.WorkerType, &w.CompanyID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
			); err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("scan worker: %w", err)
			}
			known[w.ID] = struct{}{}
			assigned = append(assigned, w)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("iterate worker rows: %w", err)
		}
	}

	dropped := make([]string, 0)
	for _, id := range workerIDs {
		if _, ok := known[id]; !ok {
			dropped = append(dropped, id)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tracking_workers WHERE tracking_id = $1`, trackingID); err != nil {
		return nil, nil, fmt.Errorf("clear tracking workers: %w", err)
	}

	now := time.Now().UTC()
	for _, w := range assigned {
		if _, err := tx.Exec(ctx, `
			INSERT INTO tracking_workers (tracking_id, worker_id, assigned_at)
			VALUES ($1, $2, $3)`, trackingID, w.ID, now); err != nil {
			return nil, nil, fmt.Errorf("insert tracking worker: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO attendance_records (id, tracking_id, worker_id, date, attended, created_at)
			VALUES ($1, $2, $3, $4, TRUE, $5)
			ON CONFLICT (tracking_id, worker_id, date) DO UPDATE SET attended = TRUE`,
			uuid.NewString(), trackingID, w.ID, date, now); err != nil {
			return nil, nil, fmt.Errorf("upsert attendance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return assigned, dropped, nil
}

// ApplyTimerEvent runs a timer transition transactionally. The tracking row
// is locked, the last activity entry is read before anything is written,
// apply mutates the record, and the record plus the new entry are persisted
// together.
func (r *TrackingRepository) ApplyTimerEvent(ctx context.Context, trackingID string, apply repository.TimerApplyFunc) (*domain.ProductionTracking, error) {
	ctx, end := database.TraceQuery(ctx, "tracking.apply_timer_event", "production_trackings")
	var retErr error
	defer func() { end(retErr) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		retErr = fmt.Errorf("begin transaction: %w", err)
		return nil, retErr
	}
	defer tx.Rollback(ctx)

	var t domain.ProductionTracking
	err = tx.QueryRow(ctx, `
		SELECT id, order_item_id, subprocess_id, status, started_at, finished_at, total_duration_seconds, created_at, updated_at
		FROM production_trackings
		WHERE id = $1
		FOR UPDATE`, trackingID).Scan(
		&t.ID, &t.OrderItemID, &t.SubprocessID, &t.Status, &t.StartedAt, &t.FinishedAt,
		&t.TotalDurationSeconds, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			retErr = apperrors.NotFound("tracking", trackingID)
			return nil, retErr
		}
		retErr = fmt.Errorf("lock tracking: %w", err)
		return nil, retErr
	}

	var workerCount int
	if err = tx.QueryRow(ctx, `SELECT count(*) FROM tracking_workers WHERE tracking_id = $1`, trackingID).Scan(&workerCount); err != nil {
		retErr = fmt.Errorf("count tracking workers: %w", err)
		return nil, retErr
	}

	var last *domain.ActivityEntry
	var entry domain.ActivityEntry
	err = tx.QueryRow(ctx, `
		SELECT id, tracking_id, event, timestamp, user_id
		FROM activity_entries
		WHERE tracking_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, trackingID).Scan(&entry.ID, &entry.TrackingID, &entry.Event, &entry.Timestamp, &entry.UserID)
	switch {
	case err == nil:
		last = &entry
	case errors.Is(err, pgx.ErrNoRows):
		// First event for this record.
	default:
		retErr = fmt.Errorf("query last activity entry: %w", err)
		return nil, retErr
	}

	newEntry, err := apply(&t, last, workerCount)
	if err != nil {
		retErr = err
		return nil, retErr
	}

	t.UpdatedAt = time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE production_trackings
		SET status = $1, started_at = $2, finished_at = $3, total_duration_seconds = $4, updated_at = $5
		WHERE id = $6`,
		t.Status, t.StartedAt, t.FinishedAt, t.TotalDurationSeconds, t.UpdatedAt, t.ID,
	)
	if err != nil {
		retErr = fmt.Errorf("update tracking: %w", err)
		return nil, retErr
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO activity_entries (id, tracking_id, event, timestamp, user_id)
		VALUES ($1, $2, $3, $4, $5)`,
		newEntry.ID, newEntry.TrackingID, newEntry.Event, newEntry.Timestamp, newEntry.UserID,
	)
	if err != nil {
		retErr = fmt.Errorf("insert activity entry: %w", err)
		return nil, retErr
	}

	if err := tx.Commit(ctx); err != nil {
		retErr = fmt.Errorf("commit transaction: %w", err)
		return nil, retErr
	}
	return &t, nil
}

// ListActivity returns the full activity log for a tracking record, newest
// entry first.
func (r *TrackingRepository) ListActivity(ctx context.Context, trackingID string) ([]domain.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tracking_id, event, timestamp, user_id
		FROM activity_entries
		WHERE tracking_id = $1
		ORDER BY timestamp DESC, id DESC`, trackingID)
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var e domain.ActivityEntry
		if err := rows.Scan(&e.ID, &e.TrackingID, &e.Event, &e.Timestamp, &e.UserID); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entry rows: %w", err)
	}
	return entries, nil
}

// ListAttendance returns attendance for a tracking record, optionally
// restricted to one date, with each worker loaded.
func (r *TrackingRepository) ListAttendance(ctx context.Context, trackingID string, date *time.Time) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.tracking_id, a.worker_id, a.date, a.attended, a.created_at,
		       w.id, w.first_name, w.last_name, w.document_id, w.worker_type, w.company_id, w.is_active, w.created_at, w.updated_at
		FROM attendance_records a
		JOIN workers w ON a.worker_id = w.id
		WHERE a.tracking_id = $1`
	args := []any{trackingID}
	if date != nil {
		query += ` AND a.date = $2`
		args = append(args, *date)
	}
	query += ` ORDER BY a.date DESC, w.last_name, w.first_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AttendanceRecord, 0)
	for rows.Next() {
		var (
			a domain.AttendanceRecord
			w domain.Worker
		)
		if err := rows.Scan(
			&a.ID, &a.TrackingID, &a.WorkerID, &a.Date, &a.Attended, &a.CreatedAt,
			&w.ID, &w.FirstName, &w.LastName, &w.DocumentID, &w.WorkerType, &w.CompanyID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		a.Worker = &w
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance record rows: %w", err)
	}
	return records, nil
}
