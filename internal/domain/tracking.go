package domain

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
)

// Production tracking statuses.
const (
	TrackingStatusPending    = "pending"
	TrackingStatusInProgress = "in_progress"
	TrackingStatusPaused     = "paused"
	TrackingStatusFinished   = "finished"
)

// Timer events accepted by a production tracking record.
const (
	TimerEventStart  = "start"
	TimerEventPause  = "pause"
	TimerEventResume = "resume"
	TimerEventFinish = "finish"
)

// IsValidTimerEvent reports whether e is a known timer event.
func IsValidTimerEvent(e string) bool {
	switch e {
	case TimerEventStart, TimerEventPause, TimerEventResume, TimerEventFinish:
		return true
	}
	return false
}

// ProductionTracking records the execution of one workflow subprocess for
// one order item. TotalDurationSeconds accumulates only time spent in the
// in_progress status; paused intervals are not counted.
type ProductionTracking struct {
	ID                   string     `json:"id"`
	OrderItemID          string     `json:"order_item_id"`
	SubprocessID         string     `json:"subprocess_id"`
	Status               string     `json:"status"`
	Workers              []Worker   `json:"workers,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	FinishedAt           *time.Time `json:"finished_at,omitempty"`
	TotalDurationSeconds int64      `json:"total_duration_seconds"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ActivityEntry is one append-only timer log line for a tracking record.
// UserID is the account that sent the event; it survives account deletion
// as nil.
type ActivityEntry struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"tracking_id"`
	Event      string    `json:"event"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     *string   `json:"user_id,omitempty"`
}

// AttendanceRecord marks a worker present on a tracking record for one
// calendar date. At most one record exists per tracking, worker and date.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	TrackingID string    `json:"tracking_id"`
	WorkerID   string    `json:"worker_id"`
	Worker     *Worker   `json:"worker,omitempty"`
	Date       time.Time `json:"date"`
	Attended   bool      `json:"attended"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplyTimer validates a timer event against the current status and
// mutates the tracking record accordingly. The elapsed time credited on
// pause and finish is measured from the previous activity entry, which
// must therefore be read before the new entry for this event is written.
//
// It returns the number of seconds credited to TotalDurationSeconds by
// this event (zero for start and resume).
func (t *ProductionTracking) ApplyTimer(event string, now time.Time, last *ActivityEntry, workerCount int) (int64, error) {
	if !IsValidTimerEvent(event) {
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown timer event %q", event))
	}
	if workerCount == 0 {
		return 0, apperrors.PreconditionFailed("cannot operate the timer: no workers assigned to this tracking")
	}

	switch event {
	case TimerEventStart:
		if t.Status != TrackingStatusPending {
			return 0, apperrors.InvalidState(t.Status, TrackingStatusPending)
		}
		t.Status = TrackingStatusInProgress
		started := now
		t.StartedAt = &started
		return 0, nil

	case TimerEventPause:
		if t.Status != TrackingStatusInProgress {
			return 0, apperrors.InvalidState(t.Status, TrackingStatusInProgress)
		}
		credited, err := elapsedSince(now, last)
		if err != nil {
			return 0, err
		}
		t.TotalDurationSeconds += credited
		t.Status = TrackingStatusPaused
		return credited, nil

	case TimerEventResume:
		if t.Status != TrackingStatusPaused {
			return 0, apperrors.InvalidState(t.Status, TrackingStatusPaused)
		}
		t.Status = TrackingStatusInProgress
		return 0, nil

	case TimerEventFinish:
		if t.Status != TrackingStatusInProgress && t.Status != TrackingStatusPaused {
			return 0, apperrors.InvalidState(t.Status, TrackingStatusInProgress+" or "+TrackingStatusPaused)
		}
		var credited int64
		if t.Status == TrackingStatusInProgress {
			var err error
			credited, err = elapsedSince(now, last)
			if err != nil {
				return 0, err
			}
			t.TotalDurationSeconds += credited
		}
		t.Status = TrackingStatusFinished
		finished := now
		t.FinishedAt = &finished
		return credited, nil
	}

	return 0, apperrors.InvalidInput(fmt.Sprintf("unknown timer event %q", event))
}

// elapsedSince returns whole seconds between the previous activity entry
// and now, clamped at zero. A running tracking record without any activity
// entry is an integrity violation, not a caller mistake.
func elapsedSince(now time.Time, last *ActivityEntry) (int64, error) {
	if last == nil {
		return 0, apperrors.Internal(errors.New("tracking is running but has no activity log"))
	}
	secs := int64(now.Sub(last.Timestamp).Seconds())
	if secs < 0 {
		return 0, nil
	}
	return secs, nil
}
