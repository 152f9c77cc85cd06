package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/internal/event"
	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
)

// TrackingService implements production tracking: record creation, worker
// assignment and the timer state machine.
type TrackingService struct {
	trackings repository.TrackingRepository
	orders    repository.OrderRepository
	workflow  repository.WorkflowRepository
	producer  *event.Producer
	clock     clock.Clock
	logger    *slog.Logger
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(
	trackings repository.TrackingRepository,
	orders repository.OrderRepository,
	workflow repository.WorkflowRepository,
	producer *event.Producer,
	clk clock.Clock,
	logger *slog.Logger,
) *TrackingService {
	return &TrackingService{
		trackings: trackings,
		orders:    orders,
		workflow:  workflow,
		producer:  producer,
		clock:     clk,
		logger:    logger,
	}
}

// CreateTrackingInput holds the parameters for opening a tracking record.
type CreateTrackingInput struct {
	OrderItemID  string
	SubprocessID string
}

// CreateTracking opens a pending tracking record for an order item and a
// workflow subprocess. The first tracking on an order moves the order to
// in_production.
func (s *TrackingService) CreateTracking(ctx context.Context, input CreateTrackingInput) (*domain.ProductionTracking, error) {
	item, err := s.orders.GetItem(ctx, input.OrderItemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.workflow.GetSubprocess(ctx, input.SubprocessID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tracking := &domain.ProductionTracking{
		ID:           uuid.NewString(),
		OrderItemID:  item.ID,
		SubprocessID: input.SubprocessID,
		Status:       domain.TrackingStatusPending,
		Workers:      []domain.Worker{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.trackings.Create(ctx, tracking); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, item.OrderID)
	if err == nil && order.Status == domain.OrderStatusProcessed {
		if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusInProduction); err != nil {
			s.logger.ErrorContext(ctx, "failed to move order to in_production",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "tracking created",
		slog.String("tracking_id", tracking.ID),
		slog.String("order_item_id", item.ID),
		slog.String("subprocess_id", input.SubprocessID),
	)
	return tracking, nil
}

// GetTracking loads one tracking record with its workers.
func (s *TrackingService) GetTracking(ctx context.Context, id string) (*domain.ProductionTracking, error) {
	return s.trackings.GetByID(ctx, id)
}

// ListTrackings returns a page of tracking records matching the filter.
func (s *TrackingService) ListTrackings(ctx context.Context, filter repository.TrackingFilter, params pagination.Params) ([]domain.ProductionTracking, int64, error) {
	return s.trackings.List(ctx, filter, params)
}

// AssignWorkers replaces the worker set on a tracking record and marks the
// assigned workers present for today. Unknown worker IDs are dropped with a
// warning rather than failing the whole assignment.
func (s *TrackingService) AssignWorkers(ctx context.Context, trackingID string, workerIDs []string) ([]domain.Worker, error) {
	date := s.clock.Now().Truncate(24 * time.Hour)

	assigned, dropped, err := s.trackings.ReplaceWorkers(ctx, trackingID, workerIDs, date)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		s.logger.WarnContext(ctx, "dropped unknown worker ids on assignment",
			slog.String("tracking_id", trackingID),
			slog.Any("worker_ids", dropped),
		)
	}

	s.logger.InfoContext(ctx, "workers assigned",
		slog.String("tracking_id", trackingID),
		slog.Int("count", len(assigned)),
	)
	return assigned, nil
}

// HandleTimerEvent applies a timer event (start, pause, resume, finish) to
// a tracking record. The transition and its activity entry commit
// atomically; the elapsed time credited on pause and finish is measured
// against the entry log as it was before this event.
func (s *TrackingService) HandleTimerEvent(ctx context.Context, trackingID, timerEvent, userID string) (*domain.ProductionTracking, error) {
	now := s.clock.Now()
	var credited int64

	updated, err := s.trackings.ApplyTimerEvent(ctx, trackingID,
		func(t *domain.ProductionTracking, last *domain.ActivityEntry, workerCount int) (*domain.ActivityEntry, error) {
			if last != nil && now.Before(last.Timestamp) {
				s.logger.WarnContext(ctx, "timer event timestamp precedes last activity entry, clamping elapsed time",
					slog.String("tracking_id", trackingID),
					slog.Time("now", now),
					slog.Time("last_entry", last.Timestamp),
				)
			}

			var err error
			credited, err = t.ApplyTimer(timerEvent, now, last, workerCount)
			if err != nil {
				return nil, err
			}

			entry := &domain.ActivityEntry{
				ID:         uuid.NewString(),
				TrackingID: t.ID,
				Event:      timerEvent,
				Timestamp:  now,
			}
			if userID != "" {
				entry.UserID = &userID
			}
			return entry, nil
		})
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishTrackingTimer(ctx, updated, timerEvent, credited); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tracking.timer event",
			slog.String("tracking_id", updated.ID),
			slog.String("error", err.Error()),
		)
		// The transition is committed; event delivery is best effort.
	}

	s.logger.InfoContext(ctx, "timer event applied",
		slog.String("tracking_id", updated.ID),
		slog.String("event", timerEvent),
		slog.String("status", updated.Status),
		slog.Int64("credited_seconds", credited),
		slog.Int64("total_seconds", updated.TotalDurationSeconds),
	)
	return updated, nil
}

// ListActivity returns the timer log of a tracking record, newest first.
func (s *TrackingService) ListActivity(ctx context.Context, trackingID string) ([]domain.ActivityEntry, error) {
	if _, err := s.trackings.GetByID(ctx, trackingID); err != nil {
		return nil, err
	}
	return s.trackings.ListActivity(ctx, trackingID)
}

// ListAttendance returns attendance records of a tracking record,
// optionally restricted to one date.
func (s *TrackingService) ListAttendance(ctx context.Context, trackingID string, date *time.Time) ([]domain.AttendanceRecord, error) {
	if _, err := s.trackings.GetByID(ctx, trackingID); err != nil {
		return nil, err
	}
	if date != nil {
		d := date.Truncate(24 * time.Hour)
		date = &d
	}
	return s.trackings.ListAttendance(ctx, trackingID, date)
}
