package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	pkgkafka "github.com/dquiroga/ManufactureGo/pkg/kafka"
)

// Kafka topics for manufacturing domain events.
const (
	TopicOrderCheckedOut = "manufacturing.order.checked_out"
	TopicTrackingTimer   = "manufacturing.tracking.timer"
)

// Aggregate type constants.
const (
	AggregateTypeOrder    = "order"
	AggregateTypeTracking = "tracking"
)

// Source identifier for events originating from this service.
const SourceManufacturing = "manufacturing-service"

// OrderCheckedOutData is the payload for an order.checked_out event.
type OrderCheckedOutData struct {
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	Code    string          `json:"code"`
	Batch   string          `json:"batch"`
	Items   []OrderItemData `json:"items"`
	Total   float64         `json:"total"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// TrackingTimerData is the payload for a tracking.timer event.
type TrackingTimerData struct {
	TrackingID      string `json:"tracking_id"`
	Event           string `json:"event"`
	Status          string `json:"status"`
	CreditedSeconds int64  `json:"credited_seconds"`
	TotalSeconds    int64  `json:"total_seconds"`
}

// Producer publishes manufacturing domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCheckedOut publishes an order.checked_out event with the
// order snapshot.
func (p *Producer) PublishOrderCheckedOut(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	data := OrderCheckedOutData{
		OrderID: order.ID,
		UserID:  order.UserID,
		Code:    order.Code,
		Batch:   order.Batch,
		Items:   items,
		Total:   order.Total(),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCheckedOut, order.ID, AggregateTypeOrder, SourceManufacturing, data)
	if err != nil {
		return fmt.Errorf("create order.checked_out event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCheckedOut, event); err != nil {
		return fmt.Errorf("publish order.checked_out event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.checked_out event",
		slog.String("order_id", order.ID),
		slog.String("code", order.Code),
	)
	return nil
}

// PublishTrackingTimer publishes a tracking.timer event after a timer
// transition is committed.
func (p *Producer) PublishTrackingTimer(ctx context.Context, tracking *domain.ProductionTracking, timerEvent string, creditedSeconds int64) error {
	data := TrackingTimerData{
		TrackingID:      tracking.ID,
		Event:           timerEvent,
		Status:          tracking.Status,
		CreditedSeconds: creditedSeconds,
		TotalSeconds:    tracking.TotalDurationSeconds,
	}

	event, err := pkgkafka.NewEvent(TopicTrackingTimer, tracking.ID, AggregateTypeTracking, SourceManufacturing, data)
	if err != nil {
		return fmt.Errorf("create tracking.timer event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicTrackingTimer, event); err != nil {
		return fmt.Errorf("publish tracking.timer event: %w", err)
	}

	p.logger.DebugContext(ctx, "published tracking.timer event",
		slog.String("tracking_id", tracking.ID),
		slog.String("event", timerEvent),
		slog.String("status", tracking.Status),
	)
	return nil
}
