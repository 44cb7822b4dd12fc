package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.EventRepository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, gdb *gorm.DB, event *domain.EventRecord) (bool, error) {
	err := gdb.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, gateway, provider_event_id, event_type, order_id, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Gateway,
		event.ProviderEventID,
		event.EventType,
		event.OrderID,
		event.Payload,
		event.ReceivedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindEvent(ctx context.Context, gdb *gorm.DB, gateway, providerEventID string) (*domain.EventRecord, error) {
	var event domain.EventRecord
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, gateway, provider_event_id, event_type, order_id, payload, received_at, processed_at
		 FROM payment_events
		 WHERE gateway = ? AND provider_event_id = ?`,
		gateway,
		providerEventID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) MarkProcessed(ctx context.Context, gdb *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return gdb.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		processedAt,
		id,
	).Error
}
