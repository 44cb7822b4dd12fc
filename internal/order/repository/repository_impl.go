package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nilemart/storefront/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, customer_email, total_cents, currency, payment_method, payment_status, payment_details, payment_proof, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.CustomerEmail,
		order.TotalCents,
		order.Currency,
		order.PaymentMethod,
		order.PaymentStatus,
		order.PaymentDetails,
		order.PaymentProof,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	// sqlite (tests) has no FOR UPDATE; single-writer semantics cover it there.
	lock := "FOR UPDATE"
	if db.Dialector.Name() == "sqlite" {
		lock = ""
	}
	return r.find(ctx, db, id, lock)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, lock string) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT id, customer_email, total_cents, currency, payment_method, payment_status, payment_details, payment_proof, created_at, updated_at
		 FROM orders WHERE id = ?`
	if lock != "" {
		query += " " + lock
	}
	err := db.WithContext(ctx).Raw(query, id).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET payment_status = ?, payment_details = ?, payment_proof = ?, updated_at = ?
		 WHERE id = ?`,
		order.PaymentStatus,
		order.PaymentDetails,
		order.PaymentProof,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var orders []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_email, total_cents, currency, payment_method, payment_status, payment_details, payment_proof, created_at, updated_at
		 FROM orders WHERE customer_email = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		strings.ToLower(strings.TrimSpace(email)),
		limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
