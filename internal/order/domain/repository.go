package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// FindByIDForUpdate reads the order under a row lock. Callers must run
	// it inside a transaction so the read-check-write sequence of a payment
	// transition cannot interleave with a concurrent one.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	UpdatePayment(ctx context.Context, db *gorm.DB, order *Order) error
	ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]*Order, error)
}
