package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateOrderRequest struct {
	CustomerEmail string
	TotalCents    int64
	Currency      string
	PaymentMethod PaymentMethod
}

type ListOrdersRequest struct {
	CustomerEmail string
	Limit         int
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]*Order, error)
}

var (
	ErrNotFound       = errors.New("order_not_found")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidMethod  = errors.New("invalid_payment_method")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidOrderID = errors.New("invalid_order_id")
)
