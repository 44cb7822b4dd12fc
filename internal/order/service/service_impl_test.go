package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/order/repository"
)

func newService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func TestCreateOrder(t *testing.T) {
	svc := newService(t)

	order, err := svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerEmail: "  Buyer@Example.COM ",
		TotalCents:    9900,
		PaymentMethod: domain.MethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.Equal(t, "EGP", order.Currency)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.NotZero(t, order.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateOrderRequest
		want error
	}{
		{"missing email", domain.CreateOrderRequest{TotalCents: 100, PaymentMethod: domain.MethodCard}, domain.ErrInvalidEmail},
		{"zero amount", domain.CreateOrderRequest{CustomerEmail: "a@b.c", PaymentMethod: domain.MethodCard}, domain.ErrInvalidAmount},
		{"negative amount", domain.CreateOrderRequest{CustomerEmail: "a@b.c", TotalCents: -1, PaymentMethod: domain.MethodCard}, domain.ErrInvalidAmount},
		{"unknown method", domain.CreateOrderRequest{CustomerEmail: "a@b.c", TotalCents: 100, PaymentMethod: "bitcoin"}, domain.ErrInvalidMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateOrderRequest{
		CustomerEmail: "a@b.c",
		TotalCents:    500,
		PaymentMethod: domain.MethodInstapay,
	})
	require.NoError(t, err)

	found, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByID(ctx, snowflake.ID(424242))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)
}

func TestListByEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateOrderRequest{
			CustomerEmail: "repeat@example.com",
			TotalCents:    1000,
			PaymentMethod: domain.MethodCashOnDelivery,
		})
		require.NoError(t, err)
	}

	orders, err := svc.List(ctx, domain.ListOrdersRequest{CustomerEmail: "repeat@example.com"})
	require.NoError(t, err)
	assert.Len(t, orders, 3)

	_, err = svc.List(ctx, domain.ListOrdersRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}
