package notification

import (
	"context"
	"fmt"

	"github.com/nilemart/storefront/internal/notification/email"
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"go.uber.org/zap"
)

// Notifier delivers best-effort admin notifications about payment state
// changes. Callers invoke it only after a transition has been durably
// committed; delivery failure is logged and never propagated.
type Notifier interface {
	PaymentStatusChanged(ctx context.Context, order *orderdomain.Order)
	ProofUploaded(ctx context.Context, order *orderdomain.Order)
}

type emailNotifier struct {
	provider   email.Provider
	log        *zap.Logger
	adminEmail string
}

func NewNotifier(provider email.Provider, log *zap.Logger, adminEmail string) Notifier {
	return &emailNotifier{
		provider:   provider,
		log:        log.Named("notification"),
		adminEmail: adminEmail,
	}
}

func (n *emailNotifier) PaymentStatusChanged(ctx context.Context, order *orderdomain.Order) {
	if order == nil || n.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("Order %s payment %s", order.ID.String(), order.PaymentStatus)
	body := fmt.Sprintf(
		"<p>Order <b>%s</b> (%s) moved to <b>%s</b> via %s.</p>",
		order.ID.String(), order.CustomerEmail, order.PaymentStatus, order.PaymentMethod,
	)
	if err := n.provider.Send(ctx, []string{n.adminEmail}, subject, body); err != nil {
		n.log.Warn("payment notification failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (n *emailNotifier) ProofUploaded(ctx context.Context, order *orderdomain.Order) {
	if order == nil || n.adminEmail == "" {
		return
	}
	subject := fmt.Sprintf("Payment proof uploaded for order %s", order.ID.String())
	body := fmt.Sprintf(
		"<p>Order <b>%s</b> (%s) is awaiting manual payment review.</p>",
		order.ID.String(), order.CustomerEmail,
	)
	if err := n.provider.Send(ctx, []string{n.adminEmail}, subject, body); err != nil {
		n.log.Warn("proof notification failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
