package strategy

import (
	"fmt"
	"sort"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	"github.com/nilemart/storefront/internal/payment/domain"
)

// Router resolves the strategy for an order's payment method. Method
// claims must be disjoint; NewRouter rejects a double claim at startup
// rather than letting routing depend on registration order.
type Router struct {
	byMethod map[orderdomain.PaymentMethod]domain.Strategy
}

func NewRouter(strategies ...domain.Strategy) (*Router, error) {
	byMethod := make(map[orderdomain.PaymentMethod]domain.Strategy, len(strategies))
	for _, s := range strategies {
		for _, m := range s.Methods() {
			if _, exists := byMethod[m]; exists {
				return nil, fmt.Errorf("payment method %q claimed twice", m)
			}
			byMethod[m] = s
		}
	}
	return &Router{byMethod: byMethod}, nil
}

func (r *Router) Route(order *orderdomain.Order) (domain.Strategy, error) {
	if order == nil {
		return nil, domain.ErrMethodMismatch
	}
	return r.ForMethod(order.PaymentMethod)
}

func (r *Router) ForMethod(method orderdomain.PaymentMethod) (domain.Strategy, error) {
	s, ok := r.byMethod[method]
	if !ok {
		return nil, domain.ErrMethodMismatch
	}
	return s, nil
}

// Methods lists every claimed payment method in stable order.
func (r *Router) Methods() []orderdomain.PaymentMethod {
	methods := make([]orderdomain.PaymentMethod, 0, len(r.byMethod))
	for m := range r.byMethod {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
