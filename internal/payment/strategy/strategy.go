package strategy

import (
	orderdomain "github.com/nilemart/storefront/internal/order/domain"
)

func claims(methods []orderdomain.PaymentMethod, method orderdomain.PaymentMethod) bool {
	for _, claimed := range methods {
		if claimed == method {
			return true
		}
	}
	return false
}
