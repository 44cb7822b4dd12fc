package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
	"github.com/nilemart/storefront/internal/payment/strategy"
)

// HandlePaymentReturn terminates the synchronous browser redirect. The
// gateway's signature over the query parameters is re-checked server-side;
// the customer's browser is never trusted with the outcome. The session
// token issued at initiation is consumed here, so a replayed return URL
// dies on its second use.
func (s *Server) HandlePaymentReturn(c *gin.Context) {
	gateway := strings.ToLower(strings.TrimSpace(c.Param("gateway")))
	if !s.registry.GatewayExists(gateway) {
		AbortWithError(c, paymentdomain.ErrUnsupportedGateway)
		return
	}

	strat, err := s.onlineStrategy(gateway)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	adapter, err := strat.Adapter()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	validation := adapter.ValidateRedirect(c.Request.Context(), c.Request.URL.Query())
	if !validation.Valid {
		s.log.Warn("redirect validation failed",
			zap.String("gateway", gateway),
			zap.String("reason", validation.ErrorMessage),
		)
		AbortWithError(c, paymentdomain.ErrInvalidSignature)
		return
	}

	orderID, err := paymentdomain.ParseMerchantReference(s.cfg.AppName, validation.MerchantReference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The token was minted for exactly one order; a signed-but-foreign
	// reference smuggled into a stolen session is rejected here.
	token := strings.TrimSpace(c.Query("session"))
	if token != "" {
		tokenOrderID, err := s.tokens.Consume(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if tokenOrderID != orderID {
			AbortWithError(c, paymentdomain.ErrUnresolvedOrder)
			return
		}
	}

	details := map[string]any{
		"gateway":        gateway,
		"transaction_id": validation.TransactionID,
		"source":         "redirect",
	}

	var result *gin.H
	switch validation.Status {
	case paymentdomain.WebhookStatusSuccess:
		order, err := strat.ProcessSuccess(c.Request.Context(), orderID, details)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		result = &gin.H{"status": "success", "order": order}
	default:
		order, err := strat.ProcessFailure(c.Request.Context(), orderID, details)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		result = &gin.H{"status": "failed", "order": order}
	}

	c.JSON(http.StatusOK, *result)
}

func (s *Server) onlineStrategy(gateway string) (*strategy.OnlineStrategy, error) {
	for _, m := range s.router.Methods() {
		strat, err := s.router.ForMethod(m)
		if err != nil {
			continue
		}
		if online, ok := strat.(*strategy.OnlineStrategy); ok && online.Gateway() == gateway {
			return online, nil
		}
	}
	return nil, paymentdomain.ErrUnsupportedGateway
}
