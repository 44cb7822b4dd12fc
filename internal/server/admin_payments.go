package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

type reviewDecisionRequest struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

// ConfirmPayment settles an order after a reviewer accepted its proof.
// Routed through the order's strategy so a card order cannot be confirmed
// by the manual-review path.
func (s *Server) ConfirmPayment(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reviewDecisionRequest
	_ = c.ShouldBindJSON(&req)

	order, err := s.orderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	strat, err := s.router.Route(order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	details := map[string]any{"confirmed_by": "admin"}
	if note := strings.TrimSpace(req.Note); note != "" {
		details["review_note"] = note
	}

	updated, err := strat.ProcessSuccess(c.Request.Context(), id, details)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": updated})
}

// RejectPayment sends a reviewed order back through the strategy's failure
// path. For manual transfers that means Pending again with re-upload allowed.
func (s *Server) RejectPayment(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reviewDecisionRequest
	_ = c.ShouldBindJSON(&req)

	order, err := s.orderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	strat, err := s.router.Route(order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	details := map[string]any{"rejected_by": "admin"}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		details["reason"] = reason
	}

	updated, err := strat.ProcessFailure(c.Request.Context(), id, details)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": updated})
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Reason      string `json:"reason"`
}

func (s *Server) RefundPayment(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.refundSvc.Refund(c.Request.Context(), paymentdomain.RefundRequest{
		OrderID:     id,
		AmountCents: req.AmountCents,
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadGateway, gin.H{"refund": result})
		return
	}

	c.JSON(http.StatusOK, gin.H{"refund": result})
}
