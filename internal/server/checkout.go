package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

// InitiatePayment starts the payment flow for an order with whatever
// method it was created with. Online methods come back with the hosted
// checkout parameters; synchronous ones with their next action.
func (s *Server) InitiatePayment(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

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

	result, err := strat.Execute(c.Request.Context(), order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": result})
}

type uploadProofRequest struct {
	ProofReference string `json:"proof_reference"`
	SenderName     string `json:"sender_name"`
	TransferredAt  string `json:"transferred_at"`
}

// UploadPaymentProof attaches a transfer proof to a manual-review order
// and queues it for the back office.
func (s *Server) UploadPaymentProof(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req uploadProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	proofRef := strings.TrimSpace(req.ProofReference)
	if proofRef == "" {
		AbortWithError(c, paymentdomain.ErrProofRequired)
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !order.PaymentMethod.RequiresReview() {
		AbortWithError(c, paymentdomain.ErrMethodMismatch)
		return
	}

	details := map[string]any{}
	if v := strings.TrimSpace(req.SenderName); v != "" {
		details["sender_name"] = v
	}
	if v := strings.TrimSpace(req.TransferredAt); v != "" {
		details["transferred_at"] = v
	}

	result, err := s.state.ApplyInReview(c.Request.Context(), id, proofRef, details)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": result.Order})
}

type paymentMethodInfo struct {
	Method           string `json:"method"`
	RequiresRedirect bool   `json:"requires_redirect"`
	RequiresReview   bool   `json:"requires_review"`
}

// ListPaymentMethods reports every method the router can serve, so the
// storefront renders only what is actually wired up.
func (s *Server) ListPaymentMethods(c *gin.Context) {
	methods := make([]paymentMethodInfo, 0, len(s.router.Methods()))
	for _, m := range s.router.Methods() {
		methods = append(methods, paymentMethodInfo{
			Method:           string(m),
			RequiresRedirect: m.RequiresRedirect(),
			RequiresReview:   m.RequiresReview(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}
