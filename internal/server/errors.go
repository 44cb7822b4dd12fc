package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
	paymentdomain "github.com/nilemart/storefront/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	case errors.Is(err, paymentdomain.ErrAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "order_already_paid",
			Message: "order has already been paid",
		}
	case errors.Is(err, paymentdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: "payment state does not allow this action",
		}

	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "signature verification failed",
		}
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_payload",
			Message: "payload could not be parsed",
		}
	case errors.Is(err, paymentdomain.ErrMethodMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "payment_method_mismatch",
			Message: "payment method does not match this flow",
		}
	case errors.Is(err, paymentdomain.ErrInvalidRefundAmount):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_refund_amount",
			Message: "refund amount must be positive and at most the order total",
		}
	case errors.Is(err, paymentdomain.ErrProofRequired):
		return http.StatusBadRequest, errorPayload{
			Type:    "proof_required",
			Message: "a payment proof reference is required",
		}
	case errors.Is(err, paymentdomain.ErrCorrelationExpired):
		return http.StatusBadRequest, errorPayload{
			Type:    "session_expired",
			Message: "payment session expired or already used",
		}

	case errors.Is(err, paymentdomain.ErrUnresolvedOrder),
		errors.Is(err, paymentdomain.ErrUnsupportedGateway),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, paymentdomain.ErrGatewayUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway could not be reached",
		}

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orderdomain.ErrInvalidAmount),
		errors.Is(err, orderdomain.ErrInvalidMethod),
		errors.Is(err, orderdomain.ErrInvalidEmail),
		errors.Is(err, orderdomain.ErrInvalidOrderID):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
