package domain

import "errors"

var (
	// ErrMethodMismatch fires when an order is handed to a strategy or
	// gateway that does not serve its payment method.
	ErrMethodMismatch = errors.New("payment_method_mismatch")
	ErrAlreadyPaid    = errors.New("order_already_paid")

	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	// ErrEventIgnored marks a well-formed webhook whose event type carries
	// no payment outcome; it is acknowledged without processing.
	ErrEventIgnored = errors.New("event_ignored")

	ErrUnresolvedOrder    = errors.New("unresolved_order")
	ErrUnsupportedGateway = errors.New("unsupported_gateway")
	ErrInvalidConfig      = errors.New("invalid_gateway_config")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")

	ErrInvalidTransition = errors.New("invalid_payment_transition")

	ErrProofRequired      = errors.New("payment_proof_required")
	ErrCorrelationExpired = errors.New("payment_session_expired")

	ErrInvalidRefundAmount = errors.New("invalid_refund_amount")
)
