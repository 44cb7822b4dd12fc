package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// MerchantReference builds the canonical correlation string embedded in
// every gateway request, "{appName}-{orderID}". The format is part of the
// wire contract with every gateway and must remain stable.
func MerchantReference(appName string, orderID snowflake.ID) string {
	return strings.TrimSpace(appName) + "-" + orderID.String()
}

// ParseMerchantReference recovers the order id from a correlation string
// by stripping the known application prefix. A reference that does not
// carry the prefix, or whose remainder is not a valid id, fails with
// ErrUnresolvedOrder rather than guessing.
func ParseMerchantReference(appName, reference string) (snowflake.ID, error) {
	prefix := strings.TrimSpace(appName) + "-"
	reference = strings.TrimSpace(reference)
	if prefix == "-" || !strings.HasPrefix(reference, prefix) {
		return 0, ErrUnresolvedOrder
	}
	raw := strings.TrimPrefix(reference, prefix)
	if raw == "" {
		return 0, ErrUnresolvedOrder
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, ErrUnresolvedOrder
	}
	return id, nil
}
