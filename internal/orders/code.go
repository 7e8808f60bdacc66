package orders

import (
	"strings"
	"time"
)

// ReservationCode is the short code printed on the confirmation page and the
// PDF: UD-<yymmdd of reservation>-<first 4 hex digits of the order id>.
func ReservationCode(orderID string, reservedAt time.Time) string {
	hex := strings.ReplaceAll(orderID, "-", "")
	if len(hex) > 4 {
		hex = hex[:4]
	}
	return "UD-" + reservedAt.UTC().Format("060102") + "-" + strings.ToUpper(hex)
}
