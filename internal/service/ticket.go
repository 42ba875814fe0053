package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const ticketPrefix = "ADU"

var ticketCodePattern = regexp.MustCompile(`^ADU-\d{6}-\d{4,}$`)

// TicketPeriod is the YYYYMM bucket a submission falls into in loc.
func TicketPeriod(at time.Time, loc *time.Location) string {
	return at.In(loc).Format("200601")
}

func FormatTicketCode(period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", ticketPrefix, period, seq)
}

func NormalizeTicketCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func ValidTicketCode(code string) bool {
	return ticketCodePattern.MatchString(code)
}
