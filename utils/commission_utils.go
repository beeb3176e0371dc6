package utils

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Identifier formats used across commissions and payouts.
var (
	ReferenceIDPattern       = regexp.MustCompile(`^COM-(APP|VAS)-[A-Z0-9]+-[A-Z0-9]{4}$`)
	CommissionInvoicePattern = regexp.MustCompile(`^FLY8-INV-\d{4}-\d{5}$`)
	PayoutInvoicePattern     = regexp.MustCompile(`^FLY8-PAY-\d{4}-\d{6}$`)
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Round2 rounds to two decimals, half away from zero. All stored amounts
// go through this.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateReferenceID builds a human reference like COM-APP-M4X2K1-7QZ3.
// kind is "APP" or "VAS".
func GenerateReferenceID(kind string) string {
	stamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = referenceCharset[rand.Intn(len(referenceCharset))]
	}
	return fmt.Sprintf("COM-%s-%s-%s", kind, stamp, string(suffix))
}

// FormatCommissionInvoice renders a per-year sequenced commission invoice
// number, e.g. FLY8-INV-2026-00042.
func FormatCommissionInvoice(year int, seq int64) string {
	return fmt.Sprintf("FLY8-INV-%04d-%05d", year, seq)
}

// FormatPayoutInvoice renders a payout invoice number from the current
// timestamp, e.g. FLY8-PAY-2026-384719. Payout numbers are unique but not
// strictly sequential.
func FormatPayoutInvoice(now time.Time) string {
	return fmt.Sprintf("FLY8-PAY-%04d-%06d", now.Year(), now.UnixMilli()%1000000)
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ParseTuitionAmount extracts the numeric value from a tuition string such
// as "$12,500 per year". Returns 0 when no digits are present.
func ParseTuitionAmount(raw string) float64 {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return amount
}
