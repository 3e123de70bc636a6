package voc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/haasonsaas/resolvr/pkg/models"
)

var (
	emailRegex  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRegex  = regexp.MustCompile(`(?:\+?91[-\s]?)?[6-9]\d{9}\b`)
	amountRegex = regexp.MustCompile(`₹\s?[\d,]+(?:\.\d{1,2})?`)
	awbRegex    = regexp.MustCompile(`\b\d{10,18}\b`)
	awbKeywords = regexp.MustCompile(`(?i)awb|tracking|shipment|courier`)
)

// awbProximityWindow is how close (in characters) an AWB candidate must
// be to one of awbKeywords' matches to be accepted (spec §4.6).
const awbProximityWindow = 30

// EntityPrefixes configures the tenant-specific literal prefixes used to
// recognize order/return/payment identifiers, since those formats vary
// by tenant and aren't a fixed universal pattern.
type EntityPrefixes struct {
	OrderNumber []string
	ReturnID    []string
	PaymentID   []string
}

// DefaultEntityPrefixes returns a reasonable fallback prefix set for
// tenants that haven't configured their own.
func DefaultEntityPrefixes() EntityPrefixes {
	return EntityPrefixes{
		OrderNumber: []string{"ORD", "ORDER"},
		ReturnID:    []string{"RET", "RMA"},
		PaymentID:   []string{"PAY", "TXN", "UPI"},
	}
}

// ExtractEntities runs the deterministic regex battery over text.
func ExtractEntities(text string, prefixes EntityPrefixes) []models.Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []models.Entity
	seenValues := make(map[string]struct{})

	add := func(e models.Entity) {
		key := string(e.Type) + ":" + e.Value
		if _, ok := seenValues[key]; ok {
			return
		}
		seenValues[key] = struct{}{}
		out = append(out, e)
	}

	for _, m := range matchPrefixedIDs(text, prefixes.OrderNumber) {
		add(models.Entity{Type: models.EntityOrderNumber, Value: strings.ToUpper(m), RawText: m, Confidence: 0.9})
	}
	for _, m := range matchPrefixedIDs(text, prefixes.ReturnID) {
		add(models.Entity{Type: models.EntityReturnID, Value: strings.ToUpper(m), RawText: m, Confidence: 0.85})
	}
	for _, m := range matchPrefixedIDs(text, prefixes.PaymentID) {
		add(models.Entity{Type: models.EntityPaymentID, Value: strings.ToUpper(m), RawText: m, Confidence: 0.85})
	}
	for _, m := range phoneRegex.FindAllString(text, -1) {
		add(models.Entity{Type: models.EntityPhone, Value: normalizePhone(m), RawText: m, Confidence: 0.85})
	}
	for _, m := range emailRegex.FindAllString(text, -1) {
		add(models.Entity{Type: models.EntityEmail, Value: strings.ToLower(m), RawText: m, Confidence: 0.9})
	}
	for _, m := range amountRegex.FindAllString(text, -1) {
		add(models.Entity{Type: models.EntityAmount, Value: normalizeAmount(m), RawText: m, Confidence: 0.8})
	}

	for _, m := range extractAWBCandidates(text) {
		if _, isOrderOrPhone := seenValues[string(models.EntityOrderNumber)+":"+strings.ToUpper(m)]; isOrderOrPhone {
			continue
		}
		if _, isPhone := seenValues[string(models.EntityPhone)+":"+normalizePhone(m)]; isPhone {
			continue
		}
		add(models.Entity{Type: models.EntityAWB, Value: m, RawText: m, Confidence: 0.7})
	}

	return out
}

// matchPrefixedIDs finds occurrences of each prefix immediately followed
// by (optionally dash-separated) digits, e.g. "ORD-12345" or "ORD12345".
func matchPrefixedIDs(text string, prefixes []string) []string {
	var out []string
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(prefix) + `-?\d{4,12}\b`)
		out = append(out, re.FindAllString(text, -1)...)
	}
	return out
}

// extractAWBCandidates finds 10-18 digit runs that sit within
// awbProximityWindow characters of an AWB-context keyword.
func extractAWBCandidates(text string) []string {
	keywordSpans := awbKeywords.FindAllStringIndex(text, -1)
	if len(keywordSpans) == 0 {
		return nil
	}

	var out []string
	for _, span := range awbRegex.FindAllStringIndex(text, -1) {
		for _, kw := range keywordSpans {
			if withinProximity(span, kw, awbProximityWindow) {
				out = append(out, text[span[0]:span[1]])
				break
			}
		}
	}
	return out
}

// withinProximity reports whether two [start,end) spans are within
// window characters of each other in either direction.
func withinProximity(a, b []int, window int) bool {
	gap := 0
	switch {
	case a[0] >= b[1]:
		gap = a[0] - b[1]
	case b[0] >= a[1]:
		gap = b[0] - a[1]
	default:
		return true // overlapping
	}
	return gap <= window
}

func normalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 10 {
		return "91" + d
	}
	if len(d) == 12 && strings.HasPrefix(d, "91") {
		return d
	}
	return d
}

func normalizeAmount(raw string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(raw), "₹")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return cleaned
	}
	return cleaned
}
