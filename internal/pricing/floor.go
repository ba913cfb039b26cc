// Package pricing implements the price-floor rules for cart lines. Everything
// here is a pure function so it can run on every keystroke and before every
// cart mutation.
package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
)

const (
	// Without a known purchase price the line may be discounted at most 5%
	// off the catalog price.
	maxListDiscount = 0.95
	// With a known purchase price the line must clear cost by at least 5%.
	minCostMarkup = 1.05

	// Absorbs binary float noise so a candidate typed as exactly the floor
	// (e.g. 9.50 against 10.00*0.95) is accepted.
	epsilon = 1e-9
)

// Verdict is the outcome of a price check. Floor is always populated so the
// caller can render a precise message for an illegal price.
type Verdict struct {
	Legal bool    `json:"legal"`
	Floor float64 `json:"floor"`
}

// Floor returns the minimum legal unit price. A purchase price of zero (or
// anything non-positive or non-finite) counts as absent, not as a zero floor.
func Floor(basePrice, purchasePrice float64) float64 {
	if purchasePrice > 0 && !math.IsNaN(purchasePrice) && !math.IsInf(purchasePrice, 0) {
		return purchasePrice * minCostMarkup
	}
	return basePrice * maxListDiscount
}

// Validate checks a candidate unit price against the floor. Malformed input
// (NaN, infinities) is illegal, never an error.
func Validate(candidate, basePrice, purchasePrice float64) Verdict {
	floor := Floor(basePrice, purchasePrice)
	if math.IsNaN(candidate) || math.IsInf(candidate, 0) {
		return Verdict{Legal: false, Floor: floor}
	}
	return Verdict{Legal: candidate >= floor-epsilon, Floor: floor}
}

// ValidateInput checks a raw user-typed price. Empty and non-numeric input is
// simply illegal.
func ValidateInput(raw string, basePrice, purchasePrice float64) Verdict {
	candidate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Verdict{Legal: false, Floor: Floor(basePrice, purchasePrice)}
	}
	return Validate(candidate, basePrice, purchasePrice)
}

// ValidateDiscount checks a percentage discount off the base price.
func ValidateDiscount(percent, basePrice, purchasePrice float64) Verdict {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return Verdict{Legal: false, Floor: Floor(basePrice, purchasePrice)}
	}
	candidate := basePrice * (1 - percent/100)
	return Validate(candidate, basePrice, purchasePrice)
}

// LineViolation reports a cart line whose effective price is below its floor.
type LineViolation struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	EffectivePrice float64 `json:"effective_price"`
	Floor          float64 `json:"floor"`
}

// ValidateCart returns every line that fails its floor check. An empty result
// means the cart is priced legally.
func ValidateCart(items []domain.LineItem) []LineViolation {
	var violations []LineViolation
	for _, item := range items {
		v := Validate(item.EffectivePrice(), item.UnitPrice, item.PurchasePrice)
		if !v.Legal {
			violations = append(violations, LineViolation{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				EffectivePrice: item.EffectivePrice(),
				Floor:          v.Floor,
			})
		}
	}
	return violations
}
