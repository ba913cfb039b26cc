package pricing

import (
	"math"
	"testing"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloor_NoPurchasePrice(t *testing.T) {
	assert.InDelta(t, 9.50, Floor(10.00, 0), 1e-9)
	assert.InDelta(t, 9.50, Floor(10.00, -1), 1e-9)
	assert.InDelta(t, 9.50, Floor(10.00, math.NaN()), 1e-9)
}

func TestFloor_WithPurchasePrice(t *testing.T) {
	assert.InDelta(t, 8.40, Floor(10.00, 8.00), 1e-9)
	// purchase price wins over the list branch even when it yields a lower floor
	assert.InDelta(t, 1.05, Floor(10.00, 1.00), 1e-9)
}

func TestValidate_ListPriceBranch(t *testing.T) {
	cases := []struct {
		name      string
		candidate float64
		legal     bool
	}{
		{"at floor", 9.50, true},
		{"above floor", 10.00, true},
		{"one cent below", 9.49, false},
		{"zero", 0, false},
		{"negative", -5, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Validate(tc.candidate, 10.00, 0)
			assert.Equal(t, tc.legal, v.Legal)
			assert.InDelta(t, 9.50, v.Floor, 1e-9)
		})
	}
}

func TestValidate_PurchasePriceBranch(t *testing.T) {
	v := Validate(8.40, 10.00, 8.00)
	assert.True(t, v.Legal)
	assert.InDelta(t, 8.40, v.Floor, 1e-9)

	v = Validate(8.39, 10.00, 8.00)
	assert.False(t, v.Legal)
	assert.InDelta(t, 8.40, v.Floor, 1e-9)
}

func TestValidate_MalformedCandidate(t *testing.T) {
	assert.False(t, Validate(math.NaN(), 10.00, 0).Legal)
	assert.False(t, Validate(math.Inf(1), 10.00, 0).Legal)
	assert.False(t, Validate(math.Inf(-1), 10.00, 0).Legal)
}

func TestValidateInput(t *testing.T) {
	assert.True(t, ValidateInput("9.50", 10.00, 0).Legal)
	assert.True(t, ValidateInput(" 9.50 ", 10.00, 0).Legal)
	assert.False(t, ValidateInput("9.49", 10.00, 0).Legal)
	assert.False(t, ValidateInput("", 10.00, 0).Legal)
	assert.False(t, ValidateInput("abc", 10.00, 0).Legal)
	assert.False(t, ValidateInput("9,50", 10.00, 0).Legal)

	// the floor is reported even for garbage input
	v := ValidateInput("not a number", 10.00, 8.00)
	assert.False(t, v.Legal)
	assert.InDelta(t, 8.40, v.Floor, 1e-9)
}

func TestValidateDiscount(t *testing.T) {
	// 5% off €10.00 lands exactly on the floor
	assert.True(t, ValidateDiscount(5, 10.00, 0).Legal)
	assert.False(t, ValidateDiscount(5.1, 10.00, 0).Legal)
	assert.True(t, ValidateDiscount(0, 10.00, 0).Legal)
	assert.False(t, ValidateDiscount(math.NaN(), 10.00, 0).Legal)

	// with a purchase price of €8.00 a 16% discount (→ €8.40) is the limit
	assert.True(t, ValidateDiscount(16, 10.00, 8.00).Legal)
	assert.False(t, ValidateDiscount(17, 10.00, 8.00).Legal)
}

func TestValidateCart(t *testing.T) {
	below := 9.00
	items := []domain.LineItem{
		{ProductID: "p1", ProductName: "Widget", Quantity: 2, UnitPrice: 10.00},
		{ProductID: "p2", ProductName: "Gadget", Quantity: 1, UnitPrice: 5.00, PurchasePrice: 4.00},
		{ProductID: "p3", ProductName: "Gizmo", Quantity: 1, UnitPrice: 10.00, CustomUnitPrice: &below},
	}

	violations := ValidateCart(items)
	require.Len(t, violations, 1)
	assert.Equal(t, "p3", violations[0].ProductID)
	assert.InDelta(t, 9.00, violations[0].EffectivePrice, 1e-9)
	assert.InDelta(t, 9.50, violations[0].Floor, 1e-9)
}

func TestValidateCart_AllLegal(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 10.00},
		{ProductID: "p2", Quantity: 1, UnitPrice: 5.00, PurchasePrice: 4.00},
	}
	assert.Empty(t, ValidateCart(items))
}
