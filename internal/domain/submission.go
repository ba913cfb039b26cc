package domain

import "time"

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusCompleted SubmissionStatus = "COMPLETED"
	// A superseded attempt belonged to a cart state that no longer exists;
	// its idempotency key is retired without ever having produced an order.
	SubmissionStatusSuperseded SubmissionStatus = "SUPERSEDED"
)

func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusCompleted || s == SubmissionStatusSuperseded
}

func (s SubmissionStatus) String() string {
	return string(s)
}

// Submission is one logical order-submission attempt. The idempotency key is
// minted once when the attempt is created and reused by every retry of the
// same cart state; it is never regenerated automatically.
type Submission struct {
	ID              string
	UserID          string
	CustomerID      string
	IdempotencyKey  string
	CartFingerprint string
	Status          SubmissionStatus
	OrderID         *string
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderLine carries both the effective price and the original base price so
// the server can audit the discount.
type OrderLine struct {
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName"`
	SKU           string  `json:"sku"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	BasePrice     float64 `json:"basePrice"`
	TotalPrice    float64 `json:"totalPrice"`
	VATPercentage float64 `json:"vatPercentage"`
}

type OrderRequest struct {
	IdempotencyKey string      `json:"idempotencyKey"`
	CustomerID     string      `json:"customerId"`
	Lines          []OrderLine `json:"items"`
}

func (r *OrderRequest) TotalAmount() float64 {
	var total float64
	for _, l := range r.Lines {
		total += l.TotalPrice
	}
	return total
}
