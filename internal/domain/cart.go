package domain

import "time"

type Cart struct {
	ID         string     `bson:"_id,omitempty" json:"-"`
	UserID     string     `bson:"user_id" json:"user_id"`
	Items      []LineItem `bson:"items" json:"items"`
	CustomerID *string    `bson:"customer_id,omitempty" json:"customer_id,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// LineItem is a cart line. UnitPrice is the catalog price snapshot taken when
// the product was added and never changes afterwards; CustomUnitPrice, when
// set, is the price actually charged.
type LineItem struct {
	ProductID       string   `bson:"product_id" json:"product_id"`
	ProductName     string   `bson:"product_name" json:"product_name"`
	SKU             string   `bson:"sku" json:"sku"`
	Quantity        int      `bson:"quantity" json:"quantity"`
	UnitPrice       float64  `bson:"unit_price" json:"unit_price"`
	CustomUnitPrice *float64 `bson:"custom_unit_price,omitempty" json:"custom_unit_price,omitempty"`
	PurchasePrice   float64  `bson:"purchase_price,omitempty" json:"purchase_price,omitempty"`
	VATPercentage   float64  `bson:"vat_percentage" json:"vat_percentage"`
	UnitOfMeasure   string   `bson:"unit_of_measure,omitempty" json:"unit_of_measure,omitempty"`
	CoverImageURL   string   `bson:"cover_image_url,omitempty" json:"cover_image_url,omitempty"`

	AddedAt time.Time `bson:"added_at" json:"added_at"`
}

// EffectivePrice is the override when present, the snapshot price otherwise.
func (i LineItem) EffectivePrice() float64 {
	if i.CustomUnitPrice != nil {
		return *i.CustomUnitPrice
	}
	return i.UnitPrice
}

func (i LineItem) LineTotal() float64 {
	return i.EffectivePrice() * float64(i.Quantity)
}

// TotalAmount is always derived from the lines, never stored.
func (c *Cart) TotalAmount() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Item returns the line for productID, or nil.
func (c *Cart) Item(productID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
