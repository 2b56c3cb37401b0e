package sales

import "time"

// Record kinds. Regular sales and ebook purchases share the same shape and
// the same payment lifecycle, so both live behind one record type.
const (
	KindSale  = "sale"
	KindEbook = "ebook"
)

// Payment lifecycle statuses. These mirror the gateway's vocabulary: a
// record is created PENDING_PAY and flips to PAYMENT_CONFIRMED exactly
// once, when the confirmation webhook arrives.
const (
	StatusPendingPay       = "PENDING_PAY"
	StatusPaymentConfirmed = "PAYMENT_CONFIRMED"
)

// Product ids with dedicated pricing or settlement behavior.
const (
	ProductConsulting = 1
	ProductEbookBasic = 2
	ProductEbookFull  = 3
)

// Sale is a locally persisted purchase intent, correlated to the gateway
// through GatewayPaymentID once the charge has been created.
type Sale struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	CPF              string    `json:"cpf"`
	Name             string    `json:"name"`
	BirthDate        string    `json:"birth_date,omitempty"`
	Email            string    `json:"email,omitempty"`
	Whatsapp         string    `json:"whatsapp,omitempty"`
	ProductID        int       `json:"product_id"`
	SellerID         string    `json:"seller_id"`
	Amount           float64   `json:"amount"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProductPrice returns the fixed charge for a product when the request does
// not carry an explicit amount.
func ProductPrice(productID int) float64 {
	switch productID {
	case ProductEbookBasic:
		return 19.99
	default:
		return 9.99
	}
}
