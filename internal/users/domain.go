package users

// User is a seller/affiliate. CommissionRate is the flat amount the seller
// earns per qualifying sale; SponsorID points at the upline referrer, nil
// for top-level sellers.
type User struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Balance        float64 `json:"balance"`
	CommissionRate float64 `json:"commission_rate"`
	SponsorID      *string `json:"sponsor_id,omitempty"`
}
