// internal/domain/models.go
package domain

type CreditCard struct {
	ID         string `json:"id"`
	CardName   string `json:"card_name"`
	Issuer     string `json:"issuer"`
	Notes      string `json:"notes,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

type CashbackEntry struct {
	ID           string  `json:"id"`
	CardID       string  `json:"card_id"`
	Category     string  `json:"category"`
	CashbackRate float64 `json:"cashback_rate"`
	Cap          string  `json:"cap,omitempty"`
}

// Candidate — карта + её кэшбэк-строка для одной категории
type Candidate struct {
	Card     CreditCard    `json:"card"`
	Cashback CashbackEntry `json:"cashback"`
}
