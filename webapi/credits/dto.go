package credits

import "time"

// PurchaseInput is the credit purchase request body. Amount is whole EUR.
type PurchaseInput struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// BalanceDTO is the balance response body.
type BalanceDTO struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

// TransactionDTO is one ledger transaction in a history listing.
type TransactionDTO struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PurchaseDTO is the purchase response body. The client redirects the user
// to CheckoutURL to pay.
type PurchaseDTO struct {
	CheckoutURL string  `json:"checkoutUrl"`
	SessionID   string  `json:"sessionId"`
	Credits     int64   `json:"credits"`
	AmountEUR   int64   `json:"amountEur"`
	PricePerCr  float64 `json:"pricePerCreditCents"`
}
