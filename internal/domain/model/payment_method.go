package model

// PaymentMethod is a mobile-money transfer channel users pay through.
// AccountName and AccountNumber identify the one canonical recipient.
type PaymentMethod struct {
	ID            string
	Name          string
	Provider      string
	AccountName   string
	AccountNumber string
	Emoji         string
}
