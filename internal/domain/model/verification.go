package model

// VerificationResult is the structured verdict returned by the slip
// classifier. It is transient and never persisted as-is; the orchestrator
// folds it into the transaction record.
type VerificationResult struct {
	IsValid            bool     `json:"isValid"`
	DetectedAmount     int64    `json:"detectedAmount"`
	TransactionID      string   `json:"transactionId,omitempty"`
	Reason             string   `json:"reason"`
	Confidence         float64  `json:"confidence"` // 0..1
	FraudIndicators    []string `json:"fraudIndicators,omitempty"`
	DetectedPaymentApp string   `json:"detectedPaymentApp,omitempty"`
}

// AccessKey is the provisioned artifact handed to the user. It lives only in
// the success message and in TransactionRecord.SubscriptionKey.
type AccessKey struct {
	Key        string
	Protocol   string
	ExpiryDate string // YYYY-MM-DD
}
