package service

import (
	"time"

	"SpendLens/internal/domain/models"
)

// AnomalyScanner annotates a transaction set with anomaly findings.
type AnomalyScanner interface {
	Scan(txs []models.Transaction) []models.Transaction
}

// RecurringDetector derives the recurring-payment set for a
// transaction history evaluated at a point in time.
type RecurringDetector interface {
	Detect(txs []models.Transaction, excluded []models.ExcludedMerchant, now time.Time) []models.RecurringPayment
}
