package models

import "time"

// Direction distinguishes money moving in or out of the account.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// EconType is the closed economic classification of a transaction.
// String dispatch is deliberately avoided; switch statements over
// EconType should be exhaustive.
type EconType int8

const (
	EconExpense EconType = iota
	EconIncome
	EconExcluded
)

func (t EconType) String() string {
	switch t {
	case EconIncome:
		return "income"
	case EconExcluded:
		return "excluded"
	default:
		return "expense"
	}
}

// ParseEconType maps a wire string to EconType. Unknown values degrade
// to EconExpense, matching the permissive input contract.
func ParseEconType(s string) EconType {
	switch s {
	case "income":
		return EconIncome
	case "excluded":
		return EconExcluded
	default:
		return EconExpense
	}
}

// Transaction is a normalized ledger entry supplied by the upstream
// statement processor. Core analysis reads these fields and returns
// annotated copies; it never mutates caller state.
type Transaction struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"` // signed; sign follows Direction
	Direction    Direction `json:"direction"`
	Type         EconType  `json:"-"`
	CategoryID   string    `json:"category_id,omitempty"`
	MerchantName string    `json:"merchant_name,omitempty"` // optional display name

	// Annotations produced by the anomaly scan. AnomalyDismissed is
	// owned by the caller and preserved verbatim across scans.
	IsAnomaly        bool            `json:"is_anomaly,omitempty"`
	AnomalyTypes     []AnomalyType   `json:"anomaly_types,omitempty"`
	AnomalyDetails   []AnomalyDetail `json:"anomaly_details,omitempty"`
	AnomalyDismissed bool            `json:"anomaly_dismissed,omitempty"`
}

// AbsAmount returns the magnitude of the transaction amount.
func (t *Transaction) AbsAmount() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Category returns the category id, defaulting to "uncategorized".
func (t *Transaction) Category() string {
	if t.CategoryID == "" {
		return "uncategorized"
	}
	return t.CategoryID
}

// DisplayName returns the merchant display name when present, falling
// back to the raw description.
func (t *Transaction) DisplayName() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Description
}

// AnomalyType is one structured reason a transaction was flagged.
type AnomalyType string

const (
	AnomalyHighAmount       AnomalyType = "high_amount"
	AnomalyLowAmount        AnomalyType = "low_amount"
	AnomalyDuplicate        AnomalyType = "duplicate"
	AnomalyUnusualFrequency AnomalyType = "unusual_frequency"
)

// FrequencyPeriod is the trailing window a frequency finding refers to.
type FrequencyPeriod string

const (
	Period24h FrequencyPeriod = "24h"
	Period7d  FrequencyPeriod = "7d"
)

// AnomalyDetail carries the evidence for a single finding. Only the
// fields relevant to Type are set: AmountDeviation for amount
// findings, DuplicateOf for duplicates, FrequencyCount/Period for
// frequency findings.
type AnomalyDetail struct {
	Type            AnomalyType     `json:"type"`
	AmountDeviation float64         `json:"amount_deviation,omitempty"` // z-score
	DuplicateOf     string          `json:"duplicate_of,omitempty"`     // transaction id
	FrequencyCount  int             `json:"frequency_count,omitempty"`
	FrequencyPeriod FrequencyPeriod `json:"frequency_period,omitempty"`
}

// CategoryStats holds per-category expense statistics. Entries exist
// only for categories with at least the minimum sample count and
// non-zero deviation; they are recomputed transiently each run.
type CategoryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// MerchantGroup clusters expense transactions that resolve to the
// same merchant identity. Rebuilt per run, never persisted.
type MerchantGroup struct {
	NormalizedName string
	OriginalNames  []string
	Transactions   []Transaction
}
