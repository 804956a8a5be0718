package models

import "time"

// Frequency is the canonical recurrence classification.
type Frequency string

const (
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
)

// ExpectedIntervalDays returns the nominal number of days between
// occurrences for the frequency.
func (f Frequency) ExpectedIntervalDays() float64 {
	switch f {
	case FreqWeekly:
		return 7
	case FreqQuarterly:
		return 91
	case FreqYearly:
		return 365
	default:
		return 30
	}
}

// RecurringStatus mirrors IsActive for API consumers.
type RecurringStatus string

const (
	StatusActive   RecurringStatus = "active"
	StatusInactive RecurringStatus = "inactive"
)

// RecurringPayment is one detected merchant-level subscription.
// Records are regenerated on every run; callers reconcile across runs
// by merchant name, not id.
type RecurringPayment struct {
	ID               string          `json:"id"`
	MerchantName     string          `json:"merchant_name"`
	OriginalNames    []string        `json:"original_names"`
	Category         string          `json:"category"`
	LatestAmount     float64         `json:"latest_amount"`
	AverageAmount    float64         `json:"average_amount"`
	Frequency        Frequency       `json:"frequency"`
	Confidence       float64         `json:"confidence"`
	FirstSeen        time.Time       `json:"first_seen"`
	LastSeen         time.Time       `json:"last_seen"`
	OccurrenceCount  int             `json:"occurrence_count"`
	TransactionIDs   []string        `json:"transaction_ids"`
	IsActive         bool            `json:"is_active"`
	NextExpectedDate *time.Time      `json:"next_expected_date,omitempty"`
	Status           RecurringStatus `json:"status"`
}

// ExcludedMerchant is a user "not recurring" decision, keyed by
// normalized merchant name. Unlike detection output it persists
// across runs and is applied as a post-filter.
type ExcludedMerchant struct {
	NormalizedName string    `json:"normalized_name"`
	ExcludedAt     time.Time `json:"excluded_at"`
}
