package insight

// AnomalyConfig holds thresholds for the anomaly scan. Plain values,
// injected per call; nothing here is read from ambient state.
type AnomalyConfig struct {
	AmountStdDevThreshold   float64 // z-score beyond which an amount is flagged
	MinTransactionsForStats int     // minimum samples before category stats exist
	DuplicateSimilarity     float64 // description similarity floor for duplicates
	DuplicateWindowHours    float64 // absolute time delta for duplicate candidates
	FrequencyThreshold24h   int     // same-merchant charges in 24h before flagging
	FrequencyThreshold7d    int     // same-merchant charges in 7d before flagging
}

// DefaultAnomalyConfig returns the documented defaults.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		AmountStdDevThreshold:   2.5,
		MinTransactionsForStats: 5,
		DuplicateSimilarity:     0.8,
		DuplicateWindowHours:    48,
		FrequencyThreshold24h:   3,
		FrequencyThreshold7d:    5,
	}
}

// RecurringConfig holds thresholds for recurring payment detection.
type RecurringConfig struct {
	MinOccurrences          int     // minimum charges before a group is considered
	MinOccurrencesYearly    int     // lower minimum, yearly classification only
	AmountVariance          float64 // coefficient-of-variation ceiling for amounts
	IntervalToleranceDays   float64 // tolerance around the monthly band
	MissedPaymentsAllowance float64 // intervals a payment may miss before inactive
	ConfidenceThreshold     float64 // minimum confidence to emit a record
	ExcludeVariableAmounts  bool    // hard-reject groups with unstable amounts
}

// DefaultRecurringConfig returns the documented defaults.
func DefaultRecurringConfig() RecurringConfig {
	return RecurringConfig{
		MinOccurrences:          2,
		MinOccurrencesYearly:    1,
		AmountVariance:          0.10,
		IntervalToleranceDays:   7,
		MissedPaymentsAllowance: 2,
		ConfidenceThreshold:     0.7,
		ExcludeVariableAmounts:  true,
	}
}

// Config bundles both passes' settings.
type Config struct {
	Anomaly   AnomalyConfig
	Recurring RecurringConfig
}

// DefaultConfig returns defaults for both passes.
func DefaultConfig() Config {
	return Config{Anomaly: DefaultAnomalyConfig(), Recurring: DefaultRecurringConfig()}
}
