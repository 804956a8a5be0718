package models

import "time"

// ScanResult is the output of one full insight scan over a lookback
// window. Results are regenerated wholesale; nothing is merged across
// runs except caller-owned dismissed flags.
type ScanResult struct {
	Window        string              `json:"window"`
	ScannedAt     time.Time           `json:"scanned_at"`
	Transactions  int                 `json:"transactions"`
	Anomalies     []Transaction       `json:"anomalies"`
	Recurring     []RecurringPayment  `json:"recurring"`
	AnomalyCounts map[AnomalyType]int `json:"anomaly_counts,omitempty"`

	// Annotated holds every scanned transaction with its anomaly
	// annotations, flagged or not. Served by the anomalies endpoint
	// with all=true; kept out of the scan envelope and the results
	// topic, which carry findings only.
	Annotated []Transaction `json:"-"`
}
