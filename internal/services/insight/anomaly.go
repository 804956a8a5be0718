package insight

import (
	"regexp"
	"strings"
	"time"

	"SpendLens/internal/domain/models"
)

// Detector runs the anomaly pass. It keeps no state between runs:
// every Scan recomputes category statistics and evaluates each
// transaction independently against the full list.
type Detector struct {
	cfg AnomalyConfig
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg AnomalyConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Scan returns an annotated copy of txs. The input slice and its
// elements are never mutated; caller-set AnomalyDismissed flags are
// carried through verbatim. Malformed transactions (zero date,
// non-finite amount) are excluded from the specific check affected,
// never aborting the run.
//
// Duplicate and frequency checks scan the whole list per transaction;
// the O(n²) cost is an accepted boundary for personal statement
// volumes.
func (d *Detector) Scan(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	copy(out, txs)

	stats := BuildCategoryStats(txs, d.cfg.MinTransactionsForStats)
	aggs := buildCategoryAggregates(txs)
	freqKeys := make([]string, len(txs))
	for i := range txs {
		if txs[i].Type == models.EconExpense {
			freqKeys[i] = frequencyKey(txs[i].Description)
		}
	}

	for i := range out {
		t := &out[i]
		t.IsAnomaly = false
		t.AnomalyTypes = nil
		t.AnomalyDetails = nil
		if t.Type != models.EconExpense {
			continue
		}

		if det, ok := d.amountCheck(t, stats, aggs); ok {
			addFinding(t, det)
		}
		if det, ok := d.duplicateCheck(i, txs); ok {
			addFinding(t, det)
		}
		if det, ok := d.frequencyCheck(i, txs, freqKeys); ok {
			addFinding(t, det)
		}
	}
	return out
}

func addFinding(t *models.Transaction, det models.AnomalyDetail) {
	t.IsAnomaly = true
	t.AnomalyTypes = append(t.AnomalyTypes, det.Type)
	t.AnomalyDetails = append(t.AnomalyDetails, det)
}

// amountCheck flags amounts beyond the z-score threshold for the
// transaction's category. The category must have retained statistics
// (enough samples, non-zero spread); the z-score itself is computed
// against a leave-one-out baseline so a single large charge cannot
// widen the deviation it is measured against. High and low findings
// are mutually exclusive by construction.
func (d *Detector) amountCheck(t *models.Transaction, stats map[string]models.CategoryStats, aggs map[string]categoryAggregate) (models.AnomalyDetail, bool) {
	amt := t.AbsAmount()
	if !isFinite(amt) {
		return models.AnomalyDetail{}, false
	}
	if _, ok := stats[t.Category()]; !ok {
		return models.AnomalyDetail{}, false
	}
	m, sd, ok := aggs[t.Category()].leaveOneOut(amt)
	if !ok {
		return models.AnomalyDetail{}, false
	}
	z := (amt - m) / sd
	switch {
	case z > d.cfg.AmountStdDevThreshold:
		return models.AnomalyDetail{Type: models.AnomalyHighAmount, AmountDeviation: z}, true
	case z < -d.cfg.AmountStdDevThreshold:
		return models.AnomalyDetail{Type: models.AnomalyLowAmount, AmountDeviation: z}, true
	}
	return models.AnomalyDetail{}, false
}

// duplicateCheck looks for another expense close in time and amount
// with a matching description. The first candidate in input order
// wins; this tie-break is part of the observable contract and must
// not silently become "nearest in time".
func (d *Detector) duplicateCheck(i int, txs []models.Transaction) (models.AnomalyDetail, bool) {
	self := &txs[i]
	if self.Date.IsZero() || !isFinite(self.Amount) {
		return models.AnomalyDetail{}, false
	}
	window := time.Duration(d.cfg.DuplicateWindowHours * float64(time.Hour))

	for j := range txs {
		if j == i {
			continue
		}
		cand := &txs[j]
		if cand.Type != models.EconExpense || cand.Date.IsZero() || !isFinite(cand.Amount) {
			continue
		}
		delta := self.Date.Sub(cand.Date)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}
		diff := self.AbsAmount() - cand.AbsAmount()
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.01 {
			continue
		}
		if !descriptionsMatch(self.Description, cand.Description, d.cfg.DuplicateSimilarity) {
			continue
		}
		return models.AnomalyDetail{Type: models.AnomalyDuplicate, DuplicateOf: cand.ID}, true
	}
	return models.AnomalyDetail{}, false
}

// frequencyCheck counts same-merchant expenses in the trailing 24h
// and 7d windows, self included. The 24h finding takes priority.
func (d *Detector) frequencyCheck(i int, txs []models.Transaction, keys []string) (models.AnomalyDetail, bool) {
	self := &txs[i]
	if self.Date.IsZero() || keys[i] == "" {
		return models.AnomalyDetail{}, false
	}

	var count24, count7 int
	for j := range txs {
		if txs[j].Type != models.EconExpense || txs[j].Date.IsZero() || keys[j] != keys[i] {
			continue
		}
		back := self.Date.Sub(txs[j].Date)
		if back < 0 || back > 7*24*time.Hour {
			continue
		}
		count7++
		if back <= 24*time.Hour {
			count24++
		}
	}

	if count24 >= d.cfg.FrequencyThreshold24h {
		return models.AnomalyDetail{
			Type:            models.AnomalyUnusualFrequency,
			FrequencyCount:  count24,
			FrequencyPeriod: models.Period24h,
		}, true
	}
	if count7 >= d.cfg.FrequencyThreshold7d {
		return models.AnomalyDetail{
			Type:            models.AnomalyUnusualFrequency,
			FrequencyCount:  count7,
			FrequencyPeriod: models.Period7d,
		}, true
	}
	return models.AnomalyDetail{}, false
}

var codePrefix = regexp.MustCompile(`^[a-z]{2,4} `)

// frequencyKey reduces a description to a coarse merchant key for the
// frequency windows: drop a short bank code prefix and leading
// digit-only tokens, keep at most the first three tokens.
func frequencyKey(description string) string {
	s := NormalizeMerchant(description)
	if s == "" {
		return ""
	}
	if m := codePrefix.FindString(s); m != "" && len(s) > len(m) {
		s = s[len(m):]
	}
	tokens := strings.Fields(s)
	for len(tokens) > 1 && isDigits(tokens[0]) {
		tokens = tokens[1:]
	}
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
