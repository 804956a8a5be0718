package insight

import "strings"

// Terms whose presence in a group's representative description makes
// a subscription more credible.
var subscriptionKeywords = []string{
	"subscription",
	"membership",
	"monthly",
	"premium",
	"plan",
	"netflix",
	"spotify",
	"hulu",
	"disney",
	"prime",
	"icloud",
	"patreon",
	"gym",
	"audible",
	"youtube",
}

// ConfidenceInput is everything the scorer looks at for one merchant
// group.
type ConfidenceInput struct {
	Occurrences int
	Amounts     []float64 // absolute amounts
	Profile     IntervalProfile
	Description string // representative description for keyword bonus
}

// ScoreConfidence is the deterministic multi-factor heuristic in
// [0,1]. It starts at 0.5, rewards occurrence count, then applies two
// hard gates (variable amounts when configured, missing frequency),
// then amount- and interval-consistency adjustments and a keyword
// bonus, clamped at the end.
func ScoreConfidence(in ConfidenceInput, cfg RecurringConfig) float64 {
	score := 0.5

	switch {
	case in.Occurrences >= 6:
		score += 0.3
	case in.Occurrences >= 4:
		score += 0.2
	case in.Occurrences >= 3:
		score += 0.1
	case in.Occurrences >= 2:
		score += 0.05
	}

	amountCV := coefficientOfVariation(in.Amounts)
	if cfg.ExcludeVariableAmounts && amountCV > cfg.AmountVariance {
		return 0
	}
	if !in.Profile.HasFrequency {
		return 0
	}

	switch {
	case amountCV < 0.05:
		score += 0.2
	case amountCV < 0.10:
		score += 0.15
	case amountCV < cfg.AmountVariance:
		score += 0.1
	default:
		score -= 0.1
	}

	switch {
	case in.Profile.NormalizedVariance < 0.1:
		score += 0.2
	case in.Profile.NormalizedVariance < 0.2:
		score += 0.15
	case in.Profile.NormalizedVariance < 0.3:
		score += 0.1
	default:
		score -= 0.1
	}

	if hasSubscriptionKeyword(in.Description) {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// coefficientOfVariation is stddev/mean of the amounts; zero for an
// empty group or zero mean.
func coefficientOfVariation(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	m := mean(amounts)
	if m == 0 {
		return 0
	}
	return stdDev(amounts, m) / m
}

func hasSubscriptionKeyword(description string) bool {
	d := strings.ToLower(description)
	for _, kw := range subscriptionKeywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}
