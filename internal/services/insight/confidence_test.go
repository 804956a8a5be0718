package insight

import (
	"math"
	"testing"

	"SpendLens/internal/domain/models"
)

func steadyProfile(freq models.Frequency) IntervalProfile {
	return IntervalProfile{
		Frequency:          freq,
		HasFrequency:       true,
		AvgIntervalDays:    float64(freq.ExpectedIntervalDays()),
		IntervalStdDev:     0,
		NormalizedVariance: 0,
	}
}

func TestScoreConfidenceSteadySubscription(t *testing.T) {
	cfg := DefaultRecurringConfig()
	in := ConfidenceInput{
		Occurrences: 5,
		Amounts:     []float64{15.99, 15.99, 15.99, 15.99, 15.99},
		Profile:     steadyProfile(models.FreqMonthly),
		Description: "NETFLIX.COM",
	}
	got := ScoreConfidence(in, cfg)
	if got != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", got)
	}
}

func TestScoreConfidenceVariableAmountShortCircuit(t *testing.T) {
	cfg := DefaultRecurringConfig()
	in := ConfidenceInput{
		Occurrences: 4,
		Amounts:     []float64{100, 140, 100, 140},
		Profile:     steadyProfile(models.FreqMonthly),
		Description: "CITY POWER AND LIGHT",
	}
	if got := ScoreConfidence(in, cfg); got != 0 {
		t.Fatalf("confidence = %v, want 0 for variable amounts", got)
	}

	cfg.ExcludeVariableAmounts = false
	if got := ScoreConfidence(in, cfg); got <= 0 {
		t.Fatalf("confidence = %v, want > 0 when variable amounts allowed", got)
	}
}

func TestScoreConfidenceNoFrequency(t *testing.T) {
	cfg := DefaultRecurringConfig()
	in := ConfidenceInput{
		Occurrences: 6,
		Amounts:     []float64{9.99, 9.99, 9.99, 9.99, 9.99, 9.99},
		Profile:     IntervalProfile{},
		Description: "SPOTIFY PREMIUM",
	}
	if got := ScoreConfidence(in, cfg); got != 0 {
		t.Fatalf("confidence = %v, want 0 without a frequency", got)
	}
}

func TestScoreConfidenceKeywordBonus(t *testing.T) {
	cfg := DefaultRecurringConfig()
	// Loose interval profile keeps both scores clear of the 1.0 clamp.
	profile := steadyProfile(models.FreqMonthly)
	profile.IntervalStdDev = 7.5
	profile.NormalizedVariance = 0.25
	base := ConfidenceInput{
		Occurrences: 2,
		Amounts:     []float64{42.00, 42.00},
		Profile:     profile,
		Description: "ACME WIDGETS",
	}
	withKeyword := base
	withKeyword.Description = "ACME GYM MEMBERSHIP"

	plain := ScoreConfidence(base, cfg)
	boosted := ScoreConfidence(withKeyword, cfg)
	if math.Abs(boosted-plain-0.1) > 1e-9 {
		t.Fatalf("keyword bonus = %v, want 0.1 (plain %v, boosted %v)", boosted-plain, plain, boosted)
	}
}

func TestScoreConfidenceClamped(t *testing.T) {
	cfg := DefaultRecurringConfig()
	in := ConfidenceInput{
		Occurrences: 12,
		Amounts:     []float64{9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99, 9.99},
		Profile:     steadyProfile(models.FreqMonthly),
		Description: "HULU SUBSCRIPTION",
	}
	got := ScoreConfidence(in, cfg)
	if got < 0 || got > 1 {
		t.Fatalf("confidence = %v, out of range", got)
	}
	if got != 1.0 {
		t.Fatalf("confidence = %v, want clamp to 1.0", got)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	if cv := coefficientOfVariation([]float64{100, 140, 100, 140}); math.Abs(cv-0.1667) > 0.001 {
		t.Fatalf("cv = %v, want ~0.1667", cv)
	}
	if cv := coefficientOfVariation([]float64{10, 10, 10}); cv != 0 {
		t.Fatalf("cv = %v, want 0", cv)
	}
	if cv := coefficientOfVariation(nil); cv != 0 {
		t.Fatalf("cv = %v, want 0 for empty input", cv)
	}
}
