package insight

import "testing"

func TestNormalizeMerchant(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"NETFLIX.COM", "netflix"},
		{"Payment to Spotify AB", "spotify ab"},
		{"Purchase at STARBUCKS #123", "starbucks 123"},
		{"Acme Widgets Ltd", "acme widgets"},
		{"Acme Widgets Ltd.", "acme widgets"},
		{"HULU*Subscription Billing", "hulu"},
		{"  Multiple    spaces   here ", "multiple spaces here"},
		{"sub Spotify", "spotify"},
	}
	for _, c := range cases {
		if got := NormalizeMerchant(c.in); got != c.want {
			t.Fatalf("NormalizeMerchant(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeMerchantIdempotent(t *testing.T) {
	inputs := []string{
		"Payment to Netflix Inc",
		"payment-to netflix",
		"STARBUCKS #456",
		"sub sub gym membership billing",
		"A.B.C. Ltd",
		"",
	}
	for _, in := range inputs {
		once := NormalizeMerchant(in)
		twice := NormalizeMerchant(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
