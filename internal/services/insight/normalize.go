package insight

import (
	"regexp"
	"strings"
)

// Leading transfer/purchase phrasing added by banks in front of the
// merchant name. Stripped repeatedly until none matches, which keeps
// NormalizeMerchant idempotent.
var leadingPhrases = []string{
	"payment to ",
	"purchase at ",
	"direct debit ",
	"card payment ",
	"pos ",
	"sub ",
}

// Trailing legal/billing suffixes that vary between statements of the
// same merchant.
var trailingSuffixes = map[string]bool{
	"ltd":          true,
	"llc":          true,
	"inc":          true,
	"co":           true,
	"corp":         true,
	"plc":          true,
	"gmbh":         true,
	"com":          true,
	"www":          true,
	"subscription": true,
	"billing":      true,
	"recurring":    true,
	"payment":      true,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeMerchant canonicalizes a free-text description into a
// stable grouping key. Pure and total: empty input yields "", and
// normalize(normalize(x)) == normalize(x). Punctuation is folded to
// spaces before phrase stripping so that a second pass sees the same
// text as the first.
func NormalizeMerchant(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	s = strings.Join(strings.Fields(nonAlnum.ReplaceAllString(s, " ")), " ")

	for {
		stripped := false
		for _, p := range leadingPhrases {
			if strings.HasPrefix(s, p) && len(s) > len(p) {
				s = s[len(p):]
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}

	tokens := strings.Fields(s)
	for len(tokens) > 1 && trailingSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}
