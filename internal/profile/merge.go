package profile

import (
	"strings"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// Mode is the conflict policy of a bulk rule application.
type Mode string

const (
	// ModeAdd inserts only where no rule exists for the key.
	ModeAdd Mode = "ADD"
	// ModeUpdate overwrites only existing rules.
	ModeUpdate Mode = "UPDATE"
	// ModeReplace upserts every code.
	ModeReplace Mode = "REPLACE"
)

// ParseMode normalises s into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeAdd, ModeUpdate, ModeReplace:
		return m, true
	default:
		return "", false
	}
}

// BulkResult counts what a bulk application did.
type BulkResult struct {
	Added   int   `json:"added"`
	Updated int   `json:"updated"`
	Skipped int   `json:"skipped"`
	Version int64 `json:"version"`
}

// planBulk decides, per distinct code, whether template applies to it under
// mode. existing is the profile's committed rule set.
func planBulk(existing []pricing.Rule, codes []string, template pricing.Rule, mode Mode) ([]pricing.Rule, BulkResult) {
	index := make(map[pricing.RuleKey]struct{}, len(existing))
	for _, r := range existing {
		index[r.Key()] = struct{}{}
	}
	var (
		upserts []pricing.Rule
		result  BulkResult
	)
	for _, code := range dedupe(codes) {
		rule := template
		rule.ArticleCode = code
		_, exists := index[rule.Key()]
		switch {
		case mode == ModeAdd && exists, mode == ModeUpdate && !exists:
			result.Skipped++
			continue
		case exists:
			result.Updated++
		default:
			result.Added++
		}
		upserts = append(upserts, rule)
	}
	return upserts, result
}

// dedupe trims codes and drops blanks and repeats, keeping first-seen order.
func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
