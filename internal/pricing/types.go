package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Wildcard is the article code of rules that apply to any article lacking a
// more specific rule.
const Wildcard = "TOTAL"

// RuleType enumerates the supported price adjustments.
type RuleType string

const (
	FixedPrice       RuleType = "FIXED_PRICE"
	PercentDiscount  RuleType = "PERCENT_DISCOUNT"
	PercentSurcharge RuleType = "PERCENT_SURCHARGE"
	FixedDiscount    RuleType = "FIXED_DISCOUNT"
	FixedSurcharge   RuleType = "FIXED_SURCHARGE"
)

// RuleTypes lists every RuleType in declaration order.
func RuleTypes() []RuleType {
	return []RuleType{FixedPrice, PercentDiscount, PercentSurcharge, FixedDiscount, FixedSurcharge}
}

// Valid reports whether t is one of the declared rule types.
func (t RuleType) Valid() bool {
	switch t {
	case FixedPrice, PercentDiscount, PercentSurcharge, FixedDiscount, FixedSurcharge:
		return true
	default:
		return false
	}
}

// ParseRuleType normalises s (case-insensitive) into a RuleType.
func ParseRuleType(s string) (RuleType, error) {
	t := RuleType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown rule type %q", s)
	}
	return t, nil
}

// StepKind classifies a breakdown step.
type StepKind string

const (
	StepBase      StepKind = "BASE"
	StepOverride  StepKind = "OVERRIDE"
	StepDiscount  StepKind = "DISCOUNT"
	StepSurcharge StepKind = "SURCHARGE"
	StepInfo      StepKind = "INFO"
)

func (k StepKind) order() int {
	switch k {
	case StepBase:
		return 0
	case StepOverride:
		return 1
	case StepDiscount:
		return 2
	case StepSurcharge:
		return 3
	default:
		return 4
	}
}

// Article is a catalog entry with its base price.
type Article struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Family      string          `json:"family"`
	BasePrice   decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

// Profile is a named bundle of rules. Global profiles apply to every client.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsGlobal    bool   `json:"isGlobal"`
	Priority    int    `json:"priority"`
	Version     int64  `json:"version"`
}

// Rule is one adjustment inside a profile, keyed by (ProfileID, ArticleCode, MinQuantity).
type Rule struct {
	ProfileID   string          `json:"profileId"`
	ArticleCode string          `json:"articleCode"`
	Type        RuleType        `json:"ruleType"`
	Value       decimal.Decimal `json:"value"`
	MinQuantity int             `json:"minQuantity"`
}

// Key identifies the rule inside its profile.
func (r Rule) Key() RuleKey {
	return RuleKey{ArticleCode: r.ArticleCode, MinQuantity: r.MinQuantity}
}

// RuleKey is the per-profile uniqueness key of a rule.
type RuleKey struct {
	ArticleCode string
	MinQuantity int
}

// SpecialRule is a client exception that bypasses profile layering.
type SpecialRule struct {
	ClientID    string          `json:"clientId"`
	ArticleCode string          `json:"articleCode"`
	Type        RuleType        `json:"ruleType"`
	Value       decimal.Decimal `json:"value"`
	MinQuantity int             `json:"minQuantity"`
}

// Step is one entry of the audit breakdown.
type Step struct {
	Kind        StepKind        `json:"kind"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	ProfileID   string          `json:"profileId,omitempty"`
}

// Quote is the computed price of an article for a quantity.
type Quote struct {
	ArticleCode string          `json:"code"`
	Quantity    int             `json:"qty"`
	Currency    string          `json:"currency"`
	Breakdown   []Step          `json:"breakdown"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// ProfileRules pairs a profile with its committed rule set.
type ProfileRules struct {
	Profile Profile
	Rules   []Rule
}
