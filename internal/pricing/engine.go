package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/common"
)

// DefaultScale is the number of decimal places money values are rounded to.
const DefaultScale int32 = 2

var hundred = decimal.NewFromInt(100)

// Input carries everything needed to price one article. Specials are the
// client's special-rule candidates in lookup order (exact code first, then
// the wildcard); Profiles are the effective profiles with their rules.
type Input struct {
	Article  Article
	Quantity int
	Specials []SpecialRule
	Profiles []ProfileRules
}

// Engine resolves quotes from already-loaded inputs. It performs no I/O and
// is safe for concurrent use.
type Engine struct {
	Scale int32
}

type match struct {
	rule    Rule
	profile Profile
}

// Calculate prices in.Article for in.Quantity and returns the quote with its
// ordered breakdown.
//
// When several profiles match with a FIXED_PRICE rule, the first profile in
// (priority desc, id asc) order sets the price, so the highest priority
// wins. This differs from a last-applied-wins iteration over the same order;
// the losing fixed prices are kept as INFO steps.
func (e Engine) Calculate(in Input) (Quote, error) {
	if in.Quantity <= 0 {
		return Quote{}, common.Validation("quantity must be greater than zero").
			WithDetails(map[string]any{"field": "qty", "value": in.Quantity})
	}
	scale := e.scale()
	base := in.Article.BasePrice
	steps := []Step{{Kind: StepBase, Description: "base price", Value: base}}

	if special, ok := selectSpecial(in.Specials, in.Quantity); ok {
		steps = append(steps, specialStep(special, base, scale))
		return e.finish(in, steps), nil
	}

	var fixed, discounts, surcharges []match
	for _, pr := range orderProfiles(in.Profiles) {
		if err := checkDuplicateKeys(pr); err != nil {
			return Quote{}, err
		}
		rule, ok := bestMatch(pr.Rules, in.Article.Code, in.Quantity)
		if !ok {
			continue
		}
		m := match{rule: rule, profile: pr.Profile}
		switch rule.Type {
		case FixedPrice:
			fixed = append(fixed, m)
		case PercentDiscount, FixedDiscount:
			discounts = append(discounts, m)
		case PercentSurcharge, FixedSurcharge:
			surcharges = append(surcharges, m)
		}
	}

	current := base
	var info []Step
	if len(fixed) > 0 {
		winner := fixed[0]
		current = winner.rule.Value.Round(scale)
		steps = append(steps, Step{
			Kind:        StepOverride,
			Description: "fixed price from " + profileLabel(winner.profile),
			Value:       current,
			ProfileID:   winner.profile.ID,
		})
		for _, m := range fixed[1:] {
			info = append(info, Step{
				Kind:        StepInfo,
				Description: fmt.Sprintf("fixed price %s from %s superseded by %s", m.rule.Value.String(), profileLabel(m.profile), profileLabel(winner.profile)),
				Value:       decimal.Zero,
				ProfileID:   m.profile.ID,
			})
		}
	}

	total := decimal.Zero
	for _, m := range discounts {
		delta := m.rule.Value.Round(scale).Neg()
		desc := m.rule.Value.String() + " off from " + profileLabel(m.profile)
		if m.rule.Type == PercentDiscount {
			delta = percentOf(current, m.rule.Value, scale).Neg()
			desc = m.rule.Value.String() + "% discount from " + profileLabel(m.profile)
		}
		total = total.Add(delta)
		steps = append(steps, Step{Kind: StepDiscount, Description: desc, Value: delta, ProfileID: m.profile.ID})
	}

	net := floorZero(current.Add(total))
	for _, m := range surcharges {
		delta := m.rule.Value.Round(scale)
		desc := m.rule.Value.String() + " surcharge from " + profileLabel(m.profile)
		if m.rule.Type == PercentSurcharge {
			delta = percentOf(net, m.rule.Value, scale)
			desc = m.rule.Value.String() + "% surcharge from " + profileLabel(m.profile)
		}
		steps = append(steps, Step{Kind: StepSurcharge, Description: desc, Value: delta, ProfileID: m.profile.ID})
	}
	steps = append(steps, info...)
	return e.finish(in, steps), nil
}

func (e Engine) finish(in Input, steps []Step) Quote {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Kind.order() < steps[j].Kind.order() })
	unit := Fold(steps, nil).Round(e.scale())
	return Quote{
		ArticleCode: in.Article.Code,
		Quantity:    in.Quantity,
		Currency:    in.Article.Currency,
		Breakdown:   steps,
		UnitPrice:   unit,
		TotalPrice:  unit.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(e.scale()),
	}
}

// scale falls back to DefaultScale when unset.
func (e Engine) scale() int32 {
	if e.Scale <= 0 {
		return DefaultScale
	}
	return e.Scale
}

// selectSpecial returns the first candidate whose tier is reached by qty.
func selectSpecial(candidates []SpecialRule, qty int) (SpecialRule, bool) {
	for _, c := range candidates {
		if minQuantity(c.MinQuantity) <= qty && c.Type.Valid() {
			return c, true
		}
	}
	return SpecialRule{}, false
}

func specialStep(rule SpecialRule, base decimal.Decimal, scale int32) Step {
	label := "special price for client " + rule.ClientID
	switch rule.Type {
	case FixedPrice:
		return Step{Kind: StepOverride, Description: label, Value: rule.Value.Round(scale)}
	case PercentDiscount:
		return Step{Kind: StepDiscount, Description: rule.Value.String() + "% " + label, Value: percentOf(base, rule.Value, scale).Neg()}
	case FixedDiscount:
		return Step{Kind: StepDiscount, Description: label, Value: rule.Value.Round(scale).Neg()}
	case PercentSurcharge:
		return Step{Kind: StepSurcharge, Description: rule.Value.String() + "% " + label, Value: percentOf(base, rule.Value, scale)}
	default:
		return Step{Kind: StepSurcharge, Description: label, Value: rule.Value.Round(scale)}
	}
}

// bestMatch picks the rule of one profile that applies to code at qty.
// Qualifying exact-code rules beat qualifying wildcard rules; within the
// chosen specificity the highest reached tier wins.
func bestMatch(rules []Rule, code string, qty int) (Rule, bool) {
	var exact, wildcard *Rule
	for i := range rules {
		r := &rules[i]
		if !r.Type.Valid() || minQuantity(r.MinQuantity) > qty {
			continue
		}
		switch {
		case r.ArticleCode == code:
			if exact == nil || r.MinQuantity > exact.MinQuantity {
				exact = r
			}
		case strings.EqualFold(r.ArticleCode, Wildcard):
			if wildcard == nil || r.MinQuantity > wildcard.MinQuantity {
				wildcard = r
			}
		}
	}
	if exact != nil {
		return *exact, true
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Rule{}, false
}

// orderProfiles returns the profiles sorted by (priority desc, id asc) with
// duplicate ids removed.
func orderProfiles(in []ProfileRules) []ProfileRules {
	seen := make(map[string]struct{}, len(in))
	out := make([]ProfileRules, 0, len(in))
	for _, pr := range in {
		if _, dup := seen[pr.Profile.ID]; dup {
			continue
		}
		seen[pr.Profile.ID] = struct{}{}
		out = append(out, pr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Profile.Priority != out[j].Profile.Priority {
			return out[i].Profile.Priority > out[j].Profile.Priority
		}
		return out[i].Profile.ID < out[j].Profile.ID
	})
	return out
}

func checkDuplicateKeys(pr ProfileRules) error {
	seen := make(map[RuleKey]struct{}, len(pr.Rules))
	for _, r := range pr.Rules {
		key := RuleKey{ArticleCode: r.ArticleCode, MinQuantity: minQuantity(r.MinQuantity)}
		if _, dup := seen[key]; dup {
			return common.Configuration("profile %s has duplicate rules for %s at min quantity %d", pr.Profile.ID, key.ArticleCode, key.MinQuantity).
				WithDetails(map[string]any{"profileId": pr.Profile.ID, "articleCode": key.ArticleCode, "minQuantity": key.MinQuantity})
		}
		seen[key] = struct{}{}
	}
	return nil
}

func percentOf(amount, pct decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(scale)
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func minQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

func profileLabel(p Profile) string {
	if strings.TrimSpace(p.Name) != "" {
		return "profile " + p.Name
	}
	return "profile " + p.ID
}
