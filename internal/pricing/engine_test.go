package pricing_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-engine/internal/common"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func article(code, price string) pricing.Article {
	return pricing.Article{Code: code, BasePrice: dec(price), Currency: "USD"}
}

func rule(profileID, code string, t pricing.RuleType, value string, minQty int) pricing.Rule {
	return pricing.Rule{ProfileID: profileID, ArticleCode: code, Type: t, Value: dec(value), MinQuantity: minQty}
}

type stepView struct {
	Kind      pricing.StepKind
	Value     string
	ProfileID string
}

func view(steps []pricing.Step) []stepView {
	out := make([]stepView, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepView{Kind: s.Kind, Value: s.Value.String(), ProfileID: s.ProfileID})
	}
	return out
}

func TestScenarioPercentDiscount(t *testing.T) {
	p1 := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P1", Name: "Resellers"},
		Rules:   []pricing.Rule{rule("P1", "A100", pricing.PercentDiscount, "10", 1)},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 1, Profiles: []pricing.ProfileRules{p1}})
	require.NoError(t, err)

	want := []stepView{
		{Kind: pricing.StepBase, Value: "100"},
		{Kind: pricing.StepDiscount, Value: "-10", ProfileID: "P1"},
	}
	if diff := cmp.Diff(want, view(q.Breakdown)); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
	require.True(t, q.UnitPrice.Equal(dec("90")), "unit %s", q.UnitPrice)
	require.True(t, q.TotalPrice.Equal(dec("90")), "total %s", q.TotalPrice)
	require.Equal(t, "USD", q.Currency)
}

func TestScenarioQuantityTier(t *testing.T) {
	p1 := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P1"},
		Rules: []pricing.Rule{
			rule("P1", "A100", pricing.PercentDiscount, "10", 1),
			rule("P1", "A100", pricing.PercentDiscount, "20", 5),
		},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 5, Profiles: []pricing.ProfileRules{p1}})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("80")), "unit %s", q.UnitPrice)
	require.True(t, q.TotalPrice.Equal(dec("400")), "total %s", q.TotalPrice)
	require.Len(t, q.Breakdown, 2)
}

func TestScenarioGlobalWildcardSurcharge(t *testing.T) {
	gp := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "GP", IsGlobal: true},
		Rules:   []pricing.Rule{rule("GP", pricing.Wildcard, pricing.FixedSurcharge, "5", 1)},
	}
	for _, code := range []string{"X1", "Y2"} {
		q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article(code, "50"), Quantity: 3, Profiles: []pricing.ProfileRules{gp}})
		require.NoError(t, err)
		require.True(t, q.UnitPrice.Equal(dec("55")), "unit %s", q.UnitPrice)
		require.Equal(t, pricing.StepSurcharge, q.Breakdown[1].Kind)
		require.Equal(t, "GP", q.Breakdown[1].ProfileID)
	}
}

func TestScenarioSpecialRuleBypassesProfiles(t *testing.T) {
	half := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "HALF"},
		Rules:   []pricing.Rule{rule("HALF", "B200", pricing.PercentDiscount, "50", 1)},
	}
	special := pricing.SpecialRule{ClientID: "C2", ArticleCode: "B200", Type: pricing.FixedPrice, Value: dec("30"), MinQuantity: 1}
	q, err := pricing.Engine{}.Calculate(pricing.Input{
		Article:  article("B200", "80"),
		Quantity: 1,
		Specials: []pricing.SpecialRule{special},
		Profiles: []pricing.ProfileRules{half},
	})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("30")), "unit %s", q.UnitPrice)
	require.Len(t, q.Breakdown, 2)
	require.Equal(t, pricing.StepOverride, q.Breakdown[1].Kind)
}

func TestSpecialRuleBelowTierFallsBackToWildcard(t *testing.T) {
	exact := pricing.SpecialRule{ClientID: "C2", ArticleCode: "B200", Type: pricing.FixedPrice, Value: dec("30"), MinQuantity: 10}
	wildcard := pricing.SpecialRule{ClientID: "C2", ArticleCode: pricing.Wildcard, Type: pricing.PercentDiscount, Value: dec("5"), MinQuantity: 1}
	q, err := pricing.Engine{}.Calculate(pricing.Input{
		Article:  article("B200", "80"),
		Quantity: 2,
		Specials: []pricing.SpecialRule{exact, wildcard},
	})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("76")), "unit %s", q.UnitPrice)
	require.Equal(t, pricing.StepDiscount, q.Breakdown[1].Kind)
}

func TestQuantityBelowEveryTierKeepsBase(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules: []pricing.Rule{
			rule("P", "A100", pricing.PercentDiscount, "10", 10),
			rule("P", pricing.Wildcard, pricing.FixedDiscount, "3", 20),
		},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 4, Profiles: []pricing.ProfileRules{p}})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("100")))
	require.Len(t, q.Breakdown, 1)
}

func TestExactMatchBeatsWildcard(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules: []pricing.Rule{
			rule("P", pricing.Wildcard, pricing.PercentDiscount, "50", 1),
			rule("P", "A100", pricing.PercentDiscount, "10", 1),
		},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 1, Profiles: []pricing.ProfileRules{p}})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("90")), "unit %s", q.UnitPrice)
}

func TestFixedPriceOverridesBaseAndTieBreaksByPriority(t *testing.T) {
	low := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "A-LOW", Priority: 1},
		Rules:   []pricing.Rule{rule("A-LOW", "A100", pricing.FixedPrice, "70", 1)},
	}
	high := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "Z-HIGH", Priority: 5},
		Rules:   []pricing.Rule{rule("Z-HIGH", "A100", pricing.FixedPrice, "60", 1)},
	}
	disc := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "D"},
		Rules:   []pricing.Rule{rule("D", pricing.Wildcard, pricing.PercentDiscount, "10", 1)},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "1000"), Quantity: 2, Profiles: []pricing.ProfileRules{low, disc, high}})
	require.NoError(t, err)

	want := []stepView{
		{Kind: pricing.StepBase, Value: "1000"},
		{Kind: pricing.StepOverride, Value: "60", ProfileID: "Z-HIGH"},
		{Kind: pricing.StepDiscount, Value: "-6", ProfileID: "D"},
		{Kind: pricing.StepInfo, Value: "0", ProfileID: "A-LOW"},
	}
	if diff := cmp.Diff(want, view(q.Breakdown)); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
	require.True(t, q.UnitPrice.Equal(dec("54")), "unit %s", q.UnitPrice)
	require.True(t, q.TotalPrice.Equal(dec("108")), "total %s", q.TotalPrice)
}

func TestEqualPriorityTieBreaksByID(t *testing.T) {
	b := pricing.ProfileRules{Profile: pricing.Profile{ID: "B"}, Rules: []pricing.Rule{rule("B", "A100", pricing.FixedPrice, "40", 1)}}
	a := pricing.ProfileRules{Profile: pricing.Profile{ID: "A"}, Rules: []pricing.Rule{rule("A", "A100", pricing.FixedPrice, "45", 1)}}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 1, Profiles: []pricing.ProfileRules{b, a}})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("45")), "unit %s", q.UnitPrice)
}

func TestSurchargesApplyAfterDiscounts(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules:   []pricing.Rule{rule("P", "A100", pricing.FixedDiscount, "20", 1)},
	}
	g := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "G", IsGlobal: true},
		Rules:   []pricing.Rule{rule("G", pricing.Wildcard, pricing.PercentSurcharge, "10", 1)},
	}
	q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 1, Profiles: []pricing.ProfileRules{g, p}})
	require.NoError(t, err)
	require.True(t, q.UnitPrice.Equal(dec("88")), "unit %s", q.UnitPrice)
	require.Equal(t, []pricing.StepKind{pricing.StepBase, pricing.StepDiscount, pricing.StepSurcharge},
		[]pricing.StepKind{q.Breakdown[0].Kind, q.Breakdown[1].Kind, q.Breakdown[2].Kind})
}

func TestUnitPriceNeverNegative(t *testing.T) {
	cases := []struct {
		name  string
		rules []pricing.Rule
	}{
		{"huge fixed discount", []pricing.Rule{rule("P", "A100", pricing.FixedDiscount, "1000000", 1)}},
		{"percent over hundred", []pricing.Rule{rule("P", "A100", pricing.PercentDiscount, "250", 1)}},
		{"negative surcharge", []pricing.Rule{rule("P", "A100", pricing.FixedSurcharge, "-500", 1)}},
		{"negative fixed price", []pricing.Rule{rule("P", "A100", pricing.FixedPrice, "-3", 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := pricing.ProfileRules{Profile: pricing.Profile{ID: "P"}, Rules: tc.rules}
			q, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "100"), Quantity: 3, Profiles: []pricing.ProfileRules{p}})
			require.NoError(t, err)
			require.False(t, q.UnitPrice.IsNegative(), "unit %s", q.UnitPrice)
			require.False(t, q.TotalPrice.IsNegative(), "total %s", q.TotalPrice)
		})
	}
}

func TestTierMonotonicity(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules: []pricing.Rule{
			rule("P", "A100", pricing.PercentDiscount, "5", 1),
			rule("P", "A100", pricing.PercentDiscount, "10", 10),
			rule("P", "A100", pricing.PercentDiscount, "15", 50),
		},
	}
	for _, threshold := range []int{10, 50} {
		below, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "37.50"), Quantity: threshold - 1, Profiles: []pricing.ProfileRules{p}})
		require.NoError(t, err)
		at, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "37.50"), Quantity: threshold, Profiles: []pricing.ProfileRules{p}})
		require.NoError(t, err)
		require.True(t, at.UnitPrice.LessThanOrEqual(below.UnitPrice), "threshold %d: %s > %s", threshold, at.UnitPrice, below.UnitPrice)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	in := pricing.Input{
		Article:  article("A100", "99.99"),
		Quantity: 7,
		Profiles: []pricing.ProfileRules{
			{Profile: pricing.Profile{ID: "P"}, Rules: []pricing.Rule{rule("P", "A100", pricing.PercentDiscount, "12.5", 5)}},
			{Profile: pricing.Profile{ID: "G"}, Rules: []pricing.Rule{rule("G", pricing.Wildcard, pricing.PercentSurcharge, "3", 1)}},
		},
	}
	first, err := pricing.Engine{}.Calculate(in)
	require.NoError(t, err)
	second, err := pricing.Engine{}.Calculate(in)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("quotes differ:\n%s", diff)
	}
}

func TestRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -1} {
		_, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "10"), Quantity: qty})
		require.True(t, errors.Is(err, common.ErrValidation), "qty %d: %v", qty, err)
	}
}

func TestDuplicateRuleKeyIsConfigurationError(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules: []pricing.Rule{
			rule("P", "A100", pricing.PercentDiscount, "10", 1),
			rule("P", "A100", pricing.FixedDiscount, "2", 1),
		},
	}
	_, err := pricing.Engine{}.Calculate(pricing.Input{Article: article("A100", "10"), Quantity: 1, Profiles: []pricing.ProfileRules{p}})
	require.True(t, errors.Is(err, common.ErrConfiguration), "got %v", err)
}

func TestPercentRoundingUsesScale(t *testing.T) {
	p := pricing.ProfileRules{
		Profile: pricing.Profile{ID: "P"},
		Rules:   []pricing.Rule{rule("P", "A100", pricing.PercentDiscount, "33.333", 1)},
	}
	q, err := pricing.Engine{Scale: 2}.Calculate(pricing.Input{Article: article("A100", "10"), Quantity: 3, Profiles: []pricing.ProfileRules{p}})
	require.NoError(t, err)
	require.Equal(t, "-3.33", q.Breakdown[1].Value.String())
	require.True(t, q.UnitPrice.Equal(dec("6.67")), "unit %s", q.UnitPrice)
	require.True(t, q.TotalPrice.Equal(dec("20.01")), "total %s", q.TotalPrice)
}
