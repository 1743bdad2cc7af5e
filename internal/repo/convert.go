package repo

import (
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// ArticleFromRow maps a catalog row to the pricing model.
func ArticleFromRow(row dbgen.Article) pricing.Article {
	return pricing.Article{
		Code:        row.Code,
		Description: row.Description,
		Family:      row.Family,
		BasePrice:   row.BasePrice,
		Currency:    row.Currency,
	}
}

// ProfileFromRow maps a profile row to the pricing model.
func ProfileFromRow(row dbgen.PriceProfile) pricing.Profile {
	return pricing.Profile{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsGlobal:    row.IsGlobal,
		Priority:    int(row.Priority),
		Version:     row.Version,
	}
}

// ProfilesFromRows maps profile rows preserving order.
func ProfilesFromRows(rows []dbgen.PriceProfile) []pricing.Profile {
	out := make([]pricing.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, ProfileFromRow(row))
	}
	return out
}

// RuleFromRow maps a rule row to the pricing model.
func RuleFromRow(row dbgen.PriceRule) pricing.Rule {
	return pricing.Rule{
		ProfileID:   row.ProfileID,
		ArticleCode: row.ArticleCode,
		Type:        pricing.RuleType(row.RuleType),
		Value:       row.Value,
		MinQuantity: int(row.MinQuantity),
	}
}

// RulesFromRows maps rule rows preserving order.
func RulesFromRows(rows []dbgen.PriceRule) []pricing.Rule {
	out := make([]pricing.Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, RuleFromRow(row))
	}
	return out
}

// UpsertParams maps a rule to its upsert arguments.
func UpsertParams(r pricing.Rule) dbgen.UpsertRuleParams {
	return dbgen.UpsertRuleParams{
		ProfileID:   r.ProfileID,
		ArticleCode: r.ArticleCode,
		RuleType:    string(r.Type),
		Value:       r.Value,
		MinQuantity: int32(r.MinQuantity),
	}
}

// SpecialFromRow maps a special price row to the pricing model.
func SpecialFromRow(row dbgen.SpecialPrice) pricing.SpecialRule {
	return pricing.SpecialRule{
		ClientID:    row.ClientID,
		ArticleCode: row.ArticleCode,
		Type:        pricing.RuleType(row.RuleType),
		Value:       row.Value,
		MinQuantity: int(row.MinQuantity),
	}
}

// SpecialsFromRows maps special price rows preserving order.
func SpecialsFromRows(rows []dbgen.SpecialPrice) []pricing.SpecialRule {
	out := make([]pricing.SpecialRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, SpecialFromRow(row))
	}
	return out
}
