// Package fixtures loads pricing data sets from YAML and writes them
// through the domain services, so seeded data obeys the same validation
// and revision rules as API writes.
package fixtures

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pricing-engine/internal/app"
	"github.com/noah-isme/pricing-engine/internal/catalog"
	"github.com/noah-isme/pricing-engine/internal/profile"
	"github.com/noah-isme/pricing-engine/internal/special"
)

// File is the fixture document.
type File struct {
	Articles    []Article           `yaml:"articles"`
	Profiles    []Profile           `yaml:"profiles"`
	Assignments map[string][]string `yaml:"assignments"`
	Specials    map[string][]Rule   `yaml:"specials"`
}

// Article is one catalog entry.
type Article struct {
	Code        string `yaml:"code"`
	Price       string `yaml:"price"`
	Currency    string `yaml:"currency"`
	Description string `yaml:"description"`
	Family      string `yaml:"family"`
}

// Profile is a price profile with its rules.
type Profile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Global      bool   `yaml:"global"`
	Priority    int    `yaml:"priority"`
	Rules       []Rule `yaml:"rules"`
}

// Rule is shared by profile and special rules.
type Rule struct {
	Article     string `yaml:"article"`
	Type        string `yaml:"type"`
	Value       string `yaml:"value"`
	MinQuantity int    `yaml:"minQuantity"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Articles    int
	Profiles    int
	Rules       int
	Assignments int
	Specials    int
}

// ReadFile decodes the fixture at path.
func ReadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a fixture document. Unknown keys are rejected.
func Decode(r io.Reader) (File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return File{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return file, nil
}

// Apply writes articles, then profiles, then assignments, then specials.
// Clients are processed in sorted order so reruns produce identical events.
func Apply(ctx context.Context, svc *app.Services, file File) (Summary, error) {
	var sum Summary
	for _, a := range file.Articles {
		price, err := parseDecimal(a.Price, "article %s price", a.Code)
		if err != nil {
			return sum, err
		}
		if _, err := svc.Catalog.Upsert(ctx, catalog.PriceInput{
			Code:        a.Code,
			Price:       price,
			Currency:    a.Currency,
			Description: a.Description,
			Family:      a.Family,
		}); err != nil {
			return sum, fmt.Errorf("article %s: %w", a.Code, err)
		}
		sum.Articles++
	}

	for _, p := range file.Profiles {
		items := make([]profile.RuleInput, 0, len(p.Rules))
		for _, r := range p.Rules {
			value, err := parseDecimal(r.Value, "profile %s rule %s value", p.ID, r.Article)
			if err != nil {
				return sum, err
			}
			items = append(items, profile.RuleInput{ArticleCode: r.Article, RuleType: r.Type, Value: value, MinQuantity: r.MinQuantity})
		}
		if _, err := svc.Profiles.SaveProfile(ctx, profile.SaveInput{
			ProfileInput: profile.ProfileInput{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				IsGlobal:    p.Global,
				Priority:    p.Priority,
			},
			Items: items,
		}); err != nil {
			return sum, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		sum.Profiles++
		sum.Rules += len(items)
	}

	for _, clientID := range sortedKeys(file.Assignments) {
		kept, err := svc.Assignments.SetAssignments(ctx, clientID, file.Assignments[clientID])
		if err != nil {
			return sum, fmt.Errorf("assignments of %s: %w", clientID, err)
		}
		sum.Assignments += len(kept)
	}

	for _, clientID := range sortedKeys(file.Specials) {
		items := make([]special.RuleInput, 0, len(file.Specials[clientID]))
		for _, r := range file.Specials[clientID] {
			value, err := parseDecimal(r.Value, "special %s/%s value", clientID, r.Article)
			if err != nil {
				return sum, err
			}
			items = append(items, special.RuleInput{ArticleCode: r.Article, RuleType: r.Type, Value: value, MinQuantity: r.MinQuantity})
		}
		rows, err := svc.Specials.ReplaceClientRules(ctx, clientID, items)
		if err != nil {
			return sum, fmt.Errorf("specials of %s: %w", clientID, err)
		}
		sum.Specials += len(rows)
	}
	return sum, nil
}

func parseDecimal(raw, format string, args ...any) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf(format+": %w", append(args, err)...)
	}
	return d, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
