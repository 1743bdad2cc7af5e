package cache

import (
	"strconv"
	"strings"
)

const prefix = "pricing:"

// KeyArticleList is the key of the cached base price list.
func KeyArticleList() string {
	return prefix + "catalog:articles"
}

// KeyArticle returns the key of one cached article.
func KeyArticle(code string) string {
	return prefix + "catalog:article:" + strings.TrimSpace(code)
}

// KeyProfileRules returns the key of a profile's rule set at a given version.
// Keys are versioned so a committed revision never serves stale rules.
func KeyProfileRules(profileID string, version int64) string {
	return ProfileRulesPattern(profileID) + strconv.FormatInt(version, 10)
}

// ProfileRulesPattern matches every cached version of a profile's rule set.
func ProfileRulesPattern(profileID string) string {
	return prefix + "rules:" + profileID + ":v"
}
