// Package relevance assigns coarse priority tiers to raw item text using
// ordered keyword tables. Classification is a pure function: the same text
// and tables always produce the same tier.
package relevance

import (
	"strings"

	"github.com/openonco/scout/internal/types"
)

// TierTables holds ordered substring keyword lists for the high and medium
// tiers. High is evaluated first; the first match wins. Text matching
// neither table is low.
type TierTables struct {
	High   []string
	Medium []string
}

// Classify returns the relevance tier for text. Matching is case-insensitive
// substring containment, high tier first, no score accumulation.
func Classify(text string, tables TierTables) types.Relevance {
	lowered := strings.ToLower(text)

	for _, kw := range tables.High {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return types.RelevanceHigh
		}
	}
	for _, kw := range tables.Medium {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return types.RelevanceMedium
		}
	}
	return types.RelevanceLow
}

// FieldText concatenates the salient fields of an item into the single
// string fed to Classify. Empty fields are skipped.
func FieldText(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
