package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/openonco/scout/internal/types"
)

// Models wrap JSON in markdown fences or surround it with prose often enough
// that a direct parse is just the first attempt, not the only one.
var (
	codeFenceRegex  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	jsonObjectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// parseEnrichment extracts an Enrichment from model output. It tries a
// direct parse, then strips code fences, then pulls the first JSON object
// out of mixed content.
func parseEnrichment(text string) (*types.Enrichment, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty model response")
	}

	if e, err := tryParse(trimmed); err == nil {
		return e, nil
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if e, err := tryParse(strings.TrimSpace(m[1])); err == nil {
			return e, nil
		}
	}

	if m := jsonObjectRegex.FindString(trimmed); m != "" {
		if e, err := tryParse(m); err == nil {
			return e, nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON object in model response")
}

func tryParse(text string) (*types.Enrichment, error) {
	var e types.Enrichment
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
