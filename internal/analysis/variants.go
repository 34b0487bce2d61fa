package analysis

import (
	"strings"

	"github.com/insurelex/answer-engine/internal/legal"
)

// intentExpansions appends retrieval hint terms per intent when building
// search variants.
var intentExpansions = map[legal.Intent]string{
	legal.IntentExclusion:  "exclusions not covered limitations",
	legal.IntentCoverage:   "coverage benefits covered",
	legal.IntentTemporal:   "waiting period duration time limit",
	legal.IntentFinancial:  "amount premium deductible payment",
	legal.IntentClaim:      "claim process submission",
	legal.IntentProcedural: "procedure process steps",
}

// BuildVariants produces up to max distinct search queries for the
// semantic fan-out: the normalized question, category and intent
// expansions, and a bare keyword query. Order is deterministic and the
// normalized question always comes first.
func BuildVariants(qc QueryContext, max int) []string {
	if max < 1 {
		max = 1
	}

	candidates := []string{qc.Normalized}

	if len(qc.MatchedCategories) > 0 {
		primary := qc.MatchedCategories[0]
		forms := legal.CategoryForms[primary]
		n := len(forms)
		if n > 2 {
			n = 2
		}
		candidates = append(candidates, qc.Normalized+" "+strings.Join(forms[:n], " "))
	}

	if expansion, ok := intentExpansions[qc.Intent]; ok && qc.Intent != legal.IntentInformationSeeking {
		candidates = append(candidates, qc.Normalized+" "+expansion)
	}

	for _, sub := range qc.SubQuestions {
		if sub != qc.Normalized && len(qc.SubQuestions) > 1 {
			candidates = append(candidates, sub)
		}
	}

	if len(qc.Keywords) >= 2 {
		n := len(qc.Keywords)
		if n > 3 {
			n = 3
		}
		candidates = append(candidates, strings.Join(qc.Keywords[:n], " "))
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, max)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		variants = append(variants, c)
		if len(variants) == max {
			break
		}
	}

	return variants
}
