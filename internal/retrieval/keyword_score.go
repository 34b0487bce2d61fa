package retrieval

import "strings"

// Intra-keyword score weights: density, coverage, position.
const (
	densityWeight  = 0.4
	coverageWeight = 0.4
	positionWeight = 0.2

	// perKeywordPositionBonus caps each matched keyword's contribution to
	// the position component; keywords near the start of the text earn more.
	perKeywordPositionBonus = 0.2
)

// KeywordScore is the result of scoring one text against query keywords.
type KeywordScore struct {
	Score   float64
	Matched []string
}

// ScoreKeywords computes the keyword relevance of text: a weighted sum of
// keyword density (occurrences over words), coverage (matched over total
// query keywords), and a position bonus for early occurrences. The score
// is clamped to [0,1]. These weights are internal to keyword scoring and
// distinct from the semantic-vs-keyword fusion weights.
func ScoreKeywords(text string, keywords []string) KeywordScore {
	if text == "" || len(keywords) == 0 {
		return KeywordScore{}
	}

	lower := strings.ToLower(text)
	words := len(strings.Fields(lower))
	if words == 0 {
		return KeywordScore{}
	}

	var matched []string
	occurrences := 0
	positionBonus := 0.0

	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		pos := strings.Index(lower, kwLower)
		if pos < 0 {
			continue
		}

		matched = append(matched, kw)
		occurrences += strings.Count(lower, kwLower)

		normalizedPos := float64(pos) / float64(len(lower))
		positionBonus += (1.0 - normalizedPos) * perKeywordPositionBonus
	}

	if len(matched) == 0 {
		return KeywordScore{}
	}

	density := float64(occurrences) / float64(words)
	coverage := float64(len(matched)) / float64(len(keywords))

	score := density*densityWeight + coverage*coverageWeight + positionBonus*positionWeight
	return KeywordScore{
		Score:   clamp(score, 0, 1),
		Matched: matched,
	}
}
