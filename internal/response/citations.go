package response

import (
	"regexp"
	"sort"
	"strings"
)

// clausePatterns detect clause identifiers in source text and answers.
// Order matters: named forms win over bare numeric ones so "clause 4.2"
// is captured whole rather than as "4.2".
var clausePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclause\s+\d+(?:\.\d+)*[a-z]?\b`),
	regexp.MustCompile(`(?i)\bsection\s+\d+(?:\.\d+)*[a-z]?\b`),
	regexp.MustCompile(`(?i)\barticle\s+\d+(?:\.\d+)*[a-z]?\b`),
	regexp.MustCompile(`(?i)\bparagraph\s+\d+(?:\.\d+)*[a-z]?\b`),
	regexp.MustCompile(`\b\d+\.\d+(?:\.\d+)*\b`),
	regexp.MustCompile(`\b\d+[a-z]\b`),
}

// ExtractClauseIDs returns the lowercased clause identifiers found in
// text, deduplicated, in order of first appearance. Named matches mask
// the numeric span they cover, so "Clause 4.2" yields one identifier.
func ExtractClauseIDs(text string) []string {
	if text == "" {
		return nil
	}

	type span struct{ start, end int }
	var taken []span

	overlaps := func(start, end int) bool {
		for _, s := range taken {
			if start < s.end && end > s.start {
				return true
			}
		}
		return false
	}

	type hit struct {
		start int
		id    string
	}
	var hits []hit

	for _, pattern := range clausePatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			taken = append(taken, span{loc[0], loc[1]})
			id := strings.ToLower(strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "))
			hits = append(hits, hit{loc[0], id})
		}
	}

	// Restore document order across patterns.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].start > hits[j].start; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}

	seen := make(map[string]struct{}, len(hits))
	var ids []string
	for _, h := range hits {
		if _, ok := seen[h.id]; ok {
			continue
		}
		seen[h.id] = struct{}{}
		ids = append(ids, h.id)
	}
	return ids
}

// CrossReference links the clause identifiers of each source against
// the answer: an identifier is found_in_response when the answer
// mentions it (case-insensitively).
func CrossReference(sourceClauses map[string][]string, answer string) []ClauseReference {
	lowerAnswer := strings.ToLower(answer)

	chunkIDs := make([]string, 0, len(sourceClauses))
	for chunkID := range sourceClauses {
		chunkIDs = append(chunkIDs, chunkID)
	}
	sort.Strings(chunkIDs)

	var refs []ClauseReference
	for _, chunkID := range chunkIDs {
		for _, id := range sourceClauses[chunkID] {
			refs = append(refs, ClauseReference{
				Identifier:      id,
				SourceChunkID:   chunkID,
				FoundInResponse: strings.Contains(lowerAnswer, id),
			})
		}
	}
	return refs
}

// CitationCount counts the clause identifiers present in the answer.
func CitationCount(answer string) int {
	return len(ExtractClauseIDs(answer))
}
