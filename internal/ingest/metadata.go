package ingest

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/insurelex/answer-engine/internal/legal"
)

// legalDensityFloor is the density above which a chunk is tagged as
// belonging to a legal document.
const legalDensityFloor = 0.01

// legalTermPatterns are whole-word matchers for the general legal
// vocabulary, compiled once.
var legalTermPatterns = compileLegalTerms()

type termPattern struct {
	term    string
	pattern *regexp.Regexp
}

func compileLegalTerms() []termPattern {
	patterns := make([]termPattern, 0, len(legal.GeneralLegalTerms))
	for _, term := range legal.GeneralLegalTerms {
		patterns = append(patterns, termPattern{
			term:    term,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`),
		})
	}
	return patterns
}

// ExtractLegalTerms returns every legal-term occurrence in text, one
// entry per occurrence, in document order. The flat list (rather than a
// term-to-count mapping) is what the vector index metadata accepts.
func ExtractLegalTerms(text string) []string {
	lower := strings.ToLower(text)

	type occurrence struct {
		pos  int
		term string
	}

	var found []occurrence
	for _, tp := range legalTermPatterns {
		for _, loc := range tp.pattern.FindAllStringIndex(lower, -1) {
			found = append(found, occurrence{pos: loc[0], term: tp.term})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	terms := make([]string, len(found))
	for i, o := range found {
		terms[i] = o.term
	}
	return terms
}

// BuildMetadata flattens a chunk into index metadata. Values are limited
// to strings, numbers, booleans, and lists of strings; mappings are never
// emitted.
func BuildMetadata(c Chunk) map[string]interface{} {
	meta := map[string]interface{}{
		"doc_id":            c.DocID,
		"doc_title":         truncate(c.DocTitle, 100),
		"doc_type":          c.DocType,
		"chunk_id":          c.ChunkID,
		"section_anchor":    c.SectionAnchor,
		"section_title":     truncate(c.SectionTitle, 50),
		"word_count":        c.WordCount,
		"chunking_method":   string(c.Method),
		"legal_terms":       append([]string(nil), c.LegalTerms...),
		"legal_density":     c.LegalDensity,
		"is_legal_document": c.LegalDensity > legalDensityFloor,
		"text":              c.Text,
		"indexed_at":        time.Now().UTC().Format("2006-01-02"),
	}

	if c.Page > 0 {
		meta["page"] = c.Page
	}

	return meta
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
