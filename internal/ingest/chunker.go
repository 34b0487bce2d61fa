// Package ingest converts raw document text into typed, metadata-rich
// chunks and writes them to the document store and vector index.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
)

// ChunkMethod names the segmentation strategy that produced a chunk.
type ChunkMethod string

// Chunking methods.
const (
	MethodPolicySection ChunkMethod = "policy_section"
	MethodLegalSection  ChunkMethod = "legal_section"
	MethodSlidingWindow ChunkMethod = "sliding_window"
)

// Chunk is a contiguous text fragment with its structural metadata.
// Chunks are created during ingestion and never mutated.
type Chunk struct {
	ChunkID       string
	DocID         string
	DocTitle      string
	DocType       string
	SectionAnchor string
	SectionTitle  string
	Page          int
	WordCount     int
	LegalDensity  float64
	LegalTerms    []string
	Method        ChunkMethod
	Text          string
}

// ChunkerConfig holds sliding-window parameters, in whitespace tokens.
type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Chunker segments cleaned document text into ordered chunks. The
// strategy is chosen from the declared document type; documents without
// recognizable structure fall back to the sliding window.
type Chunker struct {
	config ChunkerConfig
}

// Heading patterns. Policy headings are numbered ("1.2 EXCLUSIONS");
// legal headings are ARTICLE/SECTION/CLAUSE N or a numbered all-caps line.
var (
	policyHeadingRe = regexp.MustCompile(`(?m)^\d+(\.\d+)?\s+[A-Z][^\n]*$`)

	legalHeadingRes = []*regexp.Regexp{
		regexp.MustCompile(`(?mi)^(?:ARTICLE|SECTION|CLAUSE)\s+\d+[^\n]*$`),
		regexp.MustCompile(`(?m)^\d+\.\s+[A-Z][A-Z\s]+$`),
	}

	sectionAnchorRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)
	legalAnchorRe   = regexp.MustCompile(`(?i)^(?:ARTICLE|SECTION|CLAUSE)\s+(\d+)`)
)

// NewChunker creates a chunker, backfilling the 800/300 defaults.
func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize * 3 / 8
	}
	return &Chunker{config: cfg}
}

// Chunk segments text for the given document. Empty input yields an
// empty slice, not an error. Source order is preserved.
func (c *Chunker) Chunk(docID, docTitle, docType, text string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var chunks []Chunk
	switch method(docType) {
	case MethodPolicySection:
		chunks = c.chunkBySections(docID, docTitle, docType, trimmed, MethodPolicySection, policyHeadingRe)
	case MethodLegalSection:
		chunks = c.chunkByLegalSections(docID, docTitle, docType, trimmed)
	}

	// No structure detected: sliding window over the whole text.
	if len(chunks) == 0 {
		chunks = c.chunkBySlidingWindow(docID, docTitle, docType, trimmed)
	}

	return chunks
}

// method maps a declared document type to a chunking strategy.
func method(docType string) ChunkMethod {
	switch strings.ToLower(strings.TrimSpace(docType)) {
	case "policy", "insurance_policy", "health_policy":
		return MethodPolicySection
	case "contract", "agreement", "legal_contract":
		return MethodLegalSection
	default:
		return MethodSlidingWindow
	}
}

// chunkBySections splits text at headings matched by headingRe. Each
// chunk spans from its heading up to the next heading.
func (c *Chunker) chunkBySections(docID, docTitle, docType, text string, m ChunkMethod, headingRe *regexp.Regexp) []Chunk {
	bounds := headingRe.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(bounds))
	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}

		section := strings.TrimSpace(text[b[0]:end])
		if section == "" {
			continue
		}

		heading := strings.TrimSpace(text[b[0]:b[1]])
		anchor := sectionAnchor(heading)
		title := strings.TrimSpace(strings.TrimPrefix(heading, anchor))
		title = strings.TrimLeft(title, ". ")

		chunks = append(chunks, c.newChunk(docID, docTitle, docType, section, m, anchor, title, chunkID(docID, anchor, len(chunks))))
	}

	return chunks
}

// chunkByLegalSections tries each legal heading pattern in turn and keeps
// the first one that produces boundaries.
func (c *Chunker) chunkByLegalSections(docID, docTitle, docType, text string) []Chunk {
	for _, re := range legalHeadingRes {
		if chunks := c.chunkBySections(docID, docTitle, docType, text, MethodLegalSection, re); len(chunks) > 0 {
			return chunks
		}
	}
	return nil
}

// chunkBySlidingWindow emits windows of ChunkSize tokens advancing by
// ChunkSize-ChunkOverlap. Boundaries always fall on whitespace. Text
// shorter than one window becomes a single chunk.
func (c *Chunker) chunkBySlidingWindow(docID, docTitle, docType, text string) []Chunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.config.ChunkSize - c.config.ChunkOverlap
	var chunks []Chunk

	for start := 0; start < len(tokens); start += step {
		end := start + c.config.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		window := strings.Join(tokens[start:end], " ")
		chunks = append(chunks, c.newChunk(docID, docTitle, docType, window, MethodSlidingWindow, "", "",
			fmt.Sprintf("%s:%d", docID, len(chunks))))

		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// newChunk builds a chunk with its derived legal metadata.
func (c *Chunker) newChunk(docID, docTitle, docType, text string, m ChunkMethod, anchor, title, id string) Chunk {
	text = strings.TrimSpace(text)
	words := len(strings.Fields(text))
	terms := ExtractLegalTerms(text)

	density := 0.0
	if words > 0 {
		density = float64(len(terms)) / float64(words)
	}

	return Chunk{
		ChunkID:       id,
		DocID:         docID,
		DocTitle:      docTitle,
		DocType:       docType,
		SectionAnchor: anchor,
		SectionTitle:  title,
		WordCount:     words,
		LegalDensity:  density,
		LegalTerms:    terms,
		Method:        m,
		Text:          text,
	}
}

// sectionAnchor extracts the section number from a heading, either the
// leading number ("1.2 EXCLUSIONS") or the ARTICLE/SECTION/CLAUSE ordinal.
func sectionAnchor(heading string) string {
	if m := sectionAnchorRe.FindString(heading); m != "" {
		return m
	}
	if m := legalAnchorRe.FindStringSubmatch(heading); m != nil {
		return m[1]
	}
	return ""
}

// chunkID derives the stable chunk identifier: section-derived chunks use
// the anchor, others the running index.
func chunkID(docID, anchor string, index int) string {
	if anchor != "" {
		return fmt.Sprintf("%s:section_%s", docID, anchor)
	}
	return fmt.Sprintf("%s:%d", docID, index)
}
