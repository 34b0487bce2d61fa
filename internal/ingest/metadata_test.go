package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurelex/answer-engine/internal/retrieval"
)

func TestExtractLegalTerms_CountsEveryOccurrence(t *testing.T) {
	terms := ExtractLegalTerms("This clause amends the Agreement. The agreement binds each party.")

	assert.Equal(t, []string{"clause", "agreement", "agreement", "party"}, terms)
}

func TestExtractLegalTerms_WholeWordsOnly(t *testing.T) {
	// "partying" must not match "party".
	assert.Empty(t, ExtractLegalTerms("They were partying in sections of the hall."))
}

func TestBuildMetadata_IsIndexCompatible(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	chunks := c.Chunk("pol", "Health Policy", "policy", policyText)
	require.NotEmpty(t, chunks)

	meta := BuildMetadata(chunks[1])

	require.NoError(t, retrieval.ValidateMetadata(meta))
	assert.Equal(t, "pol", meta["doc_id"])
	assert.Equal(t, "pol:section_1.2", meta["chunk_id"])
	assert.Equal(t, "1.2", meta["section_anchor"])
	assert.Equal(t, "EXCLUSIONS", meta["section_title"])
	assert.Equal(t, "policy_section", meta["chunking_method"])
	assert.Contains(t, meta["text"], "Pre-existing diseases")
}

func TestBuildMetadata_TruncatesLongTitles(t *testing.T) {
	chunk := Chunk{
		DocID:    "pol",
		DocTitle: strings.Repeat("t", 150),
		Text:     "body",
	}

	meta := BuildMetadata(chunk)

	assert.Len(t, meta["doc_title"], 100)
}

func TestBuildMetadata_TruncationKeepsValidUTF8(t *testing.T) {
	// 40 three-byte runes make 120 bytes; the 100-byte cap falls inside
	// a rune and must back up to the previous boundary.
	chunk := Chunk{
		DocID:    "pol",
		DocTitle: strings.Repeat("€", 40),
		Text:     "body",
	}

	meta := BuildMetadata(chunk)

	title := meta["doc_title"].(string)
	assert.True(t, utf8.ValidString(title))
	assert.Len(t, title, 99)
}

func TestBuildMetadata_OmitsZeroPage(t *testing.T) {
	meta := BuildMetadata(Chunk{DocID: "pol", Text: "body"})
	_, ok := meta["page"]
	assert.False(t, ok)

	meta = BuildMetadata(Chunk{DocID: "pol", Text: "body", Page: 3})
	assert.Equal(t, 3, meta["page"])
}
