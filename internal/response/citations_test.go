package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClauseIDs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"named forms win over bare numbers",
			"As stated in Clause 4.2 and Section 12, paragraph 3 applies.",
			[]string{"clause 4.2", "section 12", "paragraph 3"},
		},
		{
			"bare dotted number",
			"The deductible is defined in 2.1 of the schedule.",
			[]string{"2.1"},
		},
		{
			"article with letter suffix",
			"Article 7 read with annex 4b governs renewals.",
			[]string{"article 7", "4b"},
		},
		{
			"deduplication",
			"Clause 4.2 applies. See clause 4.2 again.",
			[]string{"clause 4.2"},
		},
		{
			"no identifiers",
			"The insurer shall pay promptly.",
			nil,
		},
		{
			"empty text",
			"",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractClauseIDs(tt.text))
		})
	}
}

func TestCrossReference(t *testing.T) {
	sourceClauses := map[string][]string{
		"doc:section_4": {"clause 4.2", "clause 4.3"},
		"doc:section_7": {"article 7"},
	}
	answer := "Per Clause 4.2, the exclusion applies. Article 7 covers renewals."

	refs := CrossReference(sourceClauses, answer)

	assert.Len(t, refs, 3)
	byID := make(map[string]ClauseReference)
	for _, ref := range refs {
		byID[ref.Identifier] = ref
	}
	assert.True(t, byID["clause 4.2"].FoundInResponse)
	assert.False(t, byID["clause 4.3"].FoundInResponse)
	assert.True(t, byID["article 7"].FoundInResponse)
	assert.Equal(t, "doc:section_4", byID["clause 4.2"].SourceChunkID)
}

func TestCitationCount(t *testing.T) {
	assert.Equal(t, 2, CitationCount("See clause 3 and section 9.1."))
	assert.Zero(t, CitationCount("No identifiers here."))
}
