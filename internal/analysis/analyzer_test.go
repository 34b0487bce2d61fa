package analysis

import (
	"testing"

	"github.com/insurelex/answer-engine/internal/legal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SynonymSubstitution(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			"ped acronym",
			"What are the PED exclusions?",
			"what are the preexisting diseases exclusions?",
		},
		{
			"hyphenated form",
			"Is a pre-existing disease covered?",
			"is a preexisting diseases covered?",
		},
		{
			"whole word only",
			"the pedestrian crossing",
			"the pedestrian crossing",
		},
		{
			"whitespace collapse",
			"  what   is\tcovered  ",
			"what is covered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.query))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	queries := []string{
		"What are the PED exclusions?",
		"cancellation during the waiting time",
		"How much is the premium, and when does coverage start?",
		"",
	}

	for _, q := range queries {
		once := Normalize(q)
		assert.Equal(t, once, Normalize(once), "query %q", q)
	}
}

func TestSplitSubQuestions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			"no separator",
			"what is the deductible",
			[]string{"what is the deductible?"},
		},
		{
			"comma separated",
			"what is covered, what is excluded, how do i claim",
			[]string{"what is covered?", "what is excluded?", "how do i claim?"},
		},
		{
			"and separated",
			"what is the premium and when is renewal",
			[]string{"what is the premium?", "when is renewal?"},
		},
		{
			"multiple question marks",
			"what is covered? what is excluded?",
			[]string{"what is covered?", "what is excluded?"},
		},
		{
			"short fragments dropped",
			"what is the waiting period, ok",
			[]string{"what is the waiting period?"},
		},
		{
			"empty input still yields one entry",
			"",
			[]string{"?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSubQuestions(tt.query)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze_PEDExclusions(t *testing.T) {
	a := NewAnalyzer(nil)

	qc := a.Analyze("What are the PED exclusions?")

	assert.Equal(t, "what are the preexisting diseases exclusions?", qc.Normalized)
	assert.Equal(t, legal.IntentExclusion, qc.Intent)
	assert.Equal(t, []string{"what are the preexisting diseases exclusions?"}, qc.SubQuestions)
	assert.Contains(t, qc.MatchedCategories, legal.CategoryPreexistingDiseases)
	assert.Contains(t, qc.MatchedCategories, legal.CategoryExclusions)
	assert.Greater(t, qc.IntentConfidence, 0.0)
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	a := NewAnalyzer(nil)

	qc := a.Analyze("")

	assert.Equal(t, legal.IntentInformationSeeking, qc.Intent)
	assert.Equal(t, 0.0, qc.IntentConfidence)
	assert.Equal(t, ComplexityLow, qc.Complexity)
	require.Len(t, qc.SubQuestions, 1)
}

func TestAnalyze_Complexity(t *testing.T) {
	a := NewAnalyzer(nil)

	tests := []struct {
		name  string
		query string
		want  Complexity
	}{
		{"single plain question", "what is the deductible", ComplexityLow},
		{"two sub-questions", "what is covered and what is excluded", ComplexityMedium},
		{
			"three categories",
			"what is the premium for the waiting period exclusion",
			ComplexityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := a.Analyze(tt.query)
			assert.Equal(t, tt.want, qc.Complexity)
		})
	}
}

func TestAnalyze_TieBreakPrefersExclusion(t *testing.T) {
	a := NewAnalyzer(nil)

	// One coverage hit and one exclusion hit: priority order picks exclusion.
	qc := a.Analyze("is this exclusion part of the coverage")

	assert.Equal(t, legal.IntentExclusion, qc.Intent)
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("what is the waiting period for maternity coverage?")

	assert.Equal(t, []string{"waiting", "period", "maternity", "coverage"}, got)
}

func TestBuildVariants(t *testing.T) {
	a := NewAnalyzer(nil)
	qc := a.Analyze("What are the PED exclusions?")

	variants := BuildVariants(qc, 5)

	require.NotEmpty(t, variants)
	assert.LessOrEqual(t, len(variants), 5)
	assert.Equal(t, qc.Normalized, variants[0])

	// All variants distinct.
	seen := make(map[string]struct{})
	for _, v := range variants {
		_, dup := seen[v]
		assert.False(t, dup, "duplicate variant %q", v)
		seen[v] = struct{}{}
	}
}

func TestBuildVariants_CapOne(t *testing.T) {
	a := NewAnalyzer(nil)
	qc := a.Analyze("What are the PED exclusions and what is the claim process?")

	variants := BuildVariants(qc, 1)
	assert.Equal(t, []string{qc.Normalized}, variants)
}
