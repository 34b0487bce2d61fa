// Package response assembles the structured answer envelope: prompt
// construction, LLM synthesis, citation extraction, confidence scoring,
// warnings, and explainability.
package response

import (
	"time"

	"github.com/insurelex/answer-engine/internal/analysis"
)

// Response types. Every envelope carries exactly one.
const (
	TypeDirectAnswer  = "direct_answer"
	TypeProcedural    = "procedural"
	TypeExclusion     = "exclusion"
	TypeCoverage      = "coverage"
	TypeClaim         = "claim"
	TypeWaitingPeriod = "waiting_period"
	TypePremium       = "premium"
	TypeRenewal       = "renewal"
	TypeTermination   = "termination"
	TypeLimitation    = "limitation"
	TypeGeneral       = "general"
	TypeError         = "error"
	TypeNoResults     = "no_results"
)

// Confidence levels.
const (
	LevelHigh    = "high"
	LevelMedium  = "medium"
	LevelLow     = "low"
	LevelVeryLow = "very_low"
)

// StructuredResponse is the envelope returned for every query. It is
// produced once and never mutated.
type StructuredResponse struct {
	ResponseID        string            `json:"response_id"`
	Timestamp         time.Time         `json:"timestamp"`
	Answer            string            `json:"answer"`
	ResponseType      string            `json:"response_type"`
	Category          string            `json:"category,omitempty"`
	Query             QueryEcho         `json:"query"`
	Confidence        Confidence        `json:"confidence"`
	Sources           []SourceRef       `json:"sources"`
	SearchParameters  SearchParameters  `json:"search_parameters"`
	QualityIndicators QualityIndicators `json:"quality_indicators"`
	Warnings          []Warning         `json:"warnings,omitempty"`
	Recommendations   []Recommendation  `json:"recommendations,omitempty"`
	Explainability    Explainability    `json:"explainability"`
}

// QueryEcho reflects the analyzed query back to the caller.
type QueryEcho struct {
	Raw          string   `json:"raw"`
	Normalized   string   `json:"normalized"`
	Intent       string   `json:"intent"`
	Complexity   string   `json:"complexity"`
	SubQuestions []string `json:"sub_questions"`
}

// Confidence is the scored breakdown plus the mapped level.
type Confidence struct {
	Overall              float64 `json:"overall"`
	Level                string  `json:"level"`
	SourceRelevance      float64 `json:"source_relevance"`
	ResponseCompleteness float64 `json:"response_completeness"`
	CitationQuality      float64 `json:"citation_quality"`
}

// SourceRef is one cited retrieval result.
type SourceRef struct {
	ChunkID          string            `json:"chunk_id"`
	DocTitle         string            `json:"doc_title,omitempty"`
	SectionAnchor    string            `json:"section_anchor,omitempty"`
	SectionTitle     string            `json:"section_title,omitempty"`
	Page             int               `json:"page,omitempty"`
	CombinedScore    float64           `json:"combined_score"`
	SemanticScore    float64           `json:"semantic_score"`
	KeywordScore     float64           `json:"keyword_score"`
	StructuralRank   int               `json:"structural_rank"`
	RetrievalMethod  string            `json:"retrieval_method"`
	MatchedKeywords  []string          `json:"matched_keywords,omitempty"`
	ClauseReferences []ClauseReference `json:"clause_references,omitempty"`
	Excerpt          string            `json:"excerpt,omitempty"`
}

// ClauseReference links a clause identifier found in a source to its
// appearance (or absence) in the generated answer.
type ClauseReference struct {
	Identifier      string `json:"identifier"`
	SourceChunkID   string `json:"source_chunk_id"`
	FoundInResponse bool   `json:"found_in_response"`
}

// SearchParameters records the retrieval settings that applied.
type SearchParameters struct {
	ThresholdUsed float64 `json:"threshold_used"`
	Adaptive      bool    `json:"adaptive"`
	Method        string  `json:"method"`
}

// QualityIndicators summarize answer quality signals.
type QualityIndicators struct {
	Completeness  float64 `json:"completeness"`
	Specificity   float64 `json:"specificity"`
	CitationCount int     `json:"citation_count"`
}

// Warning flags a quality or pipeline concern.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Recommendation suggests how the caller can get a better answer.
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Explainability explains why the pipeline produced this answer.
type Explainability struct {
	QueryAnalysis  QueryAnalysis  `json:"query_analysis"`
	SourceAnalysis SourceAnalysis `json:"source_analysis"`
	AuditTrail     AuditTrail     `json:"audit_trail"`
}

// QueryAnalysis records what analysis did to the query.
type QueryAnalysis struct {
	Intent            string   `json:"intent"`
	IntentConfidence  float64  `json:"intent_confidence"`
	Complexity        string   `json:"complexity"`
	NormalizedChanged bool     `json:"normalized_changed"`
	MatchedCategories []string `json:"matched_categories"`
	SubQuestionCount  int      `json:"sub_question_count"`
}

// SourceAnalysis aggregates where the sources came from.
type SourceAnalysis struct {
	TotalSources       int            `json:"total_sources"`
	CandidateCount     int            `json:"candidate_count"`
	Documents          map[string]int `json:"documents,omitempty"`
	Sections           map[string]int `json:"sections,omitempty"`
	MethodDistribution map[string]int `json:"method_distribution,omitempty"`
}

// AuditTrail is the minimal per-query audit record.
type AuditTrail struct {
	Query         string    `json:"query"`
	Timestamp     time.Time `json:"timestamp"`
	ThresholdUsed float64   `json:"threshold_used"`
	StagesFired   []string  `json:"stages_fired"`
	FailedStage   string    `json:"failed_stage,omitempty"`
}

func queryEcho(qc analysis.QueryContext) QueryEcho {
	return QueryEcho{
		Raw:          qc.Raw,
		Normalized:   qc.Normalized,
		Intent:       string(qc.Intent),
		Complexity:   string(qc.Complexity),
		SubQuestions: qc.SubQuestions,
	}
}
