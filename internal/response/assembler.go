package response

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/llm"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/internal/retrieval"
)

const excerptLength = 200

// Config shapes the synthesis call.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// Assembler builds the structured response: prompt, synthesis,
// citations, confidence, warnings, and explainability. It always
// returns a well-formed envelope, mapping hard failures to an
// error-type response rather than a bare fault.
type Assembler struct {
	logger    *observability.Logger
	completer llm.Completer
	config    Config
}

// NewAssembler creates an assembler, backfilling config defaults.
func NewAssembler(logger *observability.Logger, completer llm.Completer, cfg Config) *Assembler {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.MaxTokens < 4000 {
		cfg.MaxTokens = 8000
	}
	if cfg.Temperature <= 0 || cfg.Temperature > 0.1 {
		cfg.Temperature = 0.1
	}
	return &Assembler{
		logger:    logger.WithOperation("response_assembly"),
		completer: completer,
		config:    cfg,
	}
}

// Assemble runs synthesis over the retrieval outcome and builds the
// envelope. Zero sources short-circuit to a no-results response; a
// synthesis failure yields an error response.
func (a *Assembler) Assemble(ctx context.Context, qc analysis.QueryContext, outcome *retrieval.Outcome) *StructuredResponse {
	if len(outcome.Results) == 0 {
		return a.NoResults(qc, outcome)
	}

	contextText, sourceClauses := formatContext(outcome.Results)
	system, user := buildPrompt(contextText, qc)

	answer, err := a.completer.Complete(ctx, llm.CompletionRequest{
		System:      system,
		User:        user,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		a.logger.WithContext(ctx).Error().Err(err).Msg("Answer synthesis failed")
		return a.Error(qc, enginerr.StageOf(err), err)
	}

	unanswered := unansweredSubQuestions(qc.SubQuestions, answer)
	clauseRefs := CrossReference(sourceClauses, answer)
	citations := CitationCount(answer)

	conf := CalculateConfidence(ConfidenceInput{
		Results:          outcome.Results,
		Answer:           answer,
		SubQuestionCount: len(qc.SubQuestions),
		UnansweredCount:  len(unanswered),
		CitationCount:    citations,
		MaxTokens:        a.config.MaxTokens,
	})

	warnings := buildWarnings(conf, outcome.FallbackUsed, outcome.Relaxed, unanswered)
	resp := &StructuredResponse{
		ResponseID:   newResponseID(),
		Timestamp:    time.Now().UTC(),
		Answer:       answer,
		ResponseType: ClassifyResponseType(qc.Intent, answer),
		Category:     primaryCategory(qc),
		Query:        queryEcho(qc),
		Confidence:   conf,
		Sources:      buildSources(outcome.Results, clauseRefs),
		SearchParameters: SearchParameters{
			ThresholdUsed: outcome.ThresholdUsed,
			Adaptive:      outcome.Adaptive,
			Method:        outcome.Method,
		},
		QualityIndicators: QualityIndicators{
			Completeness:  conf.ResponseCompleteness,
			Specificity:   specificity(answer),
			CitationCount: citations,
		},
		Warnings:        warnings,
		Recommendations: buildRecommendations(warnings, len(qc.SubQuestions)),
		Explainability:  a.explain(qc, outcome, ""),
	}
	return resp
}

// NoResults renders the empty-outcome envelope. It is not an error.
func (a *Assembler) NoResults(qc analysis.QueryContext, outcome *retrieval.Outcome) *StructuredResponse {
	warnings := []Warning{{
		Code:    WarnNoResults,
		Message: "no matching content was found in the indexed documents",
	}}
	return &StructuredResponse{
		ResponseID:   newResponseID(),
		Timestamp:    time.Now().UTC(),
		Answer:       "",
		ResponseType: TypeNoResults,
		Category:     primaryCategory(qc),
		Query:        queryEcho(qc),
		Confidence:   Confidence{Level: LevelVeryLow},
		Sources:      []SourceRef{},
		SearchParameters: SearchParameters{
			ThresholdUsed: outcome.ThresholdUsed,
			Adaptive:      outcome.Adaptive,
			Method:        outcome.Method,
		},
		Warnings:        warnings,
		Recommendations: buildRecommendations(warnings, len(qc.SubQuestions)),
		Explainability:  a.explain(qc, outcome, ""),
	}
}

// Error renders the hard-failure envelope, naming the failed stage in
// the audit trail.
func (a *Assembler) Error(qc analysis.QueryContext, stage string, err error) *StructuredResponse {
	resp := &StructuredResponse{
		ResponseID:   newResponseID(),
		Timestamp:    time.Now().UTC(),
		Answer:       "",
		ResponseType: TypeError,
		Query:        queryEcho(qc),
		Confidence:   Confidence{Level: LevelVeryLow},
		Sources:      []SourceRef{},
		Warnings: []Warning{{
			Code:    "stage_failed",
			Message: fmt.Sprintf("the %s stage failed; please retry", stageOrUnknown(stage)),
		}},
		Explainability: a.explain(qc, nil, stageOrUnknown(stage)),
	}
	if err != nil {
		a.logger.Error().Err(err).Str("stage", stage).Msg("Returning error envelope")
	}
	return resp
}

// primaryCategory is the best-matched legal category, if any.
func primaryCategory(qc analysis.QueryContext) string {
	if len(qc.MatchedCategories) == 0 {
		return ""
	}
	return string(qc.MatchedCategories[0])
}

func stageOrUnknown(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return stage
}

// formatContext renders the numbered source blocks the prompt embeds
// and collects each source's clause identifiers.
func formatContext(results []retrieval.Result) (string, map[string][]string) {
	var b strings.Builder
	sourceClauses := make(map[string][]string, len(results))

	for i, res := range results {
		title := retrieval.MetadataString(res.Metadata, "doc_title")
		anchor := retrieval.MetadataString(res.Metadata, "section_anchor")
		sectionTitle := retrieval.MetadataString(res.Metadata, "section_title")
		page := retrieval.MetadataInt(res.Metadata, "page")

		fmt.Fprintf(&b, "[Source %d]", i+1)
		if title != "" {
			fmt.Fprintf(&b, " Document: %s", title)
		}
		if anchor != "" {
			fmt.Fprintf(&b, " | Section %s", anchor)
		}
		if sectionTitle != "" {
			fmt.Fprintf(&b, " %s", sectionTitle)
		}
		if page > 0 {
			fmt.Fprintf(&b, " | Page %d", page)
		}
		b.WriteString("\n")

		clauses := ExtractClauseIDs(res.Text)
		sourceClauses[res.ChunkID] = clauses
		if len(clauses) > 0 {
			fmt.Fprintf(&b, "Clauses: %s\n", strings.Join(clauses, ", "))
		}

		b.WriteString(res.Text)
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n"), sourceClauses
}

// buildPrompt produces the system directive and the user block. The
// user block carries the original, un-normalized question.
func buildPrompt(contextText string, qc analysis.QueryContext) (system, user string) {
	var sys strings.Builder
	sys.WriteString("You are an assistant answering questions about legal and insurance documents. ")
	sys.WriteString("Answer strictly from the provided document excerpts; do not use outside knowledge. ")
	sys.WriteString("Cite the clause, section, or article numbers you rely on. ")
	sys.WriteString("If the excerpts do not contain the answer, say so plainly. ")
	sys.WriteString("Finish every sentence; never stop mid-sentence.")

	if len(qc.SubQuestions) > 1 {
		fmt.Fprintf(&sys,
			" The question contains %d sub-questions; address each one separately, numbered 1 to %d.",
			len(qc.SubQuestions), len(qc.SubQuestions))
	}

	var usr strings.Builder
	usr.WriteString("Document excerpts:\n\n")
	usr.WriteString(contextText)
	usr.WriteString("\n\nQuestion: ")
	usr.WriteString(qc.Raw)

	return sys.String(), usr.String()
}

// unansweredSubQuestions returns the sub-questions whose ordinal marker
// and leading content words are both absent from the answer. Single
// sub-questions are never flagged.
func unansweredSubQuestions(subQuestions []string, answer string) []string {
	if len(subQuestions) <= 1 {
		return nil
	}

	lower := strings.ToLower(answer)
	var missing []string

	for i, sub := range subQuestions {
		n := i + 1
		markers := []string{
			fmt.Sprintf("%d.", n),
			fmt.Sprintf("%d)", n),
			fmt.Sprintf("question %d", n),
			fmt.Sprintf("q%d", n),
			fmt.Sprintf("#%d", n),
		}

		found := false
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				found = true
				break
			}
		}

		if !found {
			if lead := leadContentWords(sub); lead != "" && strings.Contains(lower, lead) {
				found = true
			}
		}

		if !found {
			missing = append(missing, sub)
		}
	}

	return missing
}

// leadContentWords extracts the first two non-stop-word tokens of a
// sub-question for fuzzy presence matching.
func leadContentWords(sub string) string {
	keywords := analysis.ExtractKeywords(strings.ToLower(sub))
	if len(keywords) == 0 {
		return ""
	}
	if len(keywords) > 2 {
		keywords = keywords[:2]
	}
	return strings.Join(keywords, " ")
}

func buildSources(results []retrieval.Result, clauseRefs []ClauseReference) []SourceRef {
	refsByChunk := make(map[string][]ClauseReference)
	for _, ref := range clauseRefs {
		refsByChunk[ref.SourceChunkID] = append(refsByChunk[ref.SourceChunkID], ref)
	}

	sources := make([]SourceRef, 0, len(results))
	for _, res := range results {
		sources = append(sources, SourceRef{
			ChunkID:          res.ChunkID,
			DocTitle:         retrieval.MetadataString(res.Metadata, "doc_title"),
			SectionAnchor:    retrieval.MetadataString(res.Metadata, "section_anchor"),
			SectionTitle:     retrieval.MetadataString(res.Metadata, "section_title"),
			Page:             retrieval.MetadataInt(res.Metadata, "page"),
			CombinedScore:    res.CombinedScore,
			SemanticScore:    res.SemanticScore,
			KeywordScore:     res.KeywordScore,
			StructuralRank:   res.StructuralRank,
			RetrievalMethod:  res.Method,
			MatchedKeywords:  res.MatchedKeywords,
			ClauseReferences: refsByChunk[res.ChunkID],
			Excerpt:          excerpt(res.Text),
		})
	}
	return sources
}

func excerpt(text string) string {
	if len(text) <= excerptLength {
		return text
	}
	end := excerptLength
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// specificity measures how grounded the answer is: the share of
// sentences carrying a clause identifier or a number.
func specificity(answer string) float64 {
	sentences := strings.FieldsFunc(answer, func(r rune) bool {
		return r == '.' || r == '?' || r == '!'
	})
	if len(sentences) == 0 {
		return 0
	}

	specific := 0
	for _, s := range sentences {
		if strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0 {
			specific++
		}
	}
	return float64(specific) / float64(len(sentences))
}

func (a *Assembler) explain(qc analysis.QueryContext, outcome *retrieval.Outcome, failedStage string) Explainability {
	categories := make([]string, 0, len(qc.MatchedCategories))
	for _, cat := range qc.MatchedCategories {
		categories = append(categories, string(cat))
	}

	ex := Explainability{
		QueryAnalysis: QueryAnalysis{
			Intent:            string(qc.Intent),
			IntentConfidence:  qc.IntentConfidence,
			Complexity:        string(qc.Complexity),
			NormalizedChanged: qc.Normalized != strings.ToLower(strings.TrimSpace(qc.Raw)),
			MatchedCategories: categories,
			SubQuestionCount:  len(qc.SubQuestions),
		},
		AuditTrail: AuditTrail{
			Query:       qc.Raw,
			Timestamp:   time.Now().UTC(),
			FailedStage: failedStage,
		},
	}

	if outcome != nil {
		ex.AuditTrail.ThresholdUsed = outcome.ThresholdUsed
		ex.AuditTrail.StagesFired = outcome.StagesFired

		documents := make(map[string]int)
		sections := make(map[string]int)
		methods := make(map[string]int)
		for _, res := range outcome.Results {
			if doc := retrieval.MetadataString(res.Metadata, "doc_title"); doc != "" {
				documents[doc]++
			}
			if anchor := retrieval.MetadataString(res.Metadata, "section_anchor"); anchor != "" {
				sections[anchor]++
			}
			methods[res.Method]++
		}
		ex.SourceAnalysis = SourceAnalysis{
			TotalSources:       len(outcome.Results),
			CandidateCount:     outcome.CandidateCount,
			Documents:          documents,
			Sections:           sections,
			MethodDistribution: methods,
		}
	}

	return ex
}

func newResponseID() string {
	return "resp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
