package response

import "fmt"

// Warning codes.
const (
	WarnLowConfidence         = "low_confidence"
	WarnFallbackUsed          = "fallback_used"
	WarnThresholdRelaxed      = "threshold_relaxed"
	WarnUnansweredSubQuestion = "unanswered_sub_question"
	WarnNoResults             = "no_results"
)

// Recommendation codes.
const (
	RecRephrase        = "rephrase_query"
	RecUploadDocuments = "upload_documents"
	RecSplitQuestion   = "split_question"
)

// buildWarnings collects the structured warnings for an assembled
// answer.
func buildWarnings(conf Confidence, fallbackUsed, relaxed bool, unanswered []string) []Warning {
	var warnings []Warning

	if conf.Level == LevelLow || conf.Level == LevelVeryLow {
		warnings = append(warnings, Warning{
			Code:    WarnLowConfidence,
			Message: fmt.Sprintf("overall confidence is %s (%.2f); verify the answer against the source documents", conf.Level, conf.Overall),
		})
	}

	if fallbackUsed {
		warnings = append(warnings, Warning{
			Code:    WarnFallbackUsed,
			Message: "semantic retrieval found no matches; sources come from keyword anchoring",
		})
	}

	if relaxed {
		warnings = append(warnings, Warning{
			Code:    WarnThresholdRelaxed,
			Message: "the similarity threshold was relaxed to its minimum to produce results",
		})
	}

	for _, sub := range unanswered {
		warnings = append(warnings, Warning{
			Code:    WarnUnansweredSubQuestion,
			Message: fmt.Sprintf("sub-question appears unaddressed: %q", sub),
		})
	}

	return warnings
}

// buildRecommendations suggests follow-up actions from the warnings.
func buildRecommendations(warnings []Warning, subQuestionCount int) []Recommendation {
	var recs []Recommendation
	seen := make(map[string]struct{})

	add := func(code, msg string) {
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		recs = append(recs, Recommendation{Code: code, Message: msg})
	}

	for _, w := range warnings {
		switch w.Code {
		case WarnLowConfidence, WarnFallbackUsed, WarnThresholdRelaxed:
			add(RecRephrase, "rephrase the question using terms from the policy document")
		case WarnNoResults:
			add(RecUploadDocuments, "upload the relevant policy or contract document and retry")
		case WarnUnansweredSubQuestion:
			if subQuestionCount > 1 {
				add(RecSplitQuestion, "ask the unaddressed sub-questions separately")
			}
		}
	}

	return recs
}
