package retrieval

// Retrieval methods recorded on results.
const (
	MethodSemantic         = "semantic"
	MethodHybrid           = "hybrid"
	MethodKeywordAnchoring = "keyword_anchoring"
)

// Result is one retrieved chunk with its full scoring breakdown.
// CombinedScore lies in [0,1]; StructuralRank 1 is best.
type Result struct {
	ChunkID         string
	Text            string
	Metadata        map[string]interface{}
	SemanticScore   float64
	KeywordScore    float64
	CombinedScore   float64
	StructuralRank  int
	Method          string
	MatchedKeywords []string
}

// resultFromMatch builds a Result shell from an index match.
func resultFromMatch(m Match) Result {
	return Result{
		ChunkID:       m.ID,
		Text:          MetadataString(m.Metadata, "text"),
		Metadata:      m.Metadata,
		SemanticScore: m.Score,
	}
}
