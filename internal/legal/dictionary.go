// Package legal holds the static domain dictionary for insurance and
// contract documents: category surface forms, synonym mappings, general
// legal terms, and stop words. Everything here is read-only after init.
package legal

// Category identifies a legal keyword category.
type Category string

// Known categories, in a stable order.
const (
	CategoryPreexistingDiseases Category = "preexisting_diseases"
	CategoryExclusions          Category = "exclusions"
	CategoryCoverage            Category = "coverage"
	CategoryClaims              Category = "claims"
	CategoryDeductibles         Category = "deductibles"
	CategoryPremiums            Category = "premiums"
	CategoryWaitingPeriods      Category = "waiting_periods"
	CategoryRenewals            Category = "renewals"
	CategoryTerminations        Category = "terminations"
)

// AllCategories lists every category in priority-stable order.
var AllCategories = []Category{
	CategoryPreexistingDiseases,
	CategoryExclusions,
	CategoryCoverage,
	CategoryClaims,
	CategoryDeductibles,
	CategoryPremiums,
	CategoryWaitingPeriods,
	CategoryRenewals,
	CategoryTerminations,
}

// CategoryForms maps each category to its surface forms. Matching is
// whole-word and case-insensitive over normalized text.
var CategoryForms = map[Category][]string{
	CategoryPreexistingDiseases: {
		"preexisting diseases", "pre-existing disease", "ped", "excl 01",
		"preexisting condition", "existing illness", "pre-existing illness",
		"medical history",
	},
	CategoryExclusions: {
		"exclusion", "exclusions", "excluded", "not covered", "limitations",
		"excluded conditions", "coverage limitations",
	},
	CategoryCoverage: {
		"coverage", "covered", "benefits", "insurance coverage",
		"policy coverage", "medical coverage",
	},
	CategoryClaims: {
		"claim", "claims", "claim filing", "claim process", "claim submission",
		"claim amount", "claim limits",
	},
	CategoryDeductibles: {
		"deductible", "deductibles", "deductible amount", "out-of-pocket",
		"deductible limit", "cost sharing",
	},
	CategoryPremiums: {
		"premium", "premiums", "insurance premium", "monthly premium",
		"annual premium",
	},
	CategoryWaitingPeriods: {
		"waiting period", "waiting periods", "waiting time", "wait period",
		"exclusion period", "initial period",
	},
	CategoryRenewals: {
		"renewal", "renewals", "policy renewal", "renewal process",
		"renewal terms", "extension",
	},
	CategoryTerminations: {
		"termination", "terminations", "policy termination", "cancellation",
		"end of coverage", "discontinuation",
	},
}

// Intent classifies what the user is asking for.
type Intent string

// The closed intent set.
const (
	IntentInformationSeeking Intent = "information_seeking"
	IntentProcedural         Intent = "procedural"
	IntentCoverage           Intent = "coverage"
	IntentExclusion          Intent = "exclusion"
	IntentFinancial          Intent = "financial"
	IntentTemporal           Intent = "temporal"
	IntentClaim              Intent = "claim"
)

// CategoryIntent maps a matched category to the intent it signals.
var CategoryIntent = map[Category]Intent{
	CategoryPreexistingDiseases: IntentExclusion,
	CategoryExclusions:          IntentExclusion,
	CategoryCoverage:            IntentCoverage,
	CategoryClaims:              IntentClaim,
	CategoryDeductibles:         IntentFinancial,
	CategoryPremiums:            IntentFinancial,
	CategoryWaitingPeriods:      IntentTemporal,
	CategoryRenewals:            IntentProcedural,
	CategoryTerminations:        IntentProcedural,
}

// intentPriority orders intents for tie-breaking; lower wins.
var intentPriority = map[Intent]int{
	IntentExclusion:          0,
	IntentCoverage:           1,
	IntentTemporal:           2,
	IntentFinancial:          3,
	IntentClaim:              4,
	IntentProcedural:         5,
	IntentInformationSeeking: 6,
}

// IntentPriority returns the tie-break rank of an intent; lower wins.
func IntentPriority(i Intent) int {
	if p, ok := intentPriority[i]; ok {
		return p
	}
	return len(intentPriority)
}

// Synonym maps a surface form to its canonical replacement during query
// normalization. Applied whole-word, longest form first.
type Synonym struct {
	From string
	To   string
}

// Synonyms is the normalization table. Order is not significant; the
// normalizer sorts by descending length before applying.
var Synonyms = []Synonym{
	{"pre-existing diseases", "preexisting diseases"},
	{"pre-existing disease", "preexisting diseases"},
	{"pre-existing illness", "preexisting diseases"},
	{"pre-existing condition", "preexisting diseases"},
	{"preexisting condition", "preexisting diseases"},
	{"existing illness", "preexisting diseases"},
	{"ped", "preexisting diseases"},
	{"wait period", "waiting period"},
	{"waiting time", "waiting period"},
	{"cancellation", "termination"},
	{"out-of-pocket", "deductible"},
	{"cost sharing", "deductible"},
	{"insurance cover", "coverage"},
	{"policy document", "policy"},
}

// GeneralLegalTerms are the generic legal vocabulary used for density
// scoring and fallback keyword extraction.
var GeneralLegalTerms = []string{
	"whereas", "hereby", "hereinafter", "party", "parties", "agreement",
	"contract", "clause", "section", "article", "paragraph", "subparagraph",
	"jurisdiction", "governing law", "dispute resolution", "arbitration",
	"breach", "termination", "liability", "indemnification", "confidentiality",
	"intellectual property", "force majeure", "amendment", "waiver",
}

// GenericOverlapTerms are the terms whose overlap between query and
// candidate text earns structural rank 2 without a shared category.
var GenericOverlapTerms = []string{"exclusion", "limitation", "not covered"}

// RelevantWords are single tokens accepted as fallback keywords when they
// appear literally in a query.
var RelevantWords = []string{
	"disease", "exclusion", "coverage", "claim", "deductible", "premium",
	"waiting", "renewal", "termination", "policy", "insurance", "medical",
	"hospital", "treatment", "expense", "limit", "amount", "period",
}

// stopWords are dropped during keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "can": {}, "what": {}, "when": {}, "where": {}, "why": {},
	"how": {},
}

// IsStopWord reports whether the token is a stop word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
