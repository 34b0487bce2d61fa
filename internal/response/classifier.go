package response

import (
	"strings"

	"github.com/insurelex/answer-engine/internal/legal"
)

// intentResponseTypes maps the primary intent to its default response
// type.
var intentResponseTypes = map[legal.Intent]string{
	legal.IntentExclusion:  TypeExclusion,
	legal.IntentCoverage:   TypeCoverage,
	legal.IntentClaim:      TypeClaim,
	legal.IntentTemporal:   TypeWaitingPeriod,
	legal.IntentFinancial:  TypePremium,
	legal.IntentProcedural: TypeProcedural,
}

// ClassifyResponseType picks the response type from the primary intent,
// refined by content cues in the answer itself. Content cues only
// specialize; they never turn a typed answer back into general.
func ClassifyResponseType(intent legal.Intent, answer string) string {
	lower := strings.ToLower(answer)

	base, ok := intentResponseTypes[intent]
	if !ok {
		base = TypeDirectAnswer
	}

	switch {
	case strings.Contains(lower, "excluded") || strings.Contains(lower, "not covered"):
		return TypeExclusion
	case base == TypeProcedural && strings.Contains(lower, "renew"):
		return TypeRenewal
	case base == TypeProcedural && strings.Contains(lower, "terminat"):
		return TypeTermination
	case base == TypeDirectAnswer && strings.Contains(lower, "limitation"):
		return TypeLimitation
	case base == TypeDirectAnswer && lower == "":
		return TypeGeneral
	}

	return base
}
