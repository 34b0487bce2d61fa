package response

import (
	"testing"

	"github.com/insurelex/answer-engine/internal/legal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyResponseType(t *testing.T) {
	tests := []struct {
		name   string
		intent legal.Intent
		answer string
		want   string
	}{
		{"exclusion intent", legal.IntentExclusion, "These conditions apply.", TypeExclusion},
		{"coverage intent", legal.IntentCoverage, "Hospitalization is covered.", TypeCoverage},
		{"temporal intent", legal.IntentTemporal, "The period is 30 days.", TypeWaitingPeriod},
		{"financial intent", legal.IntentFinancial, "The premium is monthly.", TypePremium},
		{"claim intent", legal.IntentClaim, "File within 15 days.", TypeClaim},
		{"procedural default", legal.IntentProcedural, "Follow these steps.", TypeProcedural},
		{"procedural with renewal cue", legal.IntentProcedural, "You may renew online.", TypeRenewal},
		{"procedural with termination cue", legal.IntentProcedural, "The policy terminates on default.", TypeTermination},
		{"content cue overrides intent", legal.IntentCoverage, "Dental care is excluded.", TypeExclusion},
		{"information seeking", legal.IntentInformationSeeking, "The policy describes benefits.", TypeDirectAnswer},
		{"limitation cue", legal.IntentInformationSeeking, "A limitation applies to outpatient care.", TypeLimitation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyResponseType(tt.intent, tt.answer))
		})
	}
}
