package audit

import (
	"testing"

	"github.com/barmart/marketplace/internal/moderation"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		category moderation.Category
		want     string
	}{
		{moderation.CategoryPhone, SeverityHigh},
		{moderation.CategoryEmail, SeverityHigh},
		{moderation.CategorySocialHandle, SeverityHigh},
		{moderation.CategoryMeetupLanguage, SeverityMedium},
		{moderation.CategoryPaymentBypass, SeverityMedium},
		{moderation.CategoryPlatformBypass, SeverityMedium},
		{moderation.CategoryNone, SeverityLow},
		{moderation.Category("unknown"), SeverityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := SeverityFor(tt.category); got != tt.want {
				t.Errorf("SeverityFor(%q) = %q, want %q", tt.category, got, tt.want)
			}
		})
	}
}

// The store is a compile-time moderation.AuditSink so the orchestrator
// can take it directly.
var _ moderation.AuditSink = (*Store)(nil)
