// Package moderation screens marketplace text for attempts to move a
// transaction off-platform and cleans up listing descriptions before
// they are stored. The detector and the normalizer are pure functions
// over text; the orchestrator composes them per call site (chat send
// vs. listing submission).
package moderation

import (
	"regexp"
	"strings"
)

// Category identifies which family of off-platform signals matched.
type Category string

const (
	CategoryNone           Category = "none"
	CategoryPhone          Category = "phone"
	CategoryEmail          Category = "email"
	CategorySocialHandle   Category = "social_handle"
	CategoryMeetupLanguage Category = "meetup_language"
	CategoryPaymentBypass  Category = "payment_bypass_language"
	CategoryPlatformBypass Category = "platform_bypass_language"
)

// Verdict is the detector's decision for a single piece of text.
// Invariant: Flagged == (Category != CategoryNone).
type Verdict struct {
	Flagged  bool
	Category Category
}

// Compiled rule patterns. These are compiled once at package init and
// reused for every call, making them safe and efficient for concurrent use.
// All patterns assume the input has already been lower-cased.
var (
	// phonePattern matches North-American-style groupings like
	// 555-123-4567, 555.123.4567, or 5551234567. International formats
	// are a known gap.
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)

	// emailPattern matches the standard local@domain.tld shape.
	emailPattern = regexp.MustCompile(`\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)

	// socialPattern matches named third-party messaging platforms as
	// whole words.
	socialPattern = regexp.MustCompile(`\b(telegram|whatsapp|signal|facebook|instagram|snap|snapchat)\b`)

	// meetupPattern matches arrangements to meet away from the platform,
	// with an optional pronoun object.
	meetupPattern = regexp.MustCompile(`\bmeet( me)? (outside|elsewhere)\b`)

	// contactPattern matches imperative phrases soliciting direct contact.
	contactPattern = regexp.MustCompile(`\b(contact|call|text|message|dm)( me)?\b|\bdirect message\b`)

	// payPattern matches requests to pay outside the platform's payment flow.
	payPattern = regexp.MustCompile(`\bpay( me)? (cash|directly|venmo|paypal|outside)\b`)

	// feePattern matches language about dodging the platform fee.
	feePattern = regexp.MustCompile(`\bavoid( the)? fee\b`)

	// bypassPattern matches explicit off-platform/off-site phrasing, with
	// hyphen, space, or neither between the words.
	bypassPattern = regexp.MustCompile(`\boff(-| )?platform\b|\boff(-| )?site\b|\bnot( through)? (this|the) (site|platform|website)\b`)
)

// rule pairs a detection pattern with the category reported on a match.
type rule struct {
	name     string
	category Category
	pattern  *regexp.Regexp
}

// defaultRules is the ordered rule set applied by the detector:
// contact-information signals first, then payment/platform-bypass
// signals. Order matters: the first match determines the category.
var defaultRules = []rule{
	{name: "phone", category: CategoryPhone, pattern: phonePattern},
	{name: "email", category: CategoryEmail, pattern: emailPattern},
	{name: "social", category: CategorySocialHandle, pattern: socialPattern},
	{name: "meetup", category: CategoryMeetupLanguage, pattern: meetupPattern},
	{name: "contact", category: CategoryMeetupLanguage, pattern: contactPattern},
	{name: "pay", category: CategoryPaymentBypass, pattern: payPattern},
	{name: "fee", category: CategoryPaymentBypass, pattern: feePattern},
	{name: "bypass", category: CategoryPlatformBypass, pattern: bypassPattern},
}

// Detector scans free text for attempts to exchange contact information
// or arrange a sale outside the platform. It holds no mutable state and
// is safe for concurrent use.
//
// False positives are an accepted cost: the rules deliberately
// over-block suspicious language rather than risk an undetected
// off-platform arrangement. Loosening them is a product decision, not
// a bug fix.
type Detector struct {
	rules []rule
}

// NewDetector returns a detector with the standard marketplace rule set.
func NewDetector() *Detector {
	return &Detector{rules: defaultRules}
}

// newDetectorWithRules returns a detector using only the given rules.
// Intended for tests that isolate a single rule family.
func newDetectorWithRules(rules []rule) *Detector {
	return &Detector{rules: rules}
}

// Check tests text against every rule in order and returns the verdict
// for the first rule that matches. Empty input is never flagged. The
// scan is case-insensitive: the text is lower-cased once up front.
func (d *Detector) Check(text string) Verdict {
	if text == "" {
		return Verdict{Category: CategoryNone}
	}

	lower := strings.ToLower(text)
	for _, r := range d.rules {
		if r.pattern.MatchString(lower) {
			return Verdict{Flagged: true, Category: r.category}
		}
	}
	return Verdict{Category: CategoryNone}
}
