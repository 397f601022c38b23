package moderation

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
)

// Warnings is the fixed ordered set of canned substitution texts sent in
// place of a flagged chat message. All four are semantically equivalent;
// one is picked uniformly at random per substitution.
var Warnings = [4]string{
	"For your safety, all transactions must happen on the platform. This message has been flagged.",
	"To protect all users, we don't allow sharing contact information or arranging off-platform sales.",
	"Your message has been flagged as it appears to be attempting to arrange an off-platform transaction.",
	"Bar-Mart requires all payments to be processed through our secure system. This message has been reported.",
}

// ChatMessage is an outbound chat message submitted for moderation.
type ChatMessage struct {
	SenderID string
	ThreadID string
	Text     string
}

// ChatResult reports what the chat-send policy decided: the text that
// was actually delivered, and whether a warning was substituted for the
// original.
type ChatResult struct {
	DeliveredText  string
	WasSubstituted bool
	Category       Category
}

// Listing is a listing description submitted for enhancement.
type Listing struct {
	SellerID  string
	ListingID string
	Text      string
}

// ListingResult reports what the listing policy decided. Rejected
// descriptions come back byte-identical to the submission; clean ones
// come back normalized.
type ListingResult struct {
	ResultText  string
	WasRejected bool
	Category    Category
}

// Flag is one flagged-content record handed to the audit sink.
type Flag struct {
	UserID   string
	ThreadID string // empty for listing flags
	Source   string // "chat" or "listing"
	Text     string
	Category Category
}

// AuditSink receives flagged-content records for admin review. The
// orchestrator treats the sink as best-effort: a sink failure is logged
// and never changes the moderation outcome.
type AuditSink interface {
	Record(ctx context.Context, flag Flag) error
}

// Orchestrator sequences the detector and the normalizer/warning
// substitution according to call-site policy. It is safe for concurrent
// use: each call is isolated given its input.
type Orchestrator struct {
	detector *Detector
	sink     AuditSink
	pick     func(n int) int // returns an index in [0, n)
}

// NewOrchestrator builds an orchestrator around the given detector and
// audit sink. The sink may be nil when flag records are handled
// elsewhere. Warning selection uses the process RNG.
func NewOrchestrator(detector *Detector, sink AuditSink) *Orchestrator {
	return NewOrchestratorWithPicker(detector, sink, rand.IntN)
}

// NewOrchestratorWithPicker is NewOrchestrator with an injectable
// warning-index picker, so tests can pin the substituted warning.
func NewOrchestratorWithPicker(detector *Detector, sink AuditSink, pick func(n int) int) *Orchestrator {
	return &Orchestrator{detector: detector, sink: sink, pick: pick}
}

// ModerateChat applies the chat-send policy. If the detector flags the
// message, the original text is suppressed and a canned warning is
// delivered in its place; otherwise the text passes through unchanged.
func (o *Orchestrator) ModerateChat(ctx context.Context, msg ChatMessage) ChatResult {
	verdict := o.detector.Check(msg.Text)
	if !verdict.Flagged {
		return ChatResult{DeliveredText: msg.Text, Category: CategoryNone}
	}

	o.record(ctx, Flag{
		UserID:   msg.SenderID,
		ThreadID: msg.ThreadID,
		Source:   "chat",
		Text:     msg.Text,
		Category: verdict.Category,
	})

	return ChatResult{
		DeliveredText:  Warnings[o.pick(len(Warnings))],
		WasSubstituted: true,
		Category:       verdict.Category,
	}
}

// ModerateListing applies the listing-description policy. Flagged
// descriptions are returned unmodified with a rejection signal so the
// caller can warn the seller and skip enhancement messaging; clean
// descriptions are normalized.
func (o *Orchestrator) ModerateListing(ctx context.Context, listing Listing) ListingResult {
	verdict := o.detector.Check(listing.Text)
	if verdict.Flagged {
		o.record(ctx, Flag{
			UserID:   listing.SellerID,
			Source:   "listing",
			Text:     listing.Text,
			Category: verdict.Category,
		})
		return ListingResult{
			ResultText:  listing.Text,
			WasRejected: true,
			Category:    verdict.Category,
		}
	}

	return ListingResult{ResultText: Normalize(listing.Text), Category: CategoryNone}
}

func (o *Orchestrator) record(ctx context.Context, flag Flag) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Record(ctx, flag); err != nil {
		log.Printf("[moderation] audit record failed category=%s: %v", flag.Category, err)
	}
}

// PickupMessage formats the post-purchase coordination text sent to a
// buyer once a sale completes on-platform.
func PickupMessage(sellerName, location string) string {
	return fmt.Sprintf(
		"Now that you've completed your purchase, you can arrange pickup with %s. The item is available at: %s. Please coordinate a convenient time through this chat.",
		sellerName, location)
}
