package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingSink captures flags for assertions.
type recordingSink struct {
	flags []Flag
	err   error
}

func (s *recordingSink) Record(_ context.Context, flag Flag) error {
	s.flags = append(s.flags, flag)
	return s.err
}

func warningSet() map[string]bool {
	set := make(map[string]bool, len(Warnings))
	for _, w := range Warnings {
		set[w] = true
	}
	return set
}

func TestModerateChat_CleanPassThrough(t *testing.T) {
	sink := &recordingSink{}
	o := NewOrchestrator(NewDetector(), sink)

	msg := ChatMessage{SenderID: "u1", ThreadID: "t1", Text: "is the lamp still for sale?"}
	res := o.ModerateChat(context.Background(), msg)

	if res.WasSubstituted {
		t.Error("clean message must not be substituted")
	}
	if res.DeliveredText != msg.Text {
		t.Errorf("DeliveredText = %q, want original %q", res.DeliveredText, msg.Text)
	}
	if res.Category != CategoryNone {
		t.Errorf("Category = %q, want %q", res.Category, CategoryNone)
	}
	if len(sink.flags) != 0 {
		t.Errorf("clean message must not be recorded, got %d flags", len(sink.flags))
	}
}

func TestModerateChat_FlaggedSubstitutesWarning(t *testing.T) {
	sink := &recordingSink{}
	o := NewOrchestrator(NewDetector(), sink)

	msg := ChatMessage{SenderID: "u1", ThreadID: "t1", Text: "dm me on whatsapp instead"}
	res := o.ModerateChat(context.Background(), msg)

	if !res.WasSubstituted {
		t.Fatal("expected substitution for flagged message")
	}
	if res.DeliveredText == msg.Text {
		t.Error("flagged original text must never be delivered")
	}
	if !warningSet()[res.DeliveredText] {
		t.Errorf("DeliveredText = %q, not one of the canned warnings", res.DeliveredText)
	}

	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 audit flag, got %d", len(sink.flags))
	}
	flag := sink.flags[0]
	if flag.Source != "chat" || flag.UserID != "u1" || flag.ThreadID != "t1" {
		t.Errorf("unexpected flag metadata: %+v", flag)
	}
	if flag.Text != msg.Text {
		t.Errorf("flag.Text = %q, want original %q", flag.Text, msg.Text)
	}
	if flag.Category != res.Category {
		t.Errorf("flag.Category = %q, result category %q", flag.Category, res.Category)
	}
}

func TestModerateChat_PinnedPicker(t *testing.T) {
	for want := 0; want < len(Warnings); want++ {
		idx := want
		o := NewOrchestratorWithPicker(NewDetector(), nil, func(int) int { return idx })

		res := o.ModerateChat(context.Background(), ChatMessage{Text: "pay me cash outside"})
		if res.DeliveredText != Warnings[idx] {
			t.Errorf("picker=%d: DeliveredText = %q, want %q", idx, res.DeliveredText, Warnings[idx])
		}
	}
}

func TestModerateChat_SinkErrorDoesNotChangeOutcome(t *testing.T) {
	sink := &recordingSink{err: errors.New("audit store down")}
	o := NewOrchestratorWithPicker(NewDetector(), sink, func(int) int { return 0 })

	res := o.ModerateChat(context.Background(), ChatMessage{Text: "avoid the fee, meet me outside"})
	if !res.WasSubstituted {
		t.Error("sink failure must not suppress substitution")
	}
	if res.DeliveredText != Warnings[0] {
		t.Errorf("DeliveredText = %q, want %q", res.DeliveredText, Warnings[0])
	}
}

func TestModerateListing_FlaggedReturnsOriginalExactly(t *testing.T) {
	sink := &recordingSink{}
	o := NewOrchestrator(NewDetector(), sink)

	desc := "barely   used bike,\n\ntext me at 555-123-4567"
	res := o.ModerateListing(context.Background(), Listing{SellerID: "s1", Text: desc})

	if !res.WasRejected {
		t.Fatal("expected rejection for flagged description")
	}
	if res.ResultText != desc {
		t.Errorf("rejected text must be returned unmodified:\n got %q\nwant %q", res.ResultText, desc)
	}
	if len(sink.flags) != 1 || sink.flags[0].Source != "listing" {
		t.Errorf("expected one listing flag, got %+v", sink.flags)
	}
}

func TestModerateListing_CleanIsNormalized(t *testing.T) {
	o := NewOrchestrator(NewDetector(), nil)

	desc := "great lamp. barely used.\nworks perfectly"
	res := o.ModerateListing(context.Background(), Listing{Text: desc})

	if res.WasRejected {
		t.Fatal("clean description must not be rejected")
	}
	if want := Normalize(desc); res.ResultText != want {
		t.Errorf("ResultText = %q, want Normalize output %q", res.ResultText, want)
	}
}

func TestModerate_EndToEndPhoneNumber(t *testing.T) {
	const text = "Call me at 555-123-4567 instead"
	o := NewOrchestrator(NewDetector(), nil)
	ctx := context.Background()

	chat := o.ModerateChat(ctx, ChatMessage{Text: text})
	if !chat.WasSubstituted {
		t.Error("chat policy: expected substitution")
	}
	if !warningSet()[chat.DeliveredText] {
		t.Errorf("chat policy: DeliveredText = %q, not a canned warning", chat.DeliveredText)
	}

	listing := o.ModerateListing(ctx, Listing{Text: text})
	if !listing.WasRejected {
		t.Error("listing policy: expected rejection")
	}
	if listing.ResultText != text {
		t.Errorf("listing policy: ResultText = %q, want original", listing.ResultText)
	}
}

func TestPickupMessage(t *testing.T) {
	got := PickupMessage("Sarah", "the student union lobby")

	for _, want := range []string{"Sarah", "the student union lobby", "arrange pickup"} {
		if !strings.Contains(got, want) {
			t.Errorf("PickupMessage() = %q, want it to contain %q", got, want)
		}
	}
}
