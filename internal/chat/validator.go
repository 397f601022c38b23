package chat

import (
	"fmt"
	"unicode/utf8"
)

const (
	MaxMessageBytes = 4096 // request payload ceiling
	MaxTextChars    = 2000 // max character count

	// MaxDescriptionChars caps listing descriptions submitted for
	// enhancement. The moderation core itself imposes no limit; this is
	// the service boundary's limit.
	MaxDescriptionChars = 8000
)

// ValidateMessage checks that a chat message meets content requirements
// before it enters the moderation pipeline.
func ValidateMessage(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("message text is empty")
	}
	if len(text) > MaxMessageBytes {
		return fmt.Errorf("message exceeds %d byte limit", MaxMessageBytes)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("message exceeds %d character limit", MaxTextChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	return nil
}

// ValidateDescription checks that a listing description is within the
// service limits. Empty descriptions are allowed; the normalizer maps
// them to empty output.
func ValidateDescription(text string) error {
	if utf8.RuneCountInString(text) > MaxDescriptionChars {
		return fmt.Errorf("description exceeds %d character limit", MaxDescriptionChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("description contains invalid UTF-8")
	}
	return nil
}
