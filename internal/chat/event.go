package chat

// ChatEvent is the payload published to NATS chat.<thread_id> subjects
// for delivery to thread participants.
type ChatEvent struct {
	Type        string `json:"type"`                  // "message", "thread_archived"
	From        string `json:"from"`                  // sender's user ID
	Text        string `json:"text,omitempty"`        // delivered text (post-moderation)
	Substituted bool   `json:"substituted,omitempty"` // true when a warning replaced the original
	Category    string `json:"category,omitempty"`    // detector category for substituted messages
	Ts          int64  `json:"ts,omitempty"`          // unix timestamp
}
