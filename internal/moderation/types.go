package moderation

// CheckRequest is published to moderation.check by the marketplace
// frontend gateway when an outbound chat message needs review before
// delivery.
type CheckRequest struct {
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	Ts        int64  `json:"ts"`
}

// CheckResult is published back to the gateway on
// moderation.result.<session_id> with the outcome of the chat-send
// policy, so the UI can show a substitution notice to the sender.
type CheckResult struct {
	SessionID      string `json:"session_id"`
	ThreadID       string `json:"thread_id"`
	DeliveredText  string `json:"delivered_text"`
	WasSubstituted bool   `json:"was_substituted"`
	Category       string `json:"category,omitempty"`
}
