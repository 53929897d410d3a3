package domain

// Message is a composed push notification: a visible title/body pair plus a
// typed data payload the client app uses for routing and deep-linking.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// SendOutcome is the per-endpoint result of a batch dispatch.
type SendOutcome struct {
	Token     string
	MessageID string
	Err       error
	// Permanent marks the endpoint registration as invalid (unregistered,
	// disabled). Only permanent failures queue the token for removal.
	Permanent bool
}

// DispatchResult summarizes one tenant's fanout.
type DispatchResult struct {
	SuccessCount  int      `json:"success_count"`
	FailureCount  int      `json:"failure_count"`
	Broadcast     bool     `json:"broadcast"`
	InvalidTokens []string `json:"-"`
}
