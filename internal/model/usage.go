package model

// TokenUsage tracks model token consumption across pipeline stages.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns input + output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
