package llm

import "sync"

// Usage is a token count pair.
type Usage struct {
	Input  int64 `json:"input_tokens"`
	Output int64 `json:"output_tokens"`
	Calls  int   `json:"calls"`
}

// TokenTracker tracks token usage across API calls, in total and per agent.
type TokenTracker struct {
	mu      sync.Mutex
	total   Usage
	byAgent map[string]Usage
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{byAgent: make(map[string]Usage)}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.AddFor("", input, output)
}

// AddFor records token usage attributed to a named agent. An empty name
// counts toward the total only.
func (t *TokenTracker) AddFor(agent string, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Input += input
	t.total.Output += output
	t.total.Calls++
	if agent != "" {
		u := t.byAgent[agent]
		u.Input += input
		u.Output += output
		u.Calls++
		t.byAgent[agent] = u
	}
}

// Total returns the total usage tracked.
func (t *TokenTracker) Total() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// ByAgent returns a copy of the per-agent usage breakdown.
func (t *TokenTracker) ByAgent() map[string]Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Usage, len(t.byAgent))
	for k, v := range t.byAgent {
		out[k] = v
	}
	return out
}

// Reset clears all tracked token usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = Usage{}
	t.byAgent = make(map[string]Usage)
}

// Cost estimates the cost in USD based on current Claude pricing.
// This uses approximate pricing and should be updated as pricing changes.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Sonnet pricing: $3/1M input, $15/1M output (approximate)
	inputCost := float64(t.total.Input) / 1_000_000 * 3.0
	outputCost := float64(t.total.Output) / 1_000_000 * 15.0
	return inputCost + outputCost
}
