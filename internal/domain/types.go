package domain

import "time"

// Model is a catalog entry for one backend LLM. Rows are seeded
// administratively and read-only on the request path.
type Model struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Integration   string    `json:"integration"`
	Priority      int       `json:"priority"`
	RPM           int       `json:"rpm"`
	TPM           int       `json:"tpm"`
	RPD           int       `json:"rpd"`
	CredentialRef string    `json:"credential_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UsageCounter tracks requests served today for one model. The daily
// reset is driven by an external scheduler through the quota store.
type UsageCounter struct {
	ModelID int64 `json:"model_id"`
	Count   int   `json:"count"`
}

// Exhausted reports whether the model has consumed its daily ceiling.
func (u UsageCounter) Exhausted(m Model) bool {
	return u.Count >= m.RPD
}

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is an append-only turn log keyed by an opaque id.
// Model is a resume hint set on creation; selection still runs per turn.
type Conversation struct {
	ID       string `json:"conversation_id"`
	Model    string `json:"model"`
	Messages []Turn `json:"messages"`
}

// ChatResult is the provider-agnostic shape returned to callers. Optional
// provider metadata stays nil when the backend does not supply it.
type ChatResult struct {
	Text              string             `json:"text"`
	Outputs           []OutputSegment    `json:"outputs,omitempty"`
	Model             string             `json:"model,omitempty"`
	Usage             TokenUsage         `json:"usage"`
	FinishReason      string             `json:"finish_reason,omitempty"`
	SafetyRatings     []SafetyRating     `json:"safety_ratings,omitempty"`
	Citations         []Citation         `json:"citations,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"grounding_metadata,omitempty"`
	ConversationID    string             `json:"conversation_id,omitempty"`
}

// OutputSegment is one raw output block as received from the provider.
type OutputSegment struct {
	Type    string `json:"type,omitempty"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

// TokenUsage carries the token breakdown. Each field is optional because
// providers differ in what they report.
type TokenUsage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

type SafetyRating struct {
	Category    string `json:"category,omitempty"`
	Probability string `json:"probability,omitempty"`
	Blocked     *bool  `json:"blocked,omitempty"`
}

type Citation struct {
	StartIndex *int   `json:"start_index,omitempty"`
	EndIndex   *int   `json:"end_index,omitempty"`
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title,omitempty"`
	License    string `json:"license,omitempty"`
}

type GroundingMetadata struct {
	WebSearchQueries []string `json:"web_search_queries,omitempty"`
	GroundingChunks  []any    `json:"grounding_chunks,omitempty"`
}
