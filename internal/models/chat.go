package models

// Response modes understood by chat agents
const (
	ResponseModeBlocking  = "blocking"
	ResponseModeStreaming = "streaming"
)

// ChatRequest is sent to an AI chat agent (Dify, Gemini, OpenAI-compatible)
type ChatRequest struct {
	Query        string                 `json:"query"`
	ResponseMode string                 `json:"response_mode"`
	User         string                 `json:"user"`
	Inputs       map[string]interface{} `json:"inputs"`
}

// ChatResponse is the free-form answer returned by an agent
type ChatResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id,omitempty"`
	Provider       string `json:"provider"`
	ModelVersion   string `json:"model_version"`
}
