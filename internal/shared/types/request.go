package types

// CreateAppRequest is the body of POST /api/apps.
// Required fields are checked by the apps manager so that the error text
// stays "Missing required fields" regardless of which one is absent.
type CreateAppRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent"`
	JSContent   string `json:"jsContent"`
	PromptUsed  string `json:"promptUsed"`
}

// GenerateRequest is the body of POST /api/claude/generate
type GenerateRequest struct {
	Prompt              string                `json:"prompt"`
	ConversationHistory []ConversationMessage `json:"conversationHistory" binding:"omitempty,max=50,dive"`
}

// CommentRequest is the body of POST /api/apps/:id/comments
type CommentRequest struct {
	Body string `json:"body" binding:"required,max=1000,nohtml"`
}

// RenderRequest is the body of POST /api/sandbox/render
type RenderRequest struct {
	Title       string `json:"title" binding:"max=256"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent"`
	JSContent   string `json:"jsContent"`
}

// WSMessage represents a WebSocket message from a client
type WSMessage struct {
	Type    string                `json:"type"`
	Prompt  string                `json:"prompt,omitempty"`
	History []ConversationMessage `json:"history,omitempty"`
	AppIDs  []string              `json:"appIds,omitempty"`
	AppID   string                `json:"appId,omitempty"`
	Payload map[string]any        `json:"payload,omitempty"`
}
