package http

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StopResponse is the response body for POST /api/v1/sessions/:id/stop.
type StopResponse struct {
	Status string `json:"status"`
}

// PromptRequest is the request body for POST /api/v1/sessions/:id/prompt.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// PromptResponse is the response body for POST /api/v1/sessions/:id/prompt.
type PromptResponse struct {
	Status string `json:"status"`
}

// BlockedResponse is returned when a hook vetoed the requested transition.
type BlockedResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
