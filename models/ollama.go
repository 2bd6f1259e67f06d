package models

// OllamaGenerateRequest is the body of an Ollama /api/generate call.
type OllamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}
