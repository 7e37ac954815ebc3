// Package gemini provides a client for the Google Gemini generateContent API,
// used to caption one image per request.
package gemini

import (
	"errors"
	"strings"
)

// Model constants for the captioning models offered in the UI
const (
	// ModelGemini3Pro is the most capable model, premium quality
	ModelGemini3Pro = "gemini-3-pro-preview"
	// ModelGemini3Flash balances speed and quality
	ModelGemini3Flash = "gemini-3-flash-preview"
	// ModelGeminiFlashLatest is the fastest and most economical
	ModelGeminiFlashLatest = "gemini-flash-latest"

	// DefaultModel is used when no model is configured
	DefaultModel = ModelGemini3Flash
)

// ModelOption describes a selectable model
type ModelOption struct {
	ID          string
	Name        string
	Description string
}

// Models lists the selectable models, best first
var Models = []ModelOption{
	{ModelGemini3Pro, "Gemini 3 Pro", "Most intelligent, premium quality"},
	{ModelGemini3Flash, "Gemini 3 Flash", "Best balance of speed & quality"},
	{ModelGeminiFlashLatest, "Gemini 2.5 Flash", "Fastest & most economical"},
}

// ModelDisplayName returns the friendly name of a model id, or the id itself
func ModelDisplayName(id string) string {
	for _, m := range Models {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

// ErrAborted is returned when the caller cancelled the request.
// It is not a captioning failure.
var ErrAborted = errors.New("aborted")

// APIError is a captioning failure. Message is shown to the user verbatim.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// CaptionRequest is one image plus the instructions for it
type CaptionRequest struct {
	Model              string
	SystemInstructions string
	Prompt             string
	MIMEType           string
	Data               []byte

	// Thinking asks the model to reason before answering
	Thinking bool
}

// Instruction returns the text part sent with the image: system instructions and
// prompt separated by a blank line, or the prompt alone.
func (r *CaptionRequest) Instruction() string {
	if r.SystemInstructions == "" {
		return r.Prompt
	}
	return r.SystemInstructions + "\n\n" + r.Prompt
}

func isGemini3(model string) bool {
	return strings.Contains(model, "gemini-3")
}

// GenerateContentRequest is the request structure for the Gemini API
type GenerateContentRequest struct {
	Contents         []*Content        `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content represents a content block in the API
type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts"`
}

// Part represents a part of content (text or inline data)
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData represents binary data (images) inline
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // Base64 encoded
}

// GenerationConfig contains generation parameters
type GenerationConfig struct {
	ThinkingConfig *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig controls model reasoning. Gemini 3 models take a level,
// older models a token budget (-1 = dynamic).
type ThinkingConfig struct {
	ThinkingLevel  string `json:"thinkingLevel,omitempty"`
	ThinkingBudget *int   `json:"thinkingBudget,omitempty"`
}

// GenerateContentResponse is the response from the Gemini API.
// Error is set when the API reports a failure in the body.
type GenerateContentResponse struct {
	Candidates    []*Candidate   `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	Error         *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody is the API's error object
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Candidate represents a generated response candidate
type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

// UsageMetadata contains token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// FirstText returns the text of the first part of the first candidate
func (r *GenerateContentResponse) FirstText() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	c := r.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return ""
	}
	return c.Content.Parts[0].Text
}
