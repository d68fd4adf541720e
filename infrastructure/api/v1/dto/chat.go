// Package dto defines the JSON request and response shapes of the v1
// API.
package dto

import "time"

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Question   string `json:"question"`
	Ticker     string `json:"ticker,omitempty"`
	FiscalYear int    `json:"fiscal_year,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// ChatSource attributes part of an answer to a filing chunk.
type ChatSource struct {
	Ticker     string    `json:"ticker"`
	Company    string    `json:"company"`
	FilingType string    `json:"filing_type"`
	FiscalYear int       `json:"fiscal_year"`
	FiledAt    time.Time `json:"filed_at"`
	Section    string    `json:"section,omitempty"`
	Snippet    string    `json:"snippet"`
	Score      float64   `json:"score"`
}

// ChatResponse is the body returned by POST /api/v1/chat.
type ChatResponse struct {
	ID      string       `json:"id"`
	Answer  string       `json:"answer"`
	Sources []ChatSource `json:"sources"`
}
