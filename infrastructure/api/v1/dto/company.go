package dto

import "time"

// CompanyRequest is the body of POST /api/v1/companies.
type CompanyRequest struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
	CIK    string `json:"cik,omitempty"`
}

// CompanyResponse describes one tracked company.
type CompanyResponse struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	CIK       string    `json:"cik"`
	Sector    string    `json:"sector,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyListResponse is the body returned by GET /api/v1/companies.
type CompanyListResponse struct {
	Companies []CompanyResponse `json:"companies"`
}
