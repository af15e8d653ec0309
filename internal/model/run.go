package model

import "time"

// RunStatus tracks the lifecycle of a report run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ReportRequest is the validated input for one report run.
type ReportRequest struct {
	ListingURL  string  `json:"listing_url"`
	PrincipalUF float64 `json:"principal_uf"`
	// RentCLP optionally overrides the comparable-derived rent estimate.
	RentCLP float64 `json:"rent_clp,omitempty"`
}

// Run is a stored report run record.
type Run struct {
	ID        string        `json:"id"`
	Request   ReportRequest `json:"request"`
	Status    RunStatus     `json:"status"`
	Report    *FinalReport  `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
