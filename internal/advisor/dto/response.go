package dto

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunStatusResponse reports whether a run is in progress.
type RunStatusResponse struct {
	Running bool `json:"running"`
}
