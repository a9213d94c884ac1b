package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Database  string `json:"database"`
}

// CreatedResponse acknowledges a stored record
type CreatedResponse struct {
	Message string `json:"message"`
	ID      uint64 `json:"id"`
}

// SourceListResponse lists the known box ids
type SourceListResponse struct {
	Sources []string `json:"sources"`
}

// ReadingPageResponse is one page of a reading listing
type ReadingPageResponse struct {
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Results interface{} `json:"results"`
}

// PumpStatusResponse is the current pump state
type PumpStatusResponse struct {
	Status    string `json:"status"`
	EventTime string `json:"event_time"`
	Origin    string `json:"origin,omitempty"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
