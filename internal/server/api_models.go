package server

// CheckURLRequest is the payload of a URL scan.
type CheckURLRequest struct {
	URL string `json:"url" example:"https://example.com/login"`
}

// ScanFileRequest carries a file as base64 for clients that cannot send
// multipart forms.
type ScanFileRequest struct {
	FileBuffer string `json:"fileBuffer" example:"TVqQAAMAAAAEAAAA"`
	FileName   string `json:"fileName" example:"invoice.pdf.exe"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
