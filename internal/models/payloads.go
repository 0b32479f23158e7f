package models

// These structs define the JSON payloads exchanged with the parse endpoint,
// the upload event trigger and the completion workflow.

// ParsePDFResponse is the body returned by POST /parse-pdf.
type ParsePDFResponse struct {
	Content string `json:"content"`
}

// ErrorResponse is the body returned for rejected or failed requests.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ParsedEvent is the argument passed to the completion workflow.
type ParsedEvent struct {
	Fingerprint string `json:"fingerprint"`
	CacheKey    string `json:"cacheKey"`
	Filename    string `json:"filename,omitempty"`
	PageCount   int    `json:"pageCount"`
}

// ReviewResponse pairs a reviewed file with the model's critique.
type ReviewResponse struct {
	Path   string `json:"path"`
	Review string `json:"review"`
}
