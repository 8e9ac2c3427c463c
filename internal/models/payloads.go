package models

// These structs define the JSON payloads exchanged with HTTP clients and
// storage-triggered functions.

// SubmitResponse is returned when a batch is accepted.
type SubmitResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// BatchManifest lists the objects of a batch uploaded straight to a bucket.
// Dropping a manifest into the bucket starts a pipeline run.
type BatchManifest struct {
	Documents []string `json:"documents"`
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
