package models

import "time"

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDeleted    JobStatus = "deleted"
)

// Job tracks one /convert request while it is in flight. It is never persisted;
// the artifact directory is the only durable state.
type Job struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	OutputTemplate string    `json:"-"`
	Extension      string    `json:"extension"`
	Status         JobStatus `json:"status"`
	Progress       int       `json:"progress"`
	Filename       string    `json:"filename,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProgressEvent is sent to clients over WebSocket.
type ProgressEvent struct {
	ID          string    `json:"id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Artifact is a converted file sitting in the downloads directory.
type Artifact struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// VideoInfo is the subset of the extraction tool's metadata dump exposed by /info.
type VideoInfo struct {
	Title     string   `json:"title"`
	Duration  *float64 `json:"duration"`
	Uploader  string   `json:"uploader"`
	Thumbnail string   `json:"thumbnail"`
}

// URLRequest is the body accepted by /convert and /info.
type URLRequest struct {
	URL string `json:"url"`
}

// ConvertResponse is returned by a successful /convert.
type ConvertResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
}

// FilesResponse is returned by /files.
type FilesResponse struct {
	Files []Artifact `json:"files"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
