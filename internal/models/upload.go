package models

import "godsendjoseph.dev/gaushala-api/internal/utils"

// UploadLog is one recorded outcome of storing a cow photo.
type UploadLog struct {
	ID          int64             `json:"id"`
	UploadID    string            `json:"upload_id"`
	FileName    string            `json:"file_name"`
	Path        string            `json:"path"`
	PublicURL   string            `json:"public_url"`
	Strategy    string            `json:"strategy"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	Success     bool              `json:"success"`
	Diagnostics utils.StringSlice `json:"diagnostics"`
	CreatedAt   string            `json:"created_at"`
}
