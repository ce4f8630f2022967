// internal/models/export.go
package models

import (
	"time"
)

// ExportResult describes a generated output prepared for download or saved
// under the data directory.
type ExportResult struct {
	SessionID   string       `json:"session_id"`
	Format      OutputFormat `json:"format"`
	Content     string       `json:"content,omitempty"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	GeneratedAt time.Time    `json:"generated_at"`
	FilePath    string       `json:"file_path,omitempty"`
	FileSize    int64        `json:"file_size,omitempty"`
	ScenesPath  string       `json:"scenes_path,omitempty"`
}
