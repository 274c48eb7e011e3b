package domain

import "time"

// Attachment is an uploaded file belonging to exactly one idea or folder.
// The bytes live in object storage under StorageKey; only metadata is kept
// in the database.
type Attachment struct {
	ID         string
	IdeaID     *string
	FolderID   *string
	Filename   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	UploadedAt time.Time
}
