package domain

import "time"

// Asset stores metadata for an uploaded image.
type Asset struct {
	ID         string
	CourseID   string
	StorageKey string
	PublicURL  string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedBy string
	CreatedAt  time.Time
}
