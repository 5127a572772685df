package domain

import "time"

// File is a metadata row for a media object (receipt photo, voice note)
// stored in S3. PK: file_id.
type File struct {
	FileID      string    `json:"id" dynamodbav:"file_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Key         string    `json:"key" dynamodbav:"key"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	Size        int64     `json:"size" dynamodbav:"size"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
}

// UploadMediaRequest carries a base64-encoded media object.
type UploadMediaRequest struct {
	Base64      string `json:"base64" validate:"required"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}
