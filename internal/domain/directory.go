package domain

import "time"

// DirectoryRecord is the reverse index from a normalized contact identifier
// (phone number or email address) to its owner. Phone keys map to a user ID,
// email keys map to a phone number. A key identifies at most one owner at a
// time; a rebind overwrites the previous owner (last writer wins).
type DirectoryRecord struct {
	Key       string    `json:"key" dynamodbav:"key"`
	OwnerID   string    `json:"owner_id" dynamodbav:"owner_id"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
