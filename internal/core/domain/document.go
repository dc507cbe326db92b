package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ArchiveEntry is a previously submitted document kept for local comparison.
// Entries are immutable once stored and unique by Fingerprint.
type ArchiveEntry struct {
	ID          string    `json:"id"`
	Submitter   string    `json:"submitter"`
	Filename    string    `json:"filename"`
	Content     string    `json:"content,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// Label is the source identifier reported for local matches.
func (e ArchiveEntry) Label() string {
	if e.Filename == "" {
		return e.Submitter
	}
	return e.Submitter + " (" + e.Filename + ")"
}

// Fingerprint returns the content hash used for archive uniqueness.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

type ArchiveStats struct {
	Entries int `json:"entries"`
}

// Submission is an uploaded document before text extraction.
type Submission struct {
	Submitter string
	Filename  string
	Data      []byte
}
