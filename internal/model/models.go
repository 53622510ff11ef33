package model

import (
	"io"
	"time"
)

// Submission is the persisted record linking a submitter to an uploaded file.
type Submission struct {
	ID            string    `json:"_id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	AssignmentURL string    `json:"assignmentURL" db:"assignment_url"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// StoredFile is an uploaded file opened for reading. Callers close Body.
// Body also implements io.Seeker when the backing store allows it.
type StoredFile struct {
	Name        string
	Body        io.ReadCloser
	Size        int64
	ModTime     time.Time
	ContentType string
}
