package model

import (
	"io"
)

type CreateSubmissionInput struct {
	Name     string
	Email    string
	FileName string
	File     io.Reader
}

type RepositoryCreateSubmissionInput struct {
	Name          string
	Email         string
	AssignmentURL string
}
