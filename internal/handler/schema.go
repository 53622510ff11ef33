package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
	statusError  = "error"

	multipartMemory = 32 << 20
)

type listSubmissionsResponse struct {
	Status      string              `json:"status"`
	Assignments []*model.Submission `json:"assignments"`
}

type listSubmissionsErrorResponse struct {
	Status string `json:"status"`
	Err    string `json:"err"`
}

type createSubmissionResponse struct {
	Status string `json:"status"`
}

type createSubmissionErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// createSubmissionRequest is the multipart form accepted by POST /data.
type createSubmissionRequest struct {
	Name   string
	Email  string
	File   multipart.File
	Header *multipart.FileHeader
}

// parseCreateSubmissionRequest checks field presence before anything is written.
// Values are passed on as received; blank only counts as missing.
// The caller closes the returned file and removes the form's temp files.
func parseCreateSubmissionRequest(r *http.Request) (*createSubmissionRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid multipart form: %w: %w", errdefs.ErrValidation, err)
	}

	req := &createSubmissionRequest{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("file is required: %w", errdefs.ErrValidation)
		}
		return nil, fmt.Errorf("invalid file: %w: %w", errdefs.ErrValidation, err)
	}
	req.File = file
	req.Header = header

	switch {
	case header.Filename == "":
		_ = file.Close()
		return nil, fmt.Errorf("file name is required: %w", errdefs.ErrValidation)
	case strings.TrimSpace(req.Name) == "":
		_ = file.Close()
		return nil, fmt.Errorf("name is required: %w", errdefs.ErrValidation)
	case strings.TrimSpace(req.Email) == "":
		_ = file.Close()
		return nil, fmt.Errorf("email is required: %w", errdefs.ErrValidation)
	}

	return req, nil
}

func (req *createSubmissionRequest) toInput() *model.CreateSubmissionInput {
	return &model.CreateSubmissionInput{
		Name:     req.Name,
		Email:    req.Email,
		FileName: req.Header.Filename,
		File:     req.File,
	}
}
