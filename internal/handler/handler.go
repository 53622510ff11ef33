//go:generate mockgen -source=handler.go -destination=../mocks/handler_mocks.go -package=mocks
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"submission_service/pkg/logging"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SubmissionService interface {
	ListSubmissions(ctx context.Context) ([]*model.Submission, error)
	CreateSubmission(ctx context.Context, input *model.CreateSubmissionInput) (*model.Submission, error)
	OpenFile(ctx context.Context, name string) (*model.StoredFile, error)
	Ping(ctx context.Context) error
}

type SubmissionHandler struct {
	svc SubmissionService
}

func NewSubmissionHandler(svc SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/health", h.Health)
	r.Get("/data", h.ListSubmissions)
	r.Post("/data", h.CreateSubmission)
	r.Get("/public/files/{fileName}", h.GetFile)
}

func (h *SubmissionHandler) Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Backend Home"))
}

func (h *SubmissionHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error(r.Context(), "store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: statusOK})
}

// ListSubmissions answers 201 on success; clients of this API rely on that code.
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	submissions, err := h.svc.ListSubmissions(ctx)
	if err != nil {
		logging.FromContext(ctx).Error(ctx, "failed to list submissions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, listSubmissionsErrorResponse{Status: statusFailed, Err: err.Error()})
		return
	}
	if submissions == nil {
		submissions = []*model.Submission{}
	}

	writeJSON(w, http.StatusCreated, listSubmissionsResponse{Status: statusOK, Assignments: submissions})
}

// CreateSubmission maps storage and persistence failures to 500. Any other
// failure is reported with status 200 and {"status":"error"}, so clients must
// check the body's status field.
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	req, err := parseCreateSubmissionRequest(r)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		logger.Info(ctx, "rejected submission", zap.Error(err))
		writeJSON(w, http.StatusOK, createSubmissionErrorResponse{Status: statusError, Error: err.Error()})
		return
	}
	defer func() { _ = req.File.Close() }()

	submission, err := h.svc.CreateSubmission(ctx, req.toInput())
	if err != nil {
		logger.Error(ctx, "failed to create submission", zap.Error(err))
		switch {
		case errors.Is(err, errdefs.ErrUpload), errors.Is(err, errdefs.ErrPersistence):
			writeErrorJSON(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, createSubmissionErrorResponse{Status: statusError, Error: err.Error()})
		}
		return
	}

	logger.Info(ctx, "submission created",
		zap.String("id", submission.ID),
		zap.String("assignment_url", submission.AssignmentURL),
	)
	writeJSON(w, http.StatusCreated, createSubmissionResponse{Status: statusOK})
}

func (h *SubmissionHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := fileNameParam(r)
	if err != nil {
		writeErrorJSON(w, http.StatusNotFound, "not found")
		return
	}

	file, err := h.svc.OpenFile(ctx, name)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "not found")
			return
		}
		logging.FromContext(ctx).Error(ctx, "failed to open file", zap.String("file", name), zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	defer func() { _ = file.Body.Close() }()

	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	}

	if rs, ok := file.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, file.Name, file.ModTime, rs)
		return
	}

	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file.Body); err != nil {
		logging.FromContext(ctx).Error(ctx, "failed to stream file", zap.String("file", name), zap.Error(err))
	}
}

// fileNameParam returns the decoded {fileName} segment. chi matches against
// RawPath when the request carried escapes the default encoding would not produce.
func fileNameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "fileName")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}
