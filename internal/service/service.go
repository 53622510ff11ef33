package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"submission_service/pkg/logging"
	"time"

	"go.uber.org/zap"
)

const (
	// PublicFilesPrefix is the URL path under which stored uploads are served.
	PublicFilesPrefix = "/public/files/"

	listCacheKey = "submissions:all"
)

type SubmissionRepository interface {
	ListSubmissions(ctx context.Context) ([]*model.Submission, error)
	CreateSubmission(ctx context.Context, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error)
	Ping(ctx context.Context) error
}

type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (*model.StoredFile, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishSubmissionCreated(ctx context.Context, submission *model.Submission) error
}

type SubmissionService struct {
	repo     SubmissionRepository
	files    FileStore
	cache    Cache
	cacheTTL time.Duration
	events   EventPublisher
	now      func() time.Time
}

type Option func(*SubmissionService)

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *SubmissionService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func WithEvents(events EventPublisher) Option {
	return func(s *SubmissionService) {
		s.events = events
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *SubmissionService) {
		s.now = now
	}
}

func NewSubmissionService(repo SubmissionRepository, files FileStore, opts ...Option) *SubmissionService {
	s := &SubmissionService{
		repo:  repo,
		files: files,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoredFileName prefixes the original name with the upload time in epoch milliseconds.
func StoredFileName(at time.Time, original string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "_" + original
}

func (s *SubmissionService) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	logger := logging.FromContext(ctx)

	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, listCacheKey); ok {
			var cached []*model.Submission
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			logger.Warn(ctx, "ignoring malformed cache entry", zap.String("key", listCacheKey))
		}
	}

	submissions, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []*model.Submission{}
	}

	if s.cache != nil {
		data, err := json.Marshal(submissions)
		if err == nil {
			err = s.cache.Set(ctx, listCacheKey, data, s.cacheTTL)
		}
		if err != nil {
			logger.Warn(ctx, "failed to cache submissions", zap.Error(err))
		}
	}

	return submissions, nil
}

// CreateSubmission stores the file first and then inserts the record. A failed
// insert leaves the stored file behind; it is logged, not removed.
func (s *SubmissionService) CreateSubmission(ctx context.Context, input *model.CreateSubmissionInput) (*model.Submission, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)

	storedName := StoredFileName(s.now(), input.FileName)
	assignmentURL := PublicFilesPrefix + storedName

	if err := s.files.Save(ctx, storedName, input.File); err != nil {
		return nil, fmt.Errorf("failed to store file: %w: %w", errdefs.ErrUpload, err)
	}

	submission, err := s.repo.CreateSubmission(ctx, &model.RepositoryCreateSubmissionInput{
		Name:          input.Name,
		Email:         input.Email,
		AssignmentURL: assignmentURL,
	})
	if err != nil {
		logger.Warn(ctx, "stored file has no record", zap.String("assignment_url", assignmentURL), zap.Error(err))
		if !errors.Is(err, errdefs.ErrPersistence) {
			err = fmt.Errorf("%w: %w", errdefs.ErrPersistence, err)
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			logger.Warn(ctx, "failed to invalidate submissions cache", zap.Error(err))
		}
	}

	if s.events != nil {
		if err := s.events.PublishSubmissionCreated(ctx, submission); err != nil {
			logger.Error(ctx, "failed to publish submission event", zap.String("id", submission.ID), zap.Error(err))
		}
	}

	return submission, nil
}

func (s *SubmissionService) OpenFile(ctx context.Context, name string) (*model.StoredFile, error) {
	return s.files.Open(ctx, name)
}

func (s *SubmissionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func validateCreateInput(input *model.CreateSubmissionInput) error {
	switch {
	case input == nil:
		return fmt.Errorf("empty submission: %w", errdefs.ErrValidation)
	case input.File == nil || strings.TrimSpace(input.FileName) == "":
		return fmt.Errorf("file is required: %w", errdefs.ErrValidation)
	case strings.TrimSpace(input.Name) == "":
		return fmt.Errorf("name is required: %w", errdefs.ErrValidation)
	case strings.TrimSpace(input.Email) == "":
		return fmt.Errorf("email is required: %w", errdefs.ErrValidation)
	}
	return nil
}
