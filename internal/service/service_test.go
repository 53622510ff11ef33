package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"submission_service/internal/errdefs"
	"submission_service/internal/model"
	"submission_service/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) CreateSubmission(ctx context.Context, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]byte), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, key, data, ttl).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishSubmissionCreated(ctx context.Context, submission *model.Submission) error {
	return m.Called(ctx, submission).Error(0)
}

type failingStore struct {
	err error
}

func (f failingStore) Save(context.Context, string, io.Reader) error {
	return f.err
}

func (f failingStore) Open(context.Context, string) (*model.StoredFile, error) {
	return nil, f.err
}

var fixedNow = time.UnixMilli(1709294400123)

func newDiskStore(t *testing.T) *storage.DiskStore {
	t.Helper()
	store, err := storage.NewDiskStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	return store
}

func validInput(fileName, content string) *model.CreateSubmissionInput {
	return &model.CreateSubmissionInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		FileName: fileName,
		File:     strings.NewReader(content),
	}
}

func TestStoredFileName(t *testing.T) {
	assert.Equal(t, "1709294400123_hw1.pdf", StoredFileName(fixedNow, "hw1.pdf"))
}

func TestCreateSubmission_Success(t *testing.T) {
	repo := new(MockSubmissionRepository)
	store := newDiskStore(t)
	svc := NewSubmissionService(repo, store, WithClock(func() time.Time { return fixedNow }))

	expectedInput := &model.RepositoryCreateSubmissionInput{
		Name:          "Alice",
		Email:         "alice@example.com",
		AssignmentURL: "/public/files/1709294400123_hw1.pdf",
	}
	created := &model.Submission{ID: "id-1", Name: "Alice", Email: "alice@example.com", AssignmentURL: expectedInput.AssignmentURL}
	repo.On("CreateSubmission", mock.Anything, expectedInput).Return(created, nil)

	res, err := svc.CreateSubmission(context.Background(), validInput("hw1.pdf", "%PDF-1.4..."))

	require.NoError(t, err)
	assert.Equal(t, created, res)
	data, err := os.ReadFile(filepath.Join(store.Dir(), "1709294400123_hw1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4...", string(data))
	repo.AssertExpectations(t)
}

func TestCreateSubmission_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input *model.CreateSubmissionInput
	}{
		{"nil input", nil},
		{"missing file", &model.CreateSubmissionInput{Name: "Alice", Email: "a@b.c"}},
		{"missing file name", &model.CreateSubmissionInput{Name: "Alice", Email: "a@b.c", File: strings.NewReader("x")}},
		{"missing name", &model.CreateSubmissionInput{Email: "a@b.c", FileName: "a.txt", File: strings.NewReader("x")}},
		{"blank email", &model.CreateSubmissionInput{Name: "Alice", Email: "  ", FileName: "a.txt", File: strings.NewReader("x")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockSubmissionRepository)
			svc := NewSubmissionService(repo, failingStore{err: errors.New("must not be called")})

			res, err := svc.CreateSubmission(context.Background(), tc.input)

			assert.Nil(t, res)
			assert.True(t, errors.Is(err, errdefs.ErrValidation))
			repo.AssertNotCalled(t, "CreateSubmission", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateSubmission_UploadError(t *testing.T) {
	repo := new(MockSubmissionRepository)
	svc := NewSubmissionService(repo, failingStore{err: errors.New("no space left on device")})

	res, err := svc.CreateSubmission(context.Background(), validInput("a.txt", "x"))

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errdefs.ErrUpload))
	assert.ErrorContains(t, err, "no space left on device")
	repo.AssertNotCalled(t, "CreateSubmission", mock.Anything, mock.Anything)
}

func TestCreateSubmission_PersistenceErrorLeavesFile(t *testing.T) {
	repo := new(MockSubmissionRepository)
	store := newDiskStore(t)
	svc := NewSubmissionService(repo, store, WithClock(func() time.Time { return fixedNow }))

	repo.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil, errors.New("connection lost"))

	res, err := svc.CreateSubmission(context.Background(), validInput("a.txt", "orphan"))

	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errdefs.ErrPersistence))
	_, statErr := os.Stat(filepath.Join(store.Dir(), "1709294400123_a.txt"))
	assert.NoError(t, statErr)
}

func TestCreateSubmission_SameNameDifferentMillis(t *testing.T) {
	repo := new(MockSubmissionRepository)
	store := newDiskStore(t)
	ticks := []time.Time{fixedNow, fixedNow.Add(time.Millisecond)}
	call := 0
	svc := NewSubmissionService(repo, store, WithClock(func() time.Time {
		ts := ticks[call]
		call++
		return ts
	}))

	repo.On("CreateSubmission", mock.Anything, mock.Anything).Return(&model.Submission{ID: "x"}, nil)

	_, err := svc.CreateSubmission(context.Background(), validInput("a.txt", "one"))
	require.NoError(t, err)
	_, err = svc.CreateSubmission(context.Background(), validInput("a.txt", "two"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(store.Dir(), "1709294400123_a.txt"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(store.Dir(), "1709294400124_a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(first))
	assert.Equal(t, "two", string(second))

	calls := repo.Calls
	require.Len(t, calls, 2)
	url1 := calls[0].Arguments.Get(1).(*model.RepositoryCreateSubmissionInput).AssignmentURL
	url2 := calls[1].Arguments.Get(1).(*model.RepositoryCreateSubmissionInput).AssignmentURL
	assert.NotEqual(t, url1, url2)
	assert.Equal(t, strings.TrimPrefix(url1, "/public/files/1709294400123"), strings.TrimPrefix(url2, "/public/files/1709294400124"))
}

// Same-millisecond uploads of one name share a stored name; the later write wins.
func TestCreateSubmission_SameMillisOverwrites(t *testing.T) {
	repo := new(MockSubmissionRepository)
	store := newDiskStore(t)
	svc := NewSubmissionService(repo, store, WithClock(func() time.Time { return fixedNow }))

	repo.On("CreateSubmission", mock.Anything, mock.Anything).Return(&model.Submission{ID: "x"}, nil)

	_, err := svc.CreateSubmission(context.Background(), validInput("a.txt", "one"))
	require.NoError(t, err)
	_, err = svc.CreateSubmission(context.Background(), validInput("a.txt", "two"))
	require.NoError(t, err)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(store.Dir(), "1709294400123_a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestCreateSubmission_InvalidatesCacheAndPublishes(t *testing.T) {
	repo := new(MockSubmissionRepository)
	cache := new(MockCache)
	events := new(MockEventPublisher)
	svc := NewSubmissionService(repo, newDiskStore(t), WithCache(cache, time.Minute), WithEvents(events))

	created := &model.Submission{ID: "id-1", Name: "Alice"}
	repo.On("CreateSubmission", mock.Anything, mock.Anything).Return(created, nil)
	cache.On("Delete", mock.Anything, listCacheKey).Return(nil)
	events.On("PublishSubmissionCreated", mock.Anything, created).Return(errors.New("broker down"))

	res, err := svc.CreateSubmission(context.Background(), validInput("a.txt", "x"))

	require.NoError(t, err)
	assert.Equal(t, created, res)
	cache.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestListSubmissions(t *testing.T) {
	t.Run("from repository", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		svc := NewSubmissionService(repo, newDiskStore(t))
		expected := []*model.Submission{{ID: "1", Name: "Alice"}}
		repo.On("ListSubmissions", mock.Anything).Return(expected, nil)

		res, err := svc.ListSubmissions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, expected, res)
	})

	t.Run("nil becomes empty", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		svc := NewSubmissionService(repo, newDiskStore(t))
		repo.On("ListSubmissions", mock.Anything).Return(nil, nil)

		res, err := svc.ListSubmissions(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		svc := NewSubmissionService(repo, newDiskStore(t))
		repo.On("ListSubmissions", mock.Anything).Return(nil, errors.New("timeout"))

		res, err := svc.ListSubmissions(context.Background())

		assert.Nil(t, res)
		assert.EqualError(t, err, "timeout")
	})
}

func TestListSubmissions_Cache(t *testing.T) {
	expected := []*model.Submission{{ID: "1", Name: "Alice", AssignmentURL: "/public/files/1_a.txt"}}
	encoded, err := json.Marshal(expected)
	require.NoError(t, err)

	t.Run("hit skips repository", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		cache := new(MockCache)
		svc := NewSubmissionService(repo, newDiskStore(t), WithCache(cache, time.Minute))
		cache.On("Get", mock.Anything, listCacheKey).Return(encoded, true)

		res, err := svc.ListSubmissions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, expected, res)
		repo.AssertNotCalled(t, "ListSubmissions", mock.Anything)
	})

	t.Run("miss fills cache", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		cache := new(MockCache)
		svc := NewSubmissionService(repo, newDiskStore(t), WithCache(cache, time.Minute))
		cache.On("Get", mock.Anything, listCacheKey).Return(nil, false)
		repo.On("ListSubmissions", mock.Anything).Return(expected, nil)
		cache.On("Set", mock.Anything, listCacheKey, encoded, time.Minute).Return(nil)

		res, err := svc.ListSubmissions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, expected, res)
		cache.AssertExpectations(t)
	})

	t.Run("malformed entry falls back", func(t *testing.T) {
		repo := new(MockSubmissionRepository)
		cache := new(MockCache)
		svc := NewSubmissionService(repo, newDiskStore(t), WithCache(cache, time.Minute))
		cache.On("Get", mock.Anything, listCacheKey).Return([]byte("{not json"), true)
		repo.On("ListSubmissions", mock.Anything).Return(expected, nil)
		cache.On("Set", mock.Anything, listCacheKey, mock.Anything, time.Minute).Return(errors.New("redis down"))

		res, err := svc.ListSubmissions(context.Background())

		require.NoError(t, err)
		assert.Equal(t, expected, res)
	})
}

func TestOpenFile(t *testing.T) {
	store := newDiskStore(t)
	svc := NewSubmissionService(new(MockSubmissionRepository), store)
	require.NoError(t, store.Save(context.Background(), "1_a.txt", strings.NewReader("hello")))

	file, err := svc.OpenFile(context.Background(), "1_a.txt")
	require.NoError(t, err)
	defer func() { _ = file.Body.Close() }()
	data, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = svc.OpenFile(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestPing(t *testing.T) {
	repo := new(MockSubmissionRepository)
	svc := NewSubmissionService(repo, newDiskStore(t))
	repo.On("Ping", mock.Anything).Return(errors.New("no reachable servers")).Once()

	assert.Error(t, svc.Ping(context.Background()))
}
