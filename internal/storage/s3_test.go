package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
)

// mockS3Client is a mock implementation of the s3Client interface.
type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *mockS3Client) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *mockS3Client) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockS3Client) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, dst, src)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockS3Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *mockS3Client) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

const testKey = "hermes_SPANI_l0_2023040-000018_v01.bin"

func TestS3Store_Stat(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")

	// Test case: object exists
	mockClient.On("StatObject", mock.Anything, "hermes-spani", testKey, mock.Anything).
		Return(minio.ObjectInfo{Key: testKey, ETag: `"abc"`, Size: 42}, nil).Once()
	info, found, err := s.Stat(context.Background(), "hermes-spani", testKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", info.ETag)
	assert.Equal(t, int64(42), info.Size)

	// Test case: object missing, bucket existence is checked once and cached
	mockClient.On("StatObject", mock.Anything, "hermes-spani", "missing", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}).Once()
	mockClient.On("BucketExists", mock.Anything, "hermes-spani").Return(true, nil).Once()
	found, err = s.Exists(context.Background(), "hermes-spani", "missing")
	require.NoError(t, err)
	assert.False(t, found)

	// Test case: HEAD style not found without a code
	mockClient.On("StatObject", mock.Anything, "hermes-spani", "head-missing", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{StatusCode: http.StatusNotFound}).Once()
	found, err = s.Exists(context.Background(), "hermes-spani", "head-missing")
	require.NoError(t, err)
	assert.False(t, found)

	// Test case: access denied is a probe failure, not a miss
	mockClient.On("StatObject", mock.Anything, "hermes-spani", "denied", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}).Once()
	found, err = s.Exists(context.Background(), "hermes-spani", "denied")
	assert.ErrorIs(t, err, core.ErrProbe)
	assert.False(t, found)

	// Test case: missing bucket is a probe failure
	mockClient.On("StatObject", mock.Anything, "nope", testKey, mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}).Once()
	_, err = s.Exists(context.Background(), "nope", testKey)
	assert.ErrorIs(t, err, core.ErrProbe)

	mockClient.AssertExpectations(t)
}

func TestS3Store_StatMissingBucket(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")

	// HEAD on a missing bucket is reported as NoSuchKey
	mockClient.On("StatObject", mock.Anything, "gone", testKey, mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}).Twice()
	mockClient.On("BucketExists", mock.Anything, "gone").Return(false, nil).Once()
	found, err := s.Exists(context.Background(), "gone", testKey)
	assert.ErrorIs(t, err, core.ErrProbe)
	assert.False(t, found)
	assert.False(t, s.bucketExists["gone"])

	mockClient.On("BucketExists", mock.Anything, "gone").Return(false, errors.New("network")).Once()
	_, _, err = s.Stat(context.Background(), "gone", testKey)
	assert.ErrorIs(t, err, core.ErrProbe)
	assert.Contains(t, err.Error(), "network")

	mockClient.AssertExpectations(t)
}

func TestS3Store_Copy(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")

	dst := minio.CopyDestOptions{Bucket: "hermes-spani", Object: testKey}
	src := minio.CopySrcOptions{Bucket: "swsoc-incoming", Object: testKey}

	mockClient.On("CopyObject", mock.Anything, dst, src).
		Return(minio.UploadInfo{Bucket: "hermes-spani", Key: testKey, ETag: "abc"}, nil).Once()
	err := s.Copy(context.Background(), "swsoc-incoming", testKey, "hermes-spani", testKey)
	assert.NoError(t, err)

	mockClient.On("CopyObject", mock.Anything, dst, src).
		Return(minio.UploadInfo{}, errors.New("copy failed")).Once()
	err = s.Copy(context.Background(), "swsoc-incoming", testKey, "hermes-spani", testKey)
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.Contains(t, err.Error(), "copy failed")

	mockClient.AssertExpectations(t)
}

func TestS3Store_Remove(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")

	mockClient.On("RemoveObject", mock.Anything, "swsoc-incoming", testKey, mock.Anything).Return(nil).Once()
	assert.NoError(t, s.Remove(context.Background(), "swsoc-incoming", testKey))

	mockClient.On("RemoveObject", mock.Anything, "swsoc-incoming", testKey, mock.Anything).
		Return(errors.New("remove failed")).Once()
	assert.ErrorIs(t, s.Remove(context.Background(), "swsoc-incoming", testKey), core.ErrBackend)

	mockClient.AssertExpectations(t)
}

func TestS3Store_List(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")

	objects := make(chan minio.ObjectInfo, 3)
	objects <- minio.ObjectInfo{Key: "a.bin", ETag: `"1"`}
	objects <- minio.ObjectInfo{Key: "b.bin", ETag: `"2"`}
	objects <- minio.ObjectInfo{Err: errors.New("listing interrupted")}
	close(objects)

	mockClient.On("ListObjects", mock.Anything, "swsoc-incoming", minio.ListObjectsOptions{Recursive: true}).
		Return((<-chan minio.ObjectInfo)(objects)).Once()

	var keys []string
	var listErr error
	for obj := range s.List(context.Background(), "swsoc-incoming", "") {
		if obj.Err != nil {
			listErr = obj.Err
			continue
		}
		keys = append(keys, obj.Key)
	}

	assert.Equal(t, []string{"a.bin", "b.bin"}, keys)
	assert.ErrorIs(t, listErr, core.ErrBackend)
	mockClient.AssertExpectations(t)
}

func TestS3Store_EnsureBuckets(t *testing.T) {
	mockClient := new(mockS3Client)
	s := newS3Store("s3-store", mockClient, "us-east-1")
	ctx := context.Background()

	// Test case: bucket already exists
	mockClient.On("BucketExists", mock.Anything, "hermes-eea").Return(true, nil).Once()
	require.NoError(t, s.EnsureBuckets(ctx, false, "hermes-eea"))
	assert.True(t, s.bucketExists["hermes-eea"])

	// Test case: cached, no second call
	require.NoError(t, s.EnsureBuckets(ctx, false, "hermes-eea", ""))

	// Test case: missing and creation disabled
	mockClient.On("BucketExists", mock.Anything, "hermes-merit").Return(false, nil).Once()
	err := s.EnsureBuckets(ctx, false, "hermes-merit")
	assert.ErrorIs(t, err, core.ErrBackend)
	assert.False(t, s.bucketExists["hermes-merit"])

	// Test case: missing and created
	mockClient.On("BucketExists", mock.Anything, "hermes-merit").Return(false, nil).Once()
	mockClient.On("MakeBucket", mock.Anything, "hermes-merit", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
	require.NoError(t, s.EnsureBuckets(ctx, true, "hermes-merit"))
	assert.True(t, s.bucketExists["hermes-merit"])

	// Test case: creation fails
	mockClient.On("BucketExists", mock.Anything, "hermes-spani").Return(false, nil).Once()
	mockClient.On("MakeBucket", mock.Anything, "hermes-spani", mock.Anything).Return(errors.New("create failed")).Once()
	err = s.EnsureBuckets(ctx, true, "hermes-spani")
	assert.Error(t, err)

	// Test case: probe fails
	mockClient.On("BucketExists", mock.Anything, "hermes-nemisis").Return(false, errors.New("network")).Once()
	err = s.EnsureBuckets(ctx, true, "hermes-nemisis")
	assert.ErrorIs(t, err, core.ErrProbe)

	mockClient.AssertExpectations(t)
}

func TestNewS3_InvalidConfig(t *testing.T) {
	_, err := NewS3("s3-store", config.StorageConfig{})
	assert.Error(t, err)
}

func TestNewS3(t *testing.T) {
	s, err := NewS3("s3-store", config.StorageConfig{
		Endpoint:  "localhost:9000",
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3-store", s.Info())
	assert.Equal(t, TypeS3, s.Type())
}
