package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

const TypeS3 = "S3"

// s3Client is an interface that defines the methods for interacting with S3-compatible storage.
// It is used to abstract the MinIO client to expose limited functionalities, which also allows for mocking in tests.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)

	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error

	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)

	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)

	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error

	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioClientWrapper is a wrapper around the MinIO client to implement the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (m *minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.client.BucketExists(ctx, bucketName)
}

func (m *minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.client.MakeBucket(ctx, bucketName, opts)
}

func (m *minioClientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}

func (m *minioClientWrapper) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	return m.client.CopyObject(ctx, dst, src)
}

func (m *minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (m *minioClientWrapper) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.client.ListObjects(ctx, bucketName, opts)
}

// S3Store implements core.ObjectStore on an S3-compatible endpoint.
type S3Store struct {
	id           string
	client       s3Client
	region       string
	bucketExists map[string]bool
	mu           sync.Mutex
}

var _ core.ObjectStore = (*S3Store)(nil)

// Info returns the unique identifier of the store.
func (s *S3Store) Info() string {
	return s.id
}

// Type returns the storage type of the store.
func (s *S3Store) Type() string {
	return TypeS3
}

// isNotFound reports whether err is the S3 response for a missing object. HEAD responses carry no
// body, so minio reports a missing bucket as NoSuchKey too; Stat tells them apart with confirmBucket.
func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchObject":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}

// Stat returns the object metadata. A missing object is reported as (ObjectInfo{}, false, nil); any other
// failure wraps core.ErrProbe.
func (s *S3Store) Stat(ctx context.Context, bucket, key string) (core.ObjectInfo, bool, error) {
	attr, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			if err := s.confirmBucket(ctx, bucket); err != nil {
				logx.As().Error().
					Str("id", s.Info()).
					Str("bucket", bucket).
					Str("key", key).
					Err(err).
					Msg("Failed to stat object")
				return core.ObjectInfo{}, false, err
			}
			logx.As().Trace().
				Str("id", s.Info()).
				Str("bucket", bucket).
				Str("key", key).
				Msg("Object not found")
			return core.ObjectInfo{}, false, nil
		}

		logx.As().Error().
			Str("id", s.Info()).
			Str("bucket", bucket).
			Str("key", key).
			Err(err).
			Msg("Failed to stat object")
		return core.ObjectInfo{}, false, fmt.Errorf("%w: stat s3://%s/%s: %w", core.ErrProbe, bucket, key, err)
	}

	return core.ObjectInfo{
		Key:          attr.Key,
		ETag:         normalizeETag(attr.ETag),
		Size:         attr.Size,
		LastModified: attr.LastModified,
	}, true, nil
}

// Exists reports whether the object exists.
func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, found, err := s.Stat(ctx, bucket, key)
	return found, err
}

// Copy performs a server-side copy of srcBucket/srcKey to dstBucket/dstKey.
func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	logx.As().Debug().
		Str("id", s.Info()).
		Str("src_bucket", srcBucket).
		Str("src_key", srcKey).
		Str("dst_bucket", dstBucket).
		Str("dst_key", dstKey).
		Msg("Copying object")

	info, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	if err != nil {
		logx.As().Error().
			Str("id", s.Info()).
			Str("src_bucket", srcBucket).
			Str("src_key", srcKey).
			Str("dst_bucket", dstBucket).
			Str("dst_key", dstKey).
			Err(err).
			Msg("Failed to copy object")
		return fmt.Errorf("%w: copy s3://%s/%s to s3://%s/%s: %w", core.ErrBackend, srcBucket, srcKey, dstBucket, dstKey, err)
	}

	logx.As().Info().
		Str("id", s.Info()).
		Str("dst_bucket", info.Bucket).
		Str("dst_key", info.Key).
		Str("etag", normalizeETag(info.ETag)).
		Msg("Object copied")

	return nil
}

// Remove deletes bucket/key.
func (s *S3Store) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		logx.As().Error().
			Str("id", s.Info()).
			Str("bucket", bucket).
			Str("key", key).
			Err(err).
			Msg("Failed to remove object")
		return fmt.Errorf("%w: remove s3://%s/%s: %w", core.ErrBackend, bucket, key, err)
	}

	logx.As().Info().
		Str("id", s.Info()).
		Str("bucket", bucket).
		Str("key", key).
		Msg("Object removed")

	return nil
}

// List streams every object under prefix. Listing failures are delivered as an entry with Err set,
// after which the channel is closed.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) <-chan core.ObjectInfo {
	items := make(chan core.ObjectInfo)
	go func() {
		defer close(items)
		for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			item := core.ObjectInfo{
				Key:          obj.Key,
				ETag:         normalizeETag(obj.ETag),
				Size:         obj.Size,
				LastModified: obj.LastModified,
			}
			if obj.Err != nil {
				logx.As().Error().
					Str("id", s.Info()).
					Str("bucket", bucket).
					Str("prefix", prefix).
					Err(obj.Err).
					Msg("Failed to list objects")
				item = core.ObjectInfo{Err: fmt.Errorf("%w: list s3://%s/%s: %w", core.ErrBackend, bucket, prefix, obj.Err)}
			}

			select {
			case items <- item:
			case <-ctx.Done():
				return
			}

			if item.Err != nil {
				return
			}
		}
	}()

	return items
}

// confirmBucket checks that bucket exists, so that a 404 on an object means the object is absent.
// Existing buckets are cached.
func (s *S3Store) confirmBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucketExists[bucket] {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %w", core.ErrProbe, bucket, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s does not exist", core.ErrProbe, bucket)
	}

	s.bucketExists[bucket] = true
	return nil
}

// EnsureBuckets checks that each bucket exists. Missing buckets are created when create is true (local
// S3-compatible endpoints), otherwise they are reported as an error.
func (s *S3Store) EnsureBuckets(ctx context.Context, create bool, buckets ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bucket := range buckets {
		if bucket == "" {
			continue
		}
		if _, exists := s.bucketExists[bucket]; exists {
			logx.As().Trace().
				Str("storage_type", s.Type()).
				Str("bucket", bucket).
				Msg("Bucket existence confirmed from cache")
			continue
		}

		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("%w: bucket %s: %w", core.ErrProbe, bucket, err)
		}

		if !exists {
			if !create {
				return fmt.Errorf("%w: bucket %s does not exist", core.ErrBackend, bucket)
			}

			logx.As().Info().
				Str("storage_type", s.Type()).
				Str("bucket", bucket).
				Msg("Bucket does not exist, creating it")
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		s.bucketExists[bucket] = true
	}

	return nil
}

func normalizeETag(etag string) string {
	return strings.Trim(etag, `"`)
}

func newCredentials(cfg config.StorageConfig) *credentials.Credentials {
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
	}

	// Lambda exports the execution role credentials as environment variables.
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// NewS3 creates an S3 object store from the storage configuration.
func NewS3(id string, cfg config.StorageConfig) (*S3Store, error) {
	if err := config.ValidateStorageConfig(cfg); err != nil {
		logx.As().Error().
			Str("storage_type", TypeS3).
			Err(err).
			Msg("Invalid storage configuration")
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:      newCredentials(cfg),
		Secure:     cfg.UseSSL,
		Region:     cfg.Region,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		logx.As().Error().
			Str("storage_type", TypeS3).
			Err(err).
			Msg("Failed to create MinIO client")
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	logx.As().Trace().
		Str("storage_type", TypeS3).
		Str("endpoint", cfg.Endpoint).
		Msg("MinIO client created successfully")

	return newS3Store(id, &minioClientWrapper{client: client}, cfg.Region), nil
}

func newS3Store(id string, client s3Client, region string) *S3Store {
	return &S3Store{
		id:           id,
		client:       client,
		region:       region,
		bucketExists: make(map[string]bool),
	}
}
