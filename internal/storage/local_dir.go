package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/fsx"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

const TypeLocalDir = "LocalDir"

const (
	defaultFileMode  os.FileMode = 0o644
	defaultBatchSize             = 256
)

// LocalDirStore implements core.ObjectStore on a local directory: each bucket is a subdirectory of the
// root and each key a file path below it. The ETag of an object is the MD5 of its content, as S3 reports
// for single part uploads. It backs offline runs of the CLI.
type LocalDirStore struct {
	id        string
	root      string
	mode      os.FileMode
	batchSize int
}

var _ core.ObjectStore = (*LocalDirStore)(nil)

func (d *LocalDirStore) Info() string {
	return d.id
}

func (d *LocalDirStore) Type() string {
	return TypeLocalDir
}

// objectPath maps bucket/key to a file path, rejecting keys that would leave the bucket directory.
func (d *LocalDirStore) objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: invalid bucket name %q", core.ErrBackend, bucket)
	}

	bucketDir := filepath.Join(d.root, bucket)
	p := filepath.Join(bucketDir, filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if p == bucketDir || !strings.HasPrefix(p, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes bucket %q", core.ErrBackend, key, bucket)
	}
	return p, nil
}

func (d *LocalDirStore) Stat(ctx context.Context, bucket, key string) (core.ObjectInfo, bool, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return core.ObjectInfo{}, false, fmt.Errorf("%w: %w", core.ErrProbe, err)
	}

	info, exists, err := fsx.StatPath(p)
	if err != nil {
		return core.ObjectInfo{}, false, fmt.Errorf("%w: stat %s: %w", core.ErrProbe, p, err)
	}
	if !exists || info.IsDir() {
		return core.ObjectInfo{}, false, nil
	}

	checksum, err := fsx.FileMD5(p)
	if err != nil {
		return core.ObjectInfo{}, false, fmt.Errorf("%w: checksum %s: %w", core.ErrProbe, p, err)
	}

	return core.ObjectInfo{
		Key:          key,
		ETag:         checksum,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, true, nil
}

func (d *LocalDirStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrProbe, err)
	}

	info, exists, err := fsx.StatPath(p)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", core.ErrProbe, p, err)
	}
	return exists && !info.IsDir(), nil
}

func (d *LocalDirStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src, err := d.objectPath(srcBucket, srcKey)
	if err != nil {
		return err
	}
	dst, err := d.objectPath(dstBucket, dstKey)
	if err != nil {
		return err
	}

	logx.As().Debug().
		Str("id", d.Info()).
		Str("src", src).
		Str("dest", dst).
		Str("storage_type", d.Type()).
		Msg("Copying file in the local directory")

	if err = fsx.Copy(src, dst, d.mode); err != nil {
		logx.As().Error().
			Str("src", src).
			Str("dest", dst).
			Err(err).
			Msg("Failed to copy file in the local directory")
		return fmt.Errorf("%w: copy %s to %s: %w", core.ErrBackend, src, dst, err)
	}

	return nil
}

func (d *LocalDirStore) Remove(ctx context.Context, bucket, key string) error {
	p, err := d.objectPath(bucket, key)
	if err != nil {
		return err
	}

	// S3 deletes are idempotent
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logx.As().Error().
			Str("path", p).
			Err(err).
			Msg("Failed to remove file from the local directory")
		return fmt.Errorf("%w: remove %s: %w", core.ErrBackend, p, err)
	}

	return nil
}

func (d *LocalDirStore) List(ctx context.Context, bucket, prefix string) <-chan core.ObjectInfo {
	items := make(chan core.ObjectInfo)
	go func() {
		defer close(items)

		bucketDir := filepath.Join(d.root, bucket)
		send := func(item core.ObjectInfo) error {
			select {
			case items <- item:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		walker := fsx.NewWalker(d.batchSize)
		err := walker.Start(ctx, bucketDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(bucketDir, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if !strings.HasPrefix(key, prefix) {
				return nil
			}

			return send(core.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		})

		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logx.As().Error().
				Str("id", d.Info()).
				Str("bucket", bucket).
				Err(err).
				Msg("Failed to list local directory")
			_ = send(core.ObjectInfo{Err: fmt.Errorf("%w: list %s: %w", core.ErrBackend, bucketDir, err)})
		}
	}()

	return items
}

// EnsureBuckets creates the bucket directories that do not exist yet when create is true.
func (d *LocalDirStore) EnsureBuckets(ctx context.Context, create bool, buckets ...string) error {
	for _, bucket := range buckets {
		if bucket == "" {
			continue
		}
		dir := filepath.Join(d.root, bucket)
		if info, exists := fsx.PathExists(dir); exists && info != nil && info.IsDir() {
			continue
		}
		if !create {
			return fmt.Errorf("%w: bucket directory %s does not exist", core.ErrBackend, dir)
		}

		logx.As().Info().
			Str("storage_type", d.Type()).
			Str("path", dir).
			Msg("Directory does not exist, creating it")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return nil
}

// NewLocalDir creates a local directory object store rooted at cfg.LocalPath.
func NewLocalDir(id string, cfg config.StorageConfig) (*LocalDirStore, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("missing LocalPath in configuration")
	}

	root, err := filepath.Abs(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local path: %w", err)
	}

	logx.As().Debug().
		Str("id", id).
		Str("storage_type", TypeLocalDir).
		Str("path", root).
		Msg("Local directory store created successfully")

	return &LocalDirStore{
		id:        id,
		root:      root,
		mode:      defaultFileMode,
		batchSize: defaultBatchSize,
	}, nil
}
