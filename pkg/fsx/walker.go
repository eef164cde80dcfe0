package fsx

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Walker traverses a file tree reading at most batchSize directory entries at a time, so that
// listing a large bucket directory does not load every name into memory at once.
type Walker struct {
	opened    map[string]*os.File
	batchSize int
	mu        sync.Mutex
}

// NewWalker returns a Walker that reads batchSize entries per directory read. A non-positive
// batchSize reads all entries at once.
func NewWalker(batchSize int) *Walker {
	return &Walker{
		opened:    make(map[string]*os.File),
		batchSize: batchSize,
	}
}

// Start walks the tree rooted at root, calling fn for every file and directory. Entries are sorted
// within each batch read, so the order is lexical when a directory fits in one batch.
//
// Behavior:
//   - Errors reading root or a directory are passed to fn, which decides whether to stop.
//   - filepath.SkipDir and filepath.SkipAll returned by fn behave as in filepath.Walk.
//   - The walk stops with ctx.Err() once ctx is done.
func (w *Walker) Start(ctx context.Context, root string, fn filepath.WalkFunc) error {
	defer w.End()

	info, err := os.Lstat(root)
	if err != nil {
		err = fn(root, nil, err)
	} else {
		err = w.walk(ctx, root, info, fn)
	}

	if errors.Is(err, filepath.SkipDir) || errors.Is(err, filepath.SkipAll) {
		return nil
	}

	return err
}

func (w *Walker) walk(ctx context.Context, path string, info fs.FileInfo, walkFn filepath.WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !info.IsDir() {
		return walkFn(path, info, nil)
	}

	// the directory itself is reported once, before its entries
	if err := walkFn(path, info, nil); err != nil {
		return err
	}

	for {
		names, err := w.readDirEntries(path, w.batchSize)
		if err != nil {
			// give walkFn a chance to skip the unreadable directory
			return walkFn(path, info, err)
		}

		if len(names) == 0 {
			return nil
		}

		for _, name := range names {
			filename := filepath.Join(path, name)
			fileInfo, err := os.Lstat(filename)
			if err != nil {
				if err := walkFn(filename, fileInfo, err); err != nil && !errors.Is(err, filepath.SkipDir) {
					return err
				}
				continue
			}

			if err = w.walk(ctx, filename, fileInfo, walkFn); err != nil {
				if !fileInfo.IsDir() || !errors.Is(err, filepath.SkipDir) {
					return err
				}
			}
		}
	}
}

// readDirEntries returns up to n sorted names from dirname. The directory handle stays open between
// calls until it is exhausted.
func (w *Walker) readDirEntries(dirname string, n int) ([]string, error) {
	f, err := w.getOrOpenFile(dirname)
	if err != nil {
		return nil, err
	}

	names, err := f.Readdirnames(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return []string{}, w.closeFile(dirname, err)
	}

	if len(names) == 0 {
		return []string{}, w.closeFile(dirname, nil)
	}

	slices.Sort(names)
	return names, nil
}

func (w *Walker) getOrOpenFile(name string) (*os.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f, ok := w.opened[name]; ok {
		return f, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	w.opened[name] = f
	return f, nil
}

func (w *Walker) closeFile(name string, prevError error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.opened[name]
	if !ok {
		return prevError
	}

	delete(w.opened, name)
	if err := f.Close(); err != nil {
		return errors.Join(err, prevError)
	}

	return prevError
}

// End closes any directory handles left open by an interrupted walk.
func (w *Walker) End() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.opened {
		_ = f.Close()
	}

	w.opened = make(map[string]*os.File)
}
