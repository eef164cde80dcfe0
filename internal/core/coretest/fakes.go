// Package coretest provides in-memory implementations of the core interfaces for tests.
package coretest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hermes-soc/filesorter/internal/core"
)

// Call is one mutating call made on a MemStore.
type Call struct {
	Op     string
	Bucket string
	Key    string
	DstKey string
	DstBkt string
}

// MemStore is an in-memory core.ObjectStore. Failures can be injected per operation.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]map[string][]byte
	calls   []Call

	// StatErr is returned by Stat and Exists for the given bucket.
	StatErr map[string]error
	// CopyErr is returned by every Copy.
	CopyErr error
	// RemoveErr is returned by every Remove.
	RemoveErr error
	// ListErr is delivered as the last listing entry.
	ListErr error
	// DropCopies makes Copy succeed without writing, so the destination probe does not confirm it.
	DropCopies bool
}

var _ core.ObjectStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]map[string][]byte), StatErr: make(map[string]error)}
}

// Put stores content under bucket/key.
func (m *MemStore) Put(bucket, key, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}
	m.objects[bucket][key] = []byte(content)
}

// Get returns the content of bucket/key.
func (m *MemStore) Get(bucket, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket][key]
	return string(b), ok
}

// Keys returns the sorted keys of bucket.
func (m *MemStore) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects[bucket]))
	for k := range m.objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns the mutating calls made so far.
func (m *MemStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Ops returns the operation names of Calls.
func (m *MemStore) Ops() []string {
	var ops []string
	for _, c := range m.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

func etag(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (m *MemStore) Stat(ctx context.Context, bucket, key string) (core.ObjectInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.StatErr[bucket]; err != nil {
		return core.ObjectInfo{}, false, fmt.Errorf("%w: %w", core.ErrProbe, err)
	}
	b, ok := m.objects[bucket][key]
	if !ok {
		return core.ObjectInfo{}, false, nil
	}
	return core.ObjectInfo{Key: key, ETag: etag(b), Size: int64(len(b)), LastModified: time.Unix(0, 0).UTC()}, true, nil
}

func (m *MemStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, found, err := m.Stat(ctx, bucket, key)
	return found, err
}

func (m *MemStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "copy", Bucket: srcBucket, Key: srcKey, DstBkt: dstBucket, DstKey: dstKey})
	if m.CopyErr != nil {
		return fmt.Errorf("%w: %w", core.ErrBackend, m.CopyErr)
	}
	b, ok := m.objects[srcBucket][srcKey]
	if !ok {
		return fmt.Errorf("%w: no such key %s/%s", core.ErrBackend, srcBucket, srcKey)
	}
	if m.DropCopies {
		return nil
	}
	if m.objects[dstBucket] == nil {
		m.objects[dstBucket] = make(map[string][]byte)
	}
	m.objects[dstBucket][dstKey] = append([]byte(nil), b...)
	return nil
}

func (m *MemStore) Remove(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "remove", Bucket: bucket, Key: key})
	if m.RemoveErr != nil {
		return fmt.Errorf("%w: %w", core.ErrBackend, m.RemoveErr)
	}
	delete(m.objects[bucket], key)
	return nil
}

func (m *MemStore) List(ctx context.Context, bucket, prefix string) <-chan core.ObjectInfo {
	items := make(chan core.ObjectInfo)
	keys := m.Keys(bucket)
	go func() {
		defer close(items)
		for _, k := range keys {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			info, found, _ := m.Stat(ctx, bucket, k)
			if !found {
				continue
			}
			select {
			case items <- info:
			case <-ctx.Done():
				return
			}
		}
		if m.ListErr != nil {
			select {
			case items <- core.ObjectInfo{Err: fmt.Errorf("%w: %w", core.ErrBackend, m.ListErr)}:
			case <-ctx.Done():
			}
		}
	}()
	return items
}

// Auditor records audit entries in memory.
type Auditor struct {
	mu      sync.Mutex
	records []core.AuditRecord
	Err     error
}

func (a *Auditor) Record(ctx context.Context, rec core.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.records = append(a.records, rec)
	return nil
}

func (a *Auditor) Records() []core.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.AuditRecord(nil), a.records...)
}

// Notifier records notifications in memory.
type Notifier struct {
	mu   sync.Mutex
	sent []core.Notification
	Err  error
}

func (n *Notifier) Notify(ctx context.Context, msg core.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *Notifier) Sent() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Notification(nil), n.sent...)
}
