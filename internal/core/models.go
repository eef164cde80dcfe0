package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Environment selects the bucket set and the dry-run default for an invocation.
type Environment string

const (
	Production  Environment = "PRODUCTION"
	Development Environment = "DEVELOPMENT"
)

// ParseEnvironment converts the LAMBDA_ENVIRONMENT value into an Environment.
// An empty value means Development.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(Development):
		return Development, nil
	case string(Production):
		return Production, nil
	default:
		return "", fmt.Errorf("unknown environment %q: expected %s or %s", s, Production, Development)
	}
}

// DefaultDryRun is the dry-run mode used when nothing overrides it. Only production moves files.
func (e Environment) DefaultDryRun() bool {
	return e != Production
}

// RoutingRequest describes one object to route.
//
// Fields:
//   - SourceBucket: The bucket the object landed in.
//   - Key: The object key inside SourceBucket.
//   - ETag: The content fingerprint reported by the event or listing, if any.
//   - Environment: The environment whose bucket set is used.
//   - DryRun: When true, nothing is copied, deleted or audited.
//
// Notes:
//   - A request is built once per event record or scanned object and never modified afterwards.
type RoutingRequest struct {
	SourceBucket string
	Key          string
	ETag         string
	Environment  Environment
	DryRun       bool
}

// ParsedFilename holds the fields extracted from a science filename.
type ParsedFilename struct {
	Instrument string
	Level      string
	Mode       string
	Descriptor string
	Test       bool
	Version    string
	Time       time.Time
	Extension  string
	RawKey     string
}

// ClassifyResult is the outcome of classifying a key: exactly one of Parsed or Err is set.
type ClassifyResult struct {
	Parsed *ParsedFilename
	Err    error
}

// Ok reports whether classification succeeded.
func (r ClassifyResult) Ok() bool {
	return r.Err == nil && r.Parsed != nil
}

// Action is the kind of routing performed for an object.
type Action string

const (
	ActionMove                Action = "MOVE"
	ActionQuarantineDuplicate Action = "QUARANTINE_DUPLICATE"
	ActionQuarantineInvalid   Action = "QUARANTINE_INVALID"
)

// AuditType returns the action_type dimension written to the audit store.
func (a Action) AuditType() string {
	switch a {
	case ActionMove:
		return "PUT"
	case ActionQuarantineDuplicate:
		return "DUPLICATE"
	case ActionQuarantineInvalid:
		return "INVALID"
	default:
		return string(a)
	}
}

// IsQuarantine reports whether the action sends the object to the quarantine bucket.
func (a Action) IsQuarantine() bool {
	return a == ActionQuarantineDuplicate || a == ActionQuarantineInvalid
}

// RoutingDecision is where an object goes and why.
type RoutingDecision struct {
	DestinationBucket string
	DestinationKey    string
	Action            Action
}

// State is a step of the routing state machine.
type State string

const (
	StateStart         State = "START"
	StateSourceChecked State = "SOURCE_CHECKED"
	StateDestResolved  State = "DEST_RESOLVED"
	StateCopied        State = "COPIED"
	StateSourceRemoved State = "SOURCE_REMOVED"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// RoutingResult reports how far a request got.
//
// Fields:
//   - Request: The request that was routed.
//   - Decision: The destination chosen; empty if the request failed before resolution.
//   - State: The last state reached. StateFailed when an error was returned.
//   - Copied: True if the object was copied to the destination.
//   - Removed: True if the source object was deleted.
//   - Warning: A non-fatal problem, such as an unconfirmed destination write.
type RoutingResult struct {
	Request  RoutingRequest
	Decision RoutingDecision
	State    State
	Copied   bool
	Removed  bool
	Warning  string
}

// AuditRecord is one append-only entry describing a routing action.
type AuditRecord struct {
	Timestamp         time.Time
	ActionType        string
	SourceBucket      string
	DestinationBucket string
	FileKey           string
	NewFileKey        string
	ObjectCount       int
}

// Notification is a message about a routed object.
type Notification struct {
	Action            Action
	Path              string
	SourceBucket      string
	DestinationBucket string
	Environment       Environment
}

// ObjectInfo describes an object in a bucket.
//
// Fields:
//   - Key: The object key.
//   - ETag: The content fingerprint as reported by the store (without quotes).
//   - Size: Object size in bytes.
//   - LastModified: Last modification time.
//   - Err: Set on listing entries when the listing failed; other fields are then empty.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
	Err          error
}

// ObjectStore defines the object storage operations the router needs.
//
// Methods:
//   - Exists: Reports whether an object exists. A not-found response is false with a nil error.
//   - Stat: Like Exists but also returns the object metadata.
//   - Copy: Server-side copy of an object between buckets.
//   - Remove: Deletes an object.
//   - List: Streams all objects under a prefix. The channel is closed when the listing ends.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, bool, error)
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Remove(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) <-chan ObjectInfo
}

// Classifier turns an object key into structured filename fields.
type Classifier interface {
	Name() string
	Classify(key string) ClassifyResult
}

// Resolver maps instruments to bucket names.
type Resolver interface {
	Resolve(instrument string, env Environment) (string, error)
	Buckets(env Environment) []string
	IncomingBucket(env Environment) string
	QuarantineBucket(env Environment) string
}

// Auditor records routing actions.
type Auditor interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// Notifier posts messages about routed objects.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
