package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hermes-soc/filesorter/internal/core"
)

const (
	DefaultIncomingBucket   = "swsoc-incoming"
	DefaultQuarantineBucket = "swsoc-quarantine"
	DefaultDevPrefix        = "dev-"
)

// DefaultInstrumentBuckets is the production instrument table. "nemesis" is accepted as an alias of "nemisis".
var DefaultInstrumentBuckets = map[string]string{
	"eea":     "hermes-eea",
	"nemisis": "hermes-nemisis",
	"nemesis": "hermes-nemisis",
	"merit":   "hermes-merit",
	"spani":   "hermes-spani",
}

// Table is a static instrument to bucket lookup. Development buckets carry DevPrefix.
type Table struct {
	instruments map[string]string
	incoming    string
	quarantine  string
	devPrefix   string
}

// Options overrides parts of the default table. Empty fields keep the defaults.
type Options struct {
	Instruments map[string]string
	Incoming    string
	Quarantine  string
	DevPrefix   *string
}

// New builds a lookup table from the defaults and the given overrides.
func New(opts Options) *Table {
	t := &Table{
		instruments: make(map[string]string),
		incoming:    DefaultIncomingBucket,
		quarantine:  DefaultQuarantineBucket,
		devPrefix:   DefaultDevPrefix,
	}

	instruments := DefaultInstrumentBuckets
	if len(opts.Instruments) > 0 {
		instruments = opts.Instruments
	}
	for name, bucket := range instruments {
		t.instruments[strings.ToLower(strings.TrimSpace(name))] = bucket
	}

	if opts.Incoming != "" {
		t.incoming = opts.Incoming
	}
	if opts.Quarantine != "" {
		t.quarantine = opts.Quarantine
	}
	if opts.DevPrefix != nil {
		t.devPrefix = *opts.DevPrefix
	}

	return t
}

func (t *Table) forEnv(bucket string, env core.Environment) string {
	if env == core.Development {
		return t.devPrefix + bucket
	}
	return bucket
}

// Resolve returns the destination bucket of instrument. It wraps core.ErrUnknownInstrument when the
// instrument is not in the table; callers quarantine the object in that case.
func (t *Table) Resolve(instrument string, env core.Environment) (string, error) {
	bucket, ok := t.instruments[strings.ToLower(strings.TrimSpace(instrument))]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownInstrument, instrument)
	}
	return t.forEnv(bucket, env), nil
}

// Buckets returns the distinct instrument buckets for env in sorted order.
func (t *Table) Buckets(env core.Environment) []string {
	seen := make(map[string]struct{})
	var buckets []string
	for _, bucket := range t.instruments {
		b := t.forEnv(bucket, env)
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	return buckets
}

func (t *Table) IncomingBucket(env core.Environment) string {
	return t.forEnv(t.incoming, env)
}

func (t *Table) QuarantineBucket(env core.Environment) string {
	return t.forEnv(t.quarantine, env)
}
