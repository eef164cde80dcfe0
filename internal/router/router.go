package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

// Options holds the collaborators of a Router.
//
// Fields:
//   - Store: The object store holding the incoming, instrument and quarantine buckets.
//   - Classifier: Parses object keys.
//   - Resolver: Maps instruments to buckets.
//   - Auditor: Records every real routing action. Required.
//   - Notifier: Posts a message after every real routing action. Optional.
//   - KeyLayout: Destination key layout, core.KeyLayoutFlat when empty.
//   - Now: Clock used for quarantine keys and audit timestamps. time.Now when nil.
type Options struct {
	Store      core.ObjectStore
	Classifier core.Classifier
	Resolver   core.Resolver
	Auditor    core.Auditor
	Notifier   core.Notifier
	KeyLayout  string
	Now        func() time.Time
}

// Router moves one object at a time from the incoming bucket to its destination.
type Router struct {
	store      core.ObjectStore
	classifier core.Classifier
	resolver   core.Resolver
	auditor    core.Auditor
	notifier   core.Notifier
	keyLayout  string
	now        func() time.Time
}

// New creates a Router from opts.
func New(opts Options) (*Router, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("router: missing object store")
	case opts.Classifier == nil:
		return nil, errors.New("router: missing classifier")
	case opts.Resolver == nil:
		return nil, errors.New("router: missing resolver")
	case opts.Auditor == nil:
		return nil, errors.New("router: missing auditor")
	}
	if !core.IsKeyLayout(opts.KeyLayout) {
		return nil, fmt.Errorf("router: unknown key layout %q", opts.KeyLayout)
	}

	r := &Router{
		store:      opts.Store,
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		auditor:    opts.Auditor,
		notifier:   opts.Notifier,
		keyLayout:  opts.KeyLayout,
		now:        opts.Now,
	}
	if r.keyLayout == "" {
		r.keyLayout = core.KeyLayoutFlat
	}
	if r.now == nil {
		r.now = time.Now
	}

	return r, nil
}

// Route moves the object described by req to its destination bucket.
//
// The object goes through START, SOURCE_CHECKED, DEST_RESOLVED, COPIED, SOURCE_REMOVED and DONE.
// Any error moves it to FAILED and is returned together with the partial result.
//
// Behavior:
//   - A missing source object fails with core.ErrSourceNotFound, except in dry run.
//   - Unparseable keys and unknown instruments go to the quarantine bucket under the invalid prefix.
//   - An occupied destination key sends the object to the quarantine bucket under the duplicate prefix.
//   - The source is removed only after the destination copy is confirmed. An unconfirmed copy stops
//     at COPIED with a warning and no error, and is audited like a move.
//   - A real move writes one audit record; failing to do so fails the request with core.ErrAudit.
//     A notification failure is only logged.
//   - Dry run performs the probes and the classification but never copies, removes, audits or notifies.
func (r *Router) Route(ctx context.Context, req core.RoutingRequest) (core.RoutingResult, error) {
	result := core.RoutingResult{Request: req, State: core.StateStart}
	log := logx.As().With().
		Str("bucket", req.SourceBucket).
		Str("key", req.Key).
		Str("environment", string(req.Environment)).
		Bool("dry_run", req.DryRun).
		Logger()

	fail := func(err error) (core.RoutingResult, error) {
		log.Error().Err(err).Str("state", string(result.State)).Msg("Failed to sort file")
		result.State = core.StateFailed
		return result, err
	}

	source, found, err := r.store.Stat(ctx, req.SourceBucket, req.Key)
	if err != nil {
		return fail(err)
	}
	if !found {
		if !req.DryRun {
			return fail(fmt.Errorf("%w: s3://%s/%s", core.ErrSourceNotFound, req.SourceBucket, req.Key))
		}
		log.Warn().Msg("Source file does not exist, continuing dry run")
	}
	result.State = core.StateSourceChecked

	decision, err := r.resolve(ctx, req, log)
	if err != nil {
		return fail(err)
	}
	result.Decision = decision
	result.State = core.StateDestResolved

	log = log.With().
		Str("action", string(decision.Action)).
		Str("destination_bucket", decision.DestinationBucket).
		Str("destination_key", decision.DestinationKey).
		Logger()

	if req.DryRun {
		log.Info().Msg("Dry run, file would be sorted")
		result.State = core.StateDone
		return result, nil
	}

	if err = r.store.Copy(ctx, req.SourceBucket, req.Key, decision.DestinationBucket, decision.DestinationKey); err != nil {
		return fail(err)
	}
	result.Copied = true
	result.State = core.StateCopied

	written, confirmed, err := r.store.Stat(ctx, decision.DestinationBucket, decision.DestinationKey)
	if err != nil {
		return fail(err)
	}
	if !confirmed {
		result.Warning = fmt.Sprintf("copy to s3://%s/%s not confirmed, source kept", decision.DestinationBucket, decision.DestinationKey)
		log.Warn().Msg("Destination write not confirmed, source file kept")
		// the copy may still land, so it is recorded even though the source stays
		if err = r.audit(ctx, req, decision); err != nil {
			return fail(err)
		}
		return result, nil
	}

	sourceETag := req.ETag
	if sourceETag == "" {
		sourceETag = source.ETag
	}
	if sourceETag != "" && written.ETag != "" && sourceETag != written.ETag {
		log.Warn().
			Str("source_etag", sourceETag).
			Str("destination_etag", written.ETag).
			Msg("Destination ETag differs from source")
	}

	if err = r.store.Remove(ctx, req.SourceBucket, req.Key); err != nil {
		return fail(err)
	}
	result.Removed = true
	result.State = core.StateSourceRemoved

	if err = r.audit(ctx, req, decision); err != nil {
		return fail(err)
	}

	r.notify(ctx, req, decision, log)

	result.State = core.StateDone
	log.Info().Msg("File sorted")
	return result, nil
}

// audit writes the record of a copy to decision's destination.
func (r *Router) audit(ctx context.Context, req core.RoutingRequest, decision core.RoutingDecision) error {
	rec := core.AuditRecord{
		Timestamp:         r.now().UTC(),
		ActionType:        decision.Action.AuditType(),
		SourceBucket:      req.SourceBucket,
		DestinationBucket: decision.DestinationBucket,
		FileKey:           req.Key,
		NewFileKey:        decision.DestinationKey,
		ObjectCount:       1,
	}
	if err := r.auditor.Record(ctx, rec); err != nil {
		if !errors.Is(err, core.ErrAudit) {
			err = fmt.Errorf("%w: %w", core.ErrAudit, err)
		}
		return err
	}
	return nil
}

// resolve classifies the key and picks the destination, falling back to quarantine on classification
// errors and on an occupied destination key.
func (r *Router) resolve(ctx context.Context, req core.RoutingRequest, log zerolog.Logger) (core.RoutingDecision, error) {
	quarantine := r.resolver.QuarantineBucket(req.Environment)

	bucket, parsed, err := r.classify(req)
	if err != nil {
		if !core.IsClassificationError(err) {
			return core.RoutingDecision{}, err
		}
		log.Warn().Err(err).Msg("File is not valid, moving to quarantine")
		return core.RoutingDecision{
			DestinationBucket: quarantine,
			DestinationKey:    core.QuarantineKey(core.InvalidPrefix, req.Key, r.now()),
			Action:            core.ActionQuarantineInvalid,
		}, nil
	}

	key := core.DestinationKey(r.keyLayout, parsed, req.Key)
	occupied, err := r.store.Exists(ctx, bucket, key)
	if err != nil {
		return core.RoutingDecision{}, err
	}
	if occupied {
		log.Warn().
			Str("destination_bucket", bucket).
			Str("destination_key", key).
			Msg("File already exists in destination, moving to quarantine")
		return core.RoutingDecision{
			DestinationBucket: quarantine,
			DestinationKey:    core.QuarantineKey(core.DuplicatePrefix, req.Key, r.now()),
			Action:            core.ActionQuarantineDuplicate,
		}, nil
	}

	return core.RoutingDecision{
		DestinationBucket: bucket,
		DestinationKey:    key,
		Action:            core.ActionMove,
	}, nil
}

func (r *Router) classify(req core.RoutingRequest) (string, *core.ParsedFilename, error) {
	res := r.classifier.Classify(req.Key)
	if !res.Ok() {
		if res.Err == nil {
			return "", nil, core.ErrParse
		}
		return "", nil, res.Err
	}

	bucket, err := r.resolver.Resolve(res.Parsed.Instrument, req.Environment)
	if err != nil {
		return "", nil, err
	}
	return bucket, res.Parsed, nil
}

func (r *Router) notify(ctx context.Context, req core.RoutingRequest, decision core.RoutingDecision, log zerolog.Logger) {
	if r.notifier == nil {
		return
	}

	n := core.Notification{
		Action:            decision.Action,
		Path:              decision.DestinationKey,
		SourceBucket:      req.SourceBucket,
		DestinationBucket: decision.DestinationBucket,
		Environment:       req.Environment,
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		log.Warn().Err(err).Msg("Failed to send notification")
	}
}
