package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/fsx"
	"github.com/hermes-soc/filesorter/pkg/logx"
	"github.com/hermes-soc/filesorter/pkg/sniff"
)

const (
	BodySorted      = "Success Sorting File"
	BodyScanSorted  = "Success Sorting Files"
	bodyErrorPrefix = "Error: "
)

// Router routes a single object.
type Router interface {
	Route(ctx context.Context, req core.RoutingRequest) (core.RoutingResult, error)
}

// Response is the Lambda result. Body holds a JSON encoded string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Options holds the collaborators and settings of a Handler.
//
// Fields:
//   - Router: Moves each object.
//   - Store: Lists the incoming bucket and probes instrument buckets on scan triggers.
//   - Resolver: Provides the incoming and instrument bucket names.
//   - Classifier: Computes destination keys for the scan skip check.
//   - Environment: The environment requests are built for.
//   - DryRun: Dry-run flag copied into every request.
//   - KeyLayout: Destination key layout used by the scan skip check.
//   - ScanPrefix: Restricts the incoming bucket listing on scan triggers.
//   - Ignore: Glob patterns of keys never sorted on scan triggers.
type Options struct {
	Router      Router
	Store       core.ObjectStore
	Resolver    core.Resolver
	Classifier  core.Classifier
	Environment core.Environment
	DryRun      bool
	KeyLayout   string
	ScanPrefix  string
	Ignore      []string
}

// Handler is the Lambda entry point. An event with S3 records sorts each record; any other event
// scans the incoming bucket.
type Handler struct {
	router     Router
	store      core.ObjectStore
	resolver   core.Resolver
	classifier core.Classifier
	env        core.Environment
	dryRun     bool
	keyLayout  string
	scanPrefix string
	ignore     *fsx.Matcher
}

// New creates a Handler from opts.
func New(opts Options) (*Handler, error) {
	switch {
	case opts.Router == nil:
		return nil, errors.New("handler: missing router")
	case opts.Store == nil:
		return nil, errors.New("handler: missing object store")
	case opts.Resolver == nil:
		return nil, errors.New("handler: missing resolver")
	case opts.Classifier == nil:
		return nil, errors.New("handler: missing classifier")
	}

	ignore, err := fsx.NewMatcher(opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("handler: %w", err)
	}

	env := opts.Environment
	if env == "" {
		env = core.Development
	}

	return &Handler{
		router:     opts.Router,
		store:      opts.Store,
		resolver:   opts.Resolver,
		classifier: opts.Classifier,
		env:        env,
		dryRun:     opts.DryRun,
		keyLayout:  opts.KeyLayout,
		scanPrefix: opts.ScanPrefix,
		ignore:     ignore,
	}, nil
}

// recordsEnvelope decodes just enough of an event to tell record batches from scan triggers.
type recordsEnvelope struct {
	Records []json.RawMessage `json:"Records"`
}

// scanRequested reports whether payload is a scan trigger: empty, null, or an object without records.
// Anything that does not decode as such an object is rejected rather than treated as a scan.
func scanRequested(payload json.RawMessage) (bool, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true, nil
	}

	var env recordsEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return false, fmt.Errorf("invalid event: %w", err)
	}
	return len(env.Records) == 0, nil
}

// Handle processes one Lambda invocation. Failures are reported in the response, never as an error,
// so that the invocation is not retried by the S3 trigger.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (Response, error) {
	log := logx.With("invocation_id", invocationID(ctx), "environment", string(h.env))
	log.Info().Bool("dry_run", h.dryRun).Msg("Invocation started")

	var resp Response
	scan, err := scanRequested(payload)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Failed to decode event")
		resp = errorResponse(err)
	case scan:
		resp = h.handleScan(ctx, log)
	default:
		resp = h.handleRecords(ctx, payload, log)
	}

	log.Info().
		Int("status_code", resp.StatusCode).
		Object("runtime", sniff.Collect()).
		Msg("Invocation finished")
	return resp, nil
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// handleRecords sorts the records in order and stops at the first failure.
func (h *Handler) handleRecords(ctx context.Context, payload json.RawMessage, log zerolog.Logger) Response {
	var event events.S3Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Error().Err(err).Msg("Failed to decode S3 event")
		return errorResponse(fmt.Errorf("invalid S3 event: %w", err))
	}

	for i, rec := range event.Records {
		key := rec.S3.Object.URLDecodedKey
		if key == "" {
			key = rec.S3.Object.Key
		}

		req := core.RoutingRequest{
			SourceBucket: rec.S3.Bucket.Name,
			Key:          key,
			ETag:         rec.S3.Object.ETag,
			Environment:  h.env,
			DryRun:       h.dryRun,
		}
		if req.SourceBucket == "" || req.Key == "" {
			err := fmt.Errorf("record %d has no bucket or key", i)
			log.Error().Err(err).Msg("Invalid S3 event record")
			return errorResponse(err)
		}

		res, err := h.router.Route(ctx, req)
		if err != nil {
			log.Error().
				Int("record", i).
				Int("records", len(event.Records)).
				Str("bucket", req.SourceBucket).
				Str("key", req.Key).
				Err(err).
				Msg("Failed to sort record, skipping remaining records")
			return errorResponse(err)
		}
		if res.Warning != "" {
			log.Warn().Str("key", req.Key).Str("warning", res.Warning).Msg("Record sorted with warning")
		}
	}

	return jsonResponse(http.StatusOK, BodySorted)
}

// handleScan lists the incoming bucket and sorts every object that is neither ignored nor already
// present in an instrument bucket. Failing objects are logged and skipped.
func (h *Handler) handleScan(ctx context.Context, log zerolog.Logger) Response {
	bucket := h.resolver.IncomingBucket(h.env)
	log = log.With().Str("bucket", bucket).Str("prefix", h.scanPrefix).Logger()
	log.Info().Msg("No records in event, scanning incoming bucket")

	var listed, ignored, skipped, sorted, failed int
	for obj := range h.store.List(ctx, bucket, h.scanPrefix) {
		if obj.Err != nil {
			log.Error().Err(obj.Err).Msg("Failed to list incoming bucket")
			return errorResponse(obj.Err)
		}
		listed++

		if pattern, ok := h.ignore.Match(obj.Key); ok {
			log.Debug().Str("key", obj.Key).Str("pattern", pattern).Msg("Ignoring key")
			ignored++
			continue
		}

		existing, err := h.existingBucket(ctx, obj.Key)
		if err != nil {
			log.Error().Str("key", obj.Key).Err(err).Msg("Failed to check instrument buckets, skipping key")
			failed++
			continue
		}
		if existing != "" {
			log.Info().Str("key", obj.Key).Str("destination_bucket", existing).Msg("File already sorted, skipping key")
			skipped++
			continue
		}

		req := core.RoutingRequest{
			SourceBucket: bucket,
			Key:          obj.Key,
			ETag:         obj.ETag,
			Environment:  h.env,
			DryRun:       h.dryRun,
		}
		if _, err := h.router.Route(ctx, req); err != nil {
			log.Error().Str("key", obj.Key).Err(err).Msg("Failed to sort key, continuing scan")
			failed++
			continue
		}
		sorted++
	}

	if err := ctx.Err(); err != nil {
		log.Error().Err(err).Msg("Scan interrupted")
		return errorResponse(err)
	}

	log.Info().
		Int("listed", listed).
		Int("ignored", ignored).
		Int("skipped", skipped).
		Int("sorted", sorted).
		Int("failed", failed).
		Msg("Scan finished")
	return jsonResponse(http.StatusOK, BodyScanSorted)
}

// existingBucket returns the instrument bucket already holding the destination key of key, if any.
// Keys that do not classify are never considered sorted.
func (h *Handler) existingBucket(ctx context.Context, key string) (string, error) {
	res := h.classifier.Classify(key)
	if !res.Ok() {
		return "", nil
	}

	destKey := core.DestinationKey(h.keyLayout, res.Parsed, key)
	for _, b := range h.resolver.Buckets(h.env) {
		found, err := h.store.Exists(ctx, b, destKey)
		if err != nil {
			return "", err
		}
		if found {
			return b, nil
		}
	}
	return "", nil
}

func jsonResponse(status int, body string) Response {
	encoded, err := json.Marshal(body)
	if err != nil {
		encoded = []byte(`""`)
	}
	return Response{StatusCode: status, Body: string(encoded)}
}

func errorResponse(err error) Response {
	return jsonResponse(http.StatusInternalServerError, bodyErrorPrefix+err.Error())
}
