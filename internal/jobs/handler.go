// Package jobs turns image processing requests received over NATS JetStream
// into stored results and completion events.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/book-expert/raster-pipeline/internal/pipeline"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

var (
	// ErrPermanent marks failures that will not succeed on redelivery. The
	// worker terminates such messages instead of retrying them.
	ErrPermanent = errors.New("permanent job failure")
	// ErrMissingImageKey is returned for a request without an image key.
	ErrMissingImageKey = errors.New("image key is required")
)

const (
	compressedSuffix = ".zst"
	// maxDecodedBytes bounds the memory a compressed payload may expand to.
	maxDecodedBytes = 1 << 30
)

// ObjectStore is the subset of jetstream.ObjectStore used by the handler.
type ObjectStore interface {
	GetBytes(ctx context.Context, name string, opts ...jetstream.GetObjectOpt) ([]byte, error)
	PutBytes(ctx context.Context, name string, data []byte) (*jetstream.ObjectInfo, error)
}

// Publisher is the subset of jetstream.JetStream used to announce results.
type Publisher interface {
	Publish(
		ctx context.Context,
		subject string,
		payload []byte,
		opts ...jetstream.PublishOpt,
	) (*jetstream.PubAck, error)
}

// HandlerConfig wires a Handler to its stores and subject.
type HandlerConfig struct {
	Sources          ObjectStore
	Results          ObjectStore
	Publisher        Publisher
	ProcessedSubject string
	Logger           *logger.Logger
}

// Handler processes ImageRequestedEvent payloads.
type Handler struct {
	sources   ObjectStore
	results   ObjectStore
	publisher Publisher
	subject   string
	log       *logger.Logger
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	now       func() time.Time
	newID     func() string
}

// NewHandler creates a Handler. Close releases its compression state.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	encoder, encErr := zstd.NewWriter(nil)
	if encErr != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", encErr)
	}

	decoder, decErr := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedBytes))
	if decErr != nil {
		_ = encoder.Close()

		return nil, fmt.Errorf("failed to create zstd decoder: %w", decErr)
	}

	return &Handler{
		sources:   cfg.Sources,
		results:   cfg.Results,
		publisher: cfg.Publisher,
		subject:   cfg.ProcessedSubject,
		log:       cfg.Logger,
		encoder:   encoder,
		decoder:   decoder,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}, nil
}

// Close releases the zstd encoder and decoder.
func (h *Handler) Close() error {
	h.decoder.Close()

	return h.encoder.Close()
}

// Handle runs one request end to end: fetch, process, store, announce.
// Errors wrapping ErrPermanent should not be retried.
func (h *Handler) Handle(ctx context.Context, payload []byte) (*ImageProcessedEvent, error) {
	request, opts, parseErr := parseRequest(payload)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrPermanent, parseErr)
	}

	h.log.Info(
		"Received job for WorkflowID [%s]: processing image key '%s'",
		request.Header.WorkflowID,
		request.ImageKey,
	)

	source, fetchErr := h.fetch(ctx, request.ImageKey)
	if fetchErr != nil {
		return nil, fetchErr
	}

	result, runErr := pipeline.Run(source, opts)
	if runErr != nil {
		return nil, fmt.Errorf("%w: failed to process '%s': %w", ErrPermanent, request.ImageKey, runErr)
	}

	resultKey := request.ResultKey
	if resultKey == "" {
		resultKey = defaultResultKey(&request.Header, request.ImageKey, result.Variant)
	}

	storeErr := h.store(ctx, resultKey, result.Data)
	if storeErr != nil {
		return nil, storeErr
	}

	h.log.Info("Job [%s]: Uploaded '%s'", request.Header.WorkflowID, resultKey)

	event := &ImageProcessedEvent{
		Header: events.EventHeader{
			WorkflowID: request.Header.WorkflowID,
			UserID:     request.Header.UserID,
			TenantID:   request.Header.TenantID,
			EventID:    h.newID(),
			Timestamp:  h.now(),
		},
		SourceKey: request.ImageKey,
		ResultKey: resultKey,
		Variant:   result.Variant.String(),
		Width:     result.Width,
		Height:    result.Height,
	}

	publishErr := h.publish(ctx, event)
	if publishErr != nil {
		return nil, publishErr
	}

	return event, nil
}

// parseRequest decodes the payload and resolves its pipeline options.
func parseRequest(payload []byte) (*ImageRequestedEvent, pipeline.Options, error) {
	var request ImageRequestedEvent

	unmarshalErr := json.Unmarshal(payload, &request)
	if unmarshalErr != nil {
		return nil, pipeline.Options{}, fmt.Errorf(
			"failed to unmarshal ImageRequestedEvent: %w",
			unmarshalErr,
		)
	}

	if strings.TrimSpace(request.ImageKey) == "" {
		return nil, pipeline.Options{}, ErrMissingImageKey
	}

	family, familyErr := pnm.ParseFamily(request.ExpectFamily)
	if familyErr != nil {
		return nil, pipeline.Options{}, familyErr
	}

	var output pnm.Variant

	if request.Output != "" {
		variant, variantErr := pnm.ParseVariant(request.Output)
		if variantErr != nil {
			return nil, pipeline.Options{}, variantErr
		}

		output = variant
	}

	validateErr := pipeline.Validate(request.Steps)
	if validateErr != nil {
		return nil, pipeline.Options{}, validateErr
	}

	return &request, pipeline.Options{
		ExpectFamily: family,
		Steps:        request.Steps,
		Output:       output,
		MaxValue:     request.MaxValue,
	}, nil
}

func (h *Handler) fetch(ctx context.Context, key string) ([]byte, error) {
	data, getErr := h.sources.GetBytes(ctx, key)
	if getErr != nil {
		if errors.Is(getErr, jetstream.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: source '%s' not found: %w", ErrPermanent, key, getErr)
		}

		return nil, fmt.Errorf("failed to get '%s' from object store: %w", key, getErr)
	}

	if !strings.HasSuffix(key, compressedSuffix) {
		return data, nil
	}

	decoded, decodeErr := h.decoder.DecodeAll(data, nil)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: failed to decompress '%s': %w", ErrPermanent, key, decodeErr)
	}

	return decoded, nil
}

func (h *Handler) store(ctx context.Context, key string, data []byte) error {
	if strings.HasSuffix(key, compressedSuffix) {
		data = h.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	_, putErr := h.results.PutBytes(ctx, key, data)
	if putErr != nil {
		return fmt.Errorf("failed to put '%s' in object store: %w", key, putErr)
	}

	return nil
}

func (h *Handler) publish(ctx context.Context, event *ImageProcessedEvent) error {
	eventJSON, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal ImageProcessedEvent: %w", marshalErr)
	}

	_, pubErr := h.publisher.Publish(ctx, h.subject, eventJSON)
	if pubErr != nil {
		return fmt.Errorf("failed to publish ImageProcessedEvent: %w", pubErr)
	}

	return nil
}

// defaultResultKey builds "<tenant>/<workflow>/<base><ext>" from the source
// key, dropping any compression suffix.
func defaultResultKey(header *events.EventHeader, imageKey string, variant pnm.Variant) string {
	base := path.Base(strings.TrimSuffix(imageKey, compressedSuffix))
	base = strings.TrimSuffix(base, path.Ext(base))

	return fmt.Sprintf(
		"%s/%s/%s%s",
		header.TenantID,
		header.WorkflowID,
		base,
		variant.Family().Extension(),
	)
}
