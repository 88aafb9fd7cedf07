// This file orchestrates the raster service, initializing and running the NATS
// worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/book-expert/raster-pipeline/internal/jobs"
)

// Config represents the overall configuration structure for the raster service.
type Config struct {
	NATS  NATSConfig  `toml:"nats"`
	Paths PathsConfig `toml:"paths"`
}

// PathsConfig holds common path configurations.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// NATSConfig holds NATS-specific configuration for the raster service.
type NATSConfig struct {
	URL                     string `toml:"url"`
	RequestStreamName       string `toml:"request_stream_name"`
	RequestConsumerName     string `toml:"request_consumer_name"`
	ImageRequestedSubject   string `toml:"image_requested_subject"`
	SourceObjectStoreBucket string `toml:"source_object_store_bucket"`
	ResultStreamName        string `toml:"result_stream_name"`
	ImageProcessedSubject   string `toml:"image_processed_subject"`
	ResultObjectStoreBucket string `toml:"result_object_store_bucket"`
}

const (
	configURLEnv     = "RASTER_SERVICE_CONFIG_URL"
	natsFetchTimeout = 5 * time.Second
	ackWait          = 30 * time.Second
)

// ErrConfigURLMissing is returned when the config URL environment variable is empty.
var ErrConfigURLMissing = errors.New(configURLEnv + " is not set")

// main is the entry point of the application.
func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runErr := run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("Fatal application error: %v", runErr)
		os.Exit(1)
	}

	log.Println("Application shut down gracefully.")
}

// run initializes all components and starts the message processing loop.
func run(ctx context.Context) error {
	cfg, appLogger, setupErr := setupConfigAndLogger()
	if setupErr != nil {
		return setupErr
	}

	defer func() {
		closeErr := appLogger.Close()
		if closeErr != nil {
			log.Printf("Warning: failed to close app logger: %v", closeErr)
		}
	}()

	natsConnection, connErr := nats.Connect(cfg.NATS.URL)
	if connErr != nil {
		return fmt.Errorf("failed to connect to NATS: %w", connErr)
	}
	defer natsConnection.Close()

	appLogger.Info("Connected to NATS server at %s", natsConnection.ConnectedUrl())

	jetStream, jsErr := jetstream.New(natsConnection)
	if jsErr != nil {
		return fmt.Errorf("failed to create JetStream context: %w", jsErr)
	}

	jsSetupErr := setupJetStream(ctx, jetStream, cfg)
	if jsSetupErr != nil {
		return fmt.Errorf("failed to set up JetStream resources: %w", jsSetupErr)
	}

	consumer, consumerErr := jetStream.Consumer(
		ctx,
		cfg.NATS.RequestStreamName,
		cfg.NATS.RequestConsumerName,
	)
	if consumerErr != nil {
		return fmt.Errorf("failed to get consumer: %w", consumerErr)
	}

	handler, handlerErr := newHandler(ctx, jetStream, cfg, appLogger)
	if handlerErr != nil {
		return handlerErr
	}

	defer func() {
		closeErr := handler.Close()
		if closeErr != nil {
			appLogger.Warn("Failed to close job handler: %v", closeErr)
		}
	}()

	appLogger.Info(
		"Worker is running, listening for jobs on '%s'...",
		cfg.NATS.ImageRequestedSubject,
	)

	return processMessages(ctx, consumer, handler, appLogger)
}

// setupConfigAndLogger loads configuration and sets up the main application logger.
func setupConfigAndLogger() (*Config, *logger.Logger, error) {
	configURL := os.Getenv(configURLEnv)
	if configURL == "" {
		return nil, nil, ErrConfigURLMissing
	}

	var cfg Config

	tempLogger, tempLoggerErr := logger.New(os.TempDir(), "raster-service-bootstrap.log")
	if tempLoggerErr != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", tempLoggerErr)
	}

	defer func() {
		closeErr := tempLogger.Close()
		if closeErr != nil {
			log.Printf("Warning: failed to close temp logger: %v", closeErr)
		}
	}()

	loadErr := configurator.LoadFromURL(configURL, &cfg, tempLogger)
	if loadErr != nil {
		return nil, nil, fmt.Errorf(
			"failed to load configuration from URL %s: %w",
			configURL,
			loadErr,
		)
	}

	log.Printf("Configuration loaded from %s", configURL)

	appLogger, loggerErr := logger.New(cfg.Paths.BaseLogsDir, "raster-service.log")
	if loggerErr != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", loggerErr)
	}

	return &cfg, appLogger, nil
}

// setupJetStream ensures all required NATS streams and object stores exist.
func setupJetStream(ctx context.Context, jetStream jetstream.JetStream, cfg *Config) error {
	streamCfg := newStreamConfig(cfg.NATS.RequestStreamName, cfg.NATS.ImageRequestedSubject)

	_, streamErr := jetStream.CreateStream(ctx, *streamCfg)
	if streamErr != nil && !errors.Is(streamErr, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create request stream: %w", streamErr)
	}

	stream, streamErr := jetStream.Stream(ctx, cfg.NATS.RequestStreamName)
	if streamErr != nil {
		return fmt.Errorf("failed to get request stream handle: %w", streamErr)
	}

	_, consumerErr := stream.CreateOrUpdateConsumer(ctx, *newConsumerConfig(cfg))
	if consumerErr != nil {
		return fmt.Errorf("failed to create request consumer: %w", consumerErr)
	}

	resultStreamCfg := newStreamConfig(cfg.NATS.ResultStreamName, cfg.NATS.ImageProcessedSubject)

	_, resultStreamErr := jetStream.CreateStream(ctx, *resultStreamCfg)
	if resultStreamErr != nil &&
		!errors.Is(resultStreamErr, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create result stream: %w", resultStreamErr)
	}

	for _, bucket := range []string{
		cfg.NATS.SourceObjectStoreBucket,
		cfg.NATS.ResultObjectStoreBucket,
	} {
		_, objStoreErr := jetStream.CreateObjectStore(ctx, *newObjectStoreConfig(bucket))
		if objStoreErr != nil && !errors.Is(objStoreErr, jetstream.ErrBucketExists) {
			return fmt.Errorf("failed to create object store '%s': %w", bucket, objStoreErr)
		}
	}

	return nil
}

func newStreamConfig(name, subject string) *jetstream.StreamConfig {
	return &jetstream.StreamConfig{
		Name:                   name,
		Description:            "",
		Subjects:               []string{subject},
		Retention:              jetstream.WorkQueuePolicy,
		MaxConsumers:           -1,
		MaxMsgs:                -1,
		MaxBytes:               -1,
		Discard:                jetstream.DiscardOld,
		DiscardNewPerSubject:   false,
		MaxAge:                 0,
		MaxMsgsPerSubject:      -1,
		MaxMsgSize:             -1,
		Storage:                jetstream.FileStorage,
		Replicas:               1,
		NoAck:                  false,
		Duplicates:             0,
		Placement:              nil,
		Mirror:                 nil,
		Sources:                nil,
		Sealed:                 false,
		DenyDelete:             false,
		DenyPurge:              false,
		AllowRollup:            false,
		Compression:            jetstream.NoCompression,
		FirstSeq:               0,
		SubjectTransform:       nil,
		RePublish:              nil,
		AllowDirect:            false,
		MirrorDirect:           false,
		ConsumerLimits:         jetstream.StreamConsumerLimits{},
		Metadata:               nil,
		Template:               "",
		AllowMsgTTL:            false,
		SubjectDeleteMarkerTTL: 0,
	}
}

func newConsumerConfig(cfg *Config) *jetstream.ConsumerConfig {
	return &jetstream.ConsumerConfig{
		Durable:            cfg.NATS.RequestConsumerName,
		Name:               "",
		Description:        "",
		FilterSubject:      cfg.NATS.ImageRequestedSubject,
		AckPolicy:          jetstream.AckExplicitPolicy,
		AckWait:            ackWait,
		MaxDeliver:         -1,
		DeliverPolicy:      jetstream.DeliverAllPolicy,
		OptStartSeq:        0,
		OptStartTime:       nil,
		BackOff:            nil,
		ReplayPolicy:       jetstream.ReplayInstantPolicy,
		RateLimit:          0,
		SampleFrequency:    "",
		MaxWaiting:         0,
		MaxAckPending:      -1,
		HeadersOnly:        false,
		MaxRequestBatch:    0,
		MaxRequestExpires:  0,
		MaxRequestMaxBytes: 0,
		InactiveThreshold:  0,
		Replicas:           0,
		MemoryStorage:      false,
		FilterSubjects:     nil,
		Metadata:           nil,
		PauseUntil:         nil,
		PriorityPolicy:     0,
		PinnedTTL:          0,
		PriorityGroups:     nil,
		DeliverSubject:     "",
		DeliverGroup:       "",
		FlowControl:        false,
		IdleHeartbeat:      0,
	}
}

func newObjectStoreConfig(bucket string) *jetstream.ObjectStoreConfig {
	return &jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "",
		TTL:         0,
		MaxBytes:    -1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Compression: false,
		Metadata:    nil,
	}
}

// newHandler binds the object stores and builds the job handler.
func newHandler(
	ctx context.Context,
	jetStream jetstream.JetStream,
	cfg *Config,
	appLogger *logger.Logger,
) (*jobs.Handler, error) {
	sourceStore, sourceErr := jetStream.ObjectStore(ctx, cfg.NATS.SourceObjectStoreBucket)
	if sourceErr != nil {
		return nil, fmt.Errorf("failed to bind to source object store: %w", sourceErr)
	}

	resultStore, resultErr := jetStream.ObjectStore(ctx, cfg.NATS.ResultObjectStoreBucket)
	if resultErr != nil {
		return nil, fmt.Errorf("failed to bind to result object store: %w", resultErr)
	}

	handler, handlerErr := jobs.NewHandler(jobs.HandlerConfig{
		Sources:          sourceStore,
		Results:          resultStore,
		Publisher:        jetStream,
		ProcessedSubject: cfg.NATS.ImageProcessedSubject,
		Logger:           appLogger,
	})
	if handlerErr != nil {
		return nil, fmt.Errorf("failed to create job handler: %w", handlerErr)
	}

	return handler, nil
}

// processMessages implements the core worker loop.
func processMessages(
	ctx context.Context,
	consumer jetstream.Consumer,
	handler *jobs.Handler,
	appLogger *logger.Logger,
) error {
	for {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("context error in message loop: %w", ctxErr)
		}

		batch, fetchErr := consumer.Fetch(1, jetstream.FetchMaxWait(natsFetchTimeout))
		if fetchErr != nil {
			if !errors.Is(fetchErr, context.Canceled) && !errors.Is(fetchErr, nats.ErrTimeout) {
				appLogger.Error("Error fetching messages: %v", fetchErr)
			}

			continue
		}

		for msg := range batch.Messages() {
			handleMessage(ctx, msg, handler, appLogger)
		}

		batchErr := batch.Error()
		if batchErr != nil {
			appLogger.Error("Error during message batch processing: %v", batchErr)
		}
	}
}

// handleMessage processes a single message and settles it: ACK on success,
// TERM on permanent failures, NAK otherwise.
func handleMessage(
	ctx context.Context,
	msg jetstream.Msg,
	handler *jobs.Handler,
	appLogger *logger.Logger,
) {
	progErr := msg.InProgress()
	if progErr != nil {
		appLogger.Warn("Failed to send InProgress update: %v", progErr)
	}

	event, handleErr := handler.Handle(ctx, msg.Data())

	switch {
	case handleErr == nil:
		ackErr := msg.Ack()
		if ackErr != nil {
			appLogger.Error("Job [%s]: Failed to acknowledge message: %v", event.Header.WorkflowID, ackErr)

			return
		}

		appLogger.Success(
			"Job [%s]: Stored '%s'. Acknowledged.",
			event.Header.WorkflowID,
			event.ResultKey,
		)
	case errors.Is(handleErr, jobs.ErrPermanent):
		appLogger.Error("Terminating message: %v", handleErr)

		termErr := msg.Term()
		if termErr != nil {
			appLogger.Error("Failed to TERM message: %v", termErr)
		}
	default:
		appLogger.Error("NAK'ing message: %v", handleErr)

		nakErr := msg.Nak()
		if nakErr != nil {
			appLogger.Error("Failed to NAK message: %v", nakErr)
		}
	}
}
