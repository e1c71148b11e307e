package container

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appEvents "github.com/streamvault/upload-gateway/internal/application/events"
	"github.com/streamvault/upload-gateway/internal/application/handlers"
	"github.com/streamvault/upload-gateway/internal/domain/events"
	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/handler"
	pubsubInfra "github.com/streamvault/upload-gateway/internal/infrastructure/events/pubsub"
	"github.com/streamvault/upload-gateway/internal/infrastructure/events/rabbitmq"
	sqsInfra "github.com/streamvault/upload-gateway/internal/infrastructure/events/sqs"
	"github.com/streamvault/upload-gateway/internal/infrastructure/events/stdout"
	"github.com/streamvault/upload-gateway/internal/infrastructure/ledger"
	"github.com/streamvault/upload-gateway/internal/infrastructure/metrics"
	storageInfra "github.com/streamvault/upload-gateway/internal/infrastructure/storage"
	"github.com/streamvault/upload-gateway/internal/service"
	"github.com/streamvault/upload-gateway/pkg/config"
	"github.com/streamvault/upload-gateway/pkg/errors"
)

type Container struct {
	Config             *config.Config
	Logger             *slog.Logger
	EventSerializer    events.EventSerializer
	Publisher          port.EventPublisher
	Requester          port.Requester
	Storage            port.ObjectStorage
	Ledger             port.UploadLedger
	Observer           port.UploadObserver
	MetricsHandler     http.Handler
	ExistenceService   *appEvents.ExistenceService
	UploadEventService *appEvents.UploadEventService
	StorageService     *service.StorageService
	Orchestrator       *service.UploadOrchestrator
	UploadHandler      *handlers.UploadHandlerService
	Handler            *handler.Handler
	HealthChecks       []handler.HealthCheck

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Container, err error) {
	logger.Info("Initializing container")

	c := &Container{
		Config:          cfg,
		Logger:          logger,
		EventSerializer: events.NewJSONEventSerializer(),
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	conn, err := rabbitmq.Connect(ctx, cfg.Bus.RabbitMQURL, cfg.Bus.ConnectRetries, cfg.Bus.ConnectRetryDelay, logger)
	if err != nil {
		return nil, errors.WrapInternalError(err, "failed to connect to RabbitMQ")
	}
	c.onClose("rabbitmq connection", conn.Close)
	c.HealthChecks = append(c.HealthChecks, handler.HealthCheck{Name: "rabbitmq", Check: conn.Check})

	requester, err := rabbitmq.NewRequester(ctx, conn, rabbitmq.RequesterOptions{
		URL:       cfg.Bus.RabbitMQURL,
		QueueName: cfg.Bus.ReplyQueue,
		Timeout:   cfg.Bus.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, errors.WrapInternalError(err, "failed to create requester")
	}
	c.Requester = requester
	c.onClose("requester", requester.Close)
	logger.Info("Reply endpoint ready", "address", requester.Address())

	if c.Publisher, err = c.newPublisher(ctx, conn); err != nil {
		return nil, err
	}
	c.onClose("publisher", c.Publisher.Close)

	if c.Storage, err = c.newStorage(ctx); err != nil {
		return nil, err
	}

	if c.Ledger, err = c.newLedger(ctx); err != nil {
		return nil, err
	}
	c.onClose("ledger", c.Ledger.Close)

	c.Observer = port.NopObserver{}
	if cfg.Metrics.Enabled {
		observer, err := metrics.NewPrometheusObserver(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, errors.WrapInternalError(err, "failed to register metrics")
		}
		c.Observer = observer
		c.MetricsHandler = promhttp.Handler()
	}

	c.ExistenceService = appEvents.NewExistenceService(c.Requester, c.EventSerializer, logger)
	c.UploadEventService = appEvents.NewUploadEventService(c.Publisher, c.EventSerializer, c.Observer, logger)
	c.StorageService = service.NewStorageService(logger, c.Storage, cfg.Storage.URLTTL)
	c.Orchestrator = service.NewUploadOrchestrator(
		logger,
		c.ExistenceService,
		c.StorageService,
		c.UploadEventService,
		c.Ledger,
		c.Observer,
		cfg.Bus.PublishTimeout,
	)
	c.UploadHandler = handlers.NewUploadHandlerService(c.Orchestrator, logger)
	c.Handler = handler.NewHandler(c.UploadHandler, logger, c.HealthChecks...)

	logger.Info("Container initialized successfully",
		"storage", cfg.Storage.Provider,
		"publisher", cfg.Bus.Publisher,
		"ledger", cfg.Ledger.Provider,
		"metrics", cfg.Metrics.Enabled,
	)
	return c, nil
}

func (c *Container) newPublisher(ctx context.Context, conn rabbitmq.ChannelSource) (port.EventPublisher, error) {
	cfg := c.Config
	switch cfg.Bus.Publisher {
	case config.PublisherRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(ctx, conn, c.Logger)
		if err != nil {
			return nil, errors.WrapInternalError(err, "failed to create rabbitmq publisher")
		}
		return publisher, nil

	case config.PublisherPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			c.Logger.Error("Failed to create Pub/Sub client", "error", err)
			return nil, errors.WrapInternalError(err, "failed to create pubsub client")
		}
		c.onClose("pubsub client", client.Close)
		return pubsubInfra.NewPublisher(client, cfg.GCP.TopicPrefix, c.Logger), nil

	case config.PublisherSQS:
		awsCfg, err := storageInfra.LoadAWSConfig(ctx, cfg.AWS.Region, "", "")
		if err != nil {
			return nil, errors.WrapInternalError(err, "failed to load AWS config")
		}
		return sqsInfra.NewPublisher(awssqs.NewFromConfig(awsCfg), cfg.AWS.SQSQueuePrefix, c.Logger), nil

	case config.PublisherStdout:
		return stdout.NewPublisher(c.Logger), nil
	}
	return nil, errors.NewConfigurationError("unsupported bus publisher").
		WithContext("publisher", cfg.Bus.Publisher)
}

func (c *Container) newStorage(ctx context.Context) (port.ObjectStorage, error) {
	cfg := c.Config.Storage
	switch cfg.Provider {
	case config.StorageProviderMinIO:
		client, err := storageInfra.NewMinIOClient(storageInfra.MinIOOptions{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.WrapStorageError(err, "minIO client init error")
		}
		store := storageInfra.NewMinIOStorage(c.Logger, client, cfg.Bucket)
		if err := store.EnsureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
		return store, nil

	case config.StorageProviderGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, errors.WrapStorageError(err, "failed to create GCS client")
		}
		c.onClose("gcs client", client.Close)
		return storageInfra.NewGCSStorage(c.Logger, client, cfg.Bucket), nil

	case config.StorageProviderS3:
		region := cfg.Region
		if region == "" {
			region = c.Config.AWS.Region
		}
		awsCfg, err := storageInfra.LoadAWSConfig(ctx, region, cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, errors.WrapStorageError(err, "failed to load AWS config")
		}
		endpoint := cfg.Endpoint
		if endpoint != "" && !hasScheme(endpoint) {
			endpoint = schemeFor(cfg.UseSSL) + endpoint
		}
		return storageInfra.NewS3Storage(c.Logger, storageInfra.NewS3Client(awsCfg, endpoint), cfg.Bucket), nil
	}
	return nil, errors.NewConfigurationError("unsupported storage provider").
		WithContext("provider", cfg.Provider)
}

func (c *Container) newLedger(ctx context.Context) (port.UploadLedger, error) {
	cfg := c.Config
	switch cfg.Ledger.Provider {
	case config.LedgerNone:
		return ledger.Noop{}, nil

	case config.LedgerRedis:
		client, err := ledger.NewRedisClient(ctx, ledger.RedisOptions{
			Addr:     cfg.Ledger.RedisAddr,
			Password: cfg.Ledger.RedisPassword,
			DB:       cfg.Ledger.RedisDB,
		})
		if err != nil {
			return nil, errors.WrapInternalError(err, "failed to create redis ledger")
		}
		return ledger.NewRedisLedger(client, cfg.Ledger.TTL, c.Logger), nil

	case config.LedgerFirestore:
		client, err := firestore.NewClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, errors.WrapInternalError(err, "failed to create firestore client")
		}
		c.onClose("firestore client", client.Close)
		return ledger.NewFirestoreLedger(client, cfg.GCP.FirestoreCollection), nil
	}
	return nil, errors.NewConfigurationError("unsupported ledger provider").
		WithContext("provider", cfg.Ledger.Provider)
}

func (c *Container) onClose(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, close: fn})
}

// Close releases resources in reverse order of creation and returns the
// first error.
func (c *Container) Close() error {
	c.Logger.Info("Closing container resources")

	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			c.Logger.Error("Failed to close resource", "resource", cl.name, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	c.closers = nil

	c.Logger.Info("Container resources closed")
	return first
}

func hasScheme(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func schemeFor(useSSL bool) string {
	if useSSL {
		return "https://"
	}
	return "http://"
}
