package bootstrap

import (
	"context"

	"support-flow-be/internal/config"
	"support-flow-be/internal/controller"
	"support-flow-be/internal/handler"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/repository/memory"
	"support-flow-be/internal/service"
	"support-flow-be/internal/websocket"
	"support-flow-be/pkg/featureflag"
	"support-flow-be/pkg/llm/factory"
	pktNats "support-flow-be/pkg/nats"
	"support-flow-be/pkg/support/executor"
	"support-flow-be/pkg/support/intent"
	"support-flow-be/pkg/support/response"
	"support-flow-be/pkg/support/retrieval"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	InquiryController controller.IInquiryController
	RunController     controller.IRunController
	FlagController    controller.IFlagController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	FlagService     service.IFeatureFlagService
	ConsumerService service.IConsumerService
	IntakeService   *service.IntakeService // nil without NATS

	// WebSockets
	RunStreamHandler *handler.RunStreamHandler
	WebSocketHub     *websocket.Hub

	Metrics *metrics.PrometheusRecorder
	Logger  logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLoggerWithLevel(cfg.App.LogFilePath, cfg.IsProduction(), logger.ParseLevel(cfg.App.LogLevel))
	recorder := metrics.NewPrometheusRecorder()
	c := &Container{Metrics: recorder, Logger: sysLogger}

	// 2. Feature flags
	var source featureflag.Source
	if cfg.Flags.Source == "http" {
		source = featureflag.NewHTTPSource(cfg.Flags.HTTPURL, cfg.Flags.SdkKey, cfg.Flags.InitTimeout)
	} else {
		source = featureflag.NewFileSource(cfg.Flags.File)
	}
	provider := featureflag.NewDocumentProvider(source, cfg.Flags.PollInterval, cfg.Flags.InitTimeout, sysLogger)
	flagService := service.NewFeatureFlagService(featureflag.NewOpenFeatureClient(provider), cfg.Flags, sysLogger, recorder)
	c.FlagService = flagService

	// 3. Pipeline
	generator := factory.NewGenerator(context.Background(), cfg.LLM, sysLogger, recorder)
	stages := executor.Stages{
		Intent:    intent.NewClassifier(generator, sysLogger, recorder),
		Retrieval: retrieval.NewRetriever(generator, sysLogger, recorder),
		Response:  response.NewGenerator(generator, sysLogger, recorder),
	}
	workflow := executor.NewWorkflowExecutor(flagService, flagService.StageKeys(), stages, sysLogger, recorder)

	// 4. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 5. Infrastructure
	// NATS
	var eventPublisher service.EventPublisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect NATS subscriber", map[string]interface{}{"error": err.Error()})
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	c.WebSocketHub = wsHub

	// 6. Services
	runs := memory.NewRunRepository(cfg.Worker.RunTTL)
	publisherService := service.NewPublisherService(cfg.Worker.Topic, pubSub)
	inquiryService := service.NewInquiryService(workflow, runs, publisherService, eventPublisher, wsHub, cfg.Worker, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Worker.Topic, inquiryService, sysLogger)
	if natsSub != nil {
		c.IntakeService = service.NewIntakeService(natsSub, inquiryService, sysLogger)
	}

	// 7. Controllers
	c.InquiryController = controller.NewInquiryController(inquiryService)
	c.RunController = controller.NewRunController(inquiryService)
	c.FlagController = controller.NewFlagController(flagService)
	c.HealthController = controller.NewHealthController(flagService)
	c.RunStreamHandler = handler.NewRunStreamHandler(wsHub, cfg.App.JwtSecret, sysLogger)

	return c
}

// Close releases the flag client and connections in reverse order of
// creation.
func (c *Container) Close() {
	if err := c.FlagService.Close(); err != nil {
		c.Logger.Warn("Bootstrap", "Flag service close failed", map[string]interface{}{"error": err.Error()})
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
