package main

import (
	"context"
	"os"

	"github.com/jonboulle/clockwork"

	"rentavail/internal/availability/events"
	"rentavail/internal/availability/handler"
	"rentavail/internal/availability/seed"
	"rentavail/internal/availability/service"
	"rentavail/internal/availability/store"
	"rentavail/internal/availability/validator"
	"rentavail/internal/scheduler"
	"rentavail/pkg/app"
	"rentavail/pkg/config"
	"rentavail/pkg/contracts"
	"rentavail/pkg/kafka"
)

const ServiceName = "availability"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Availability service")

	serverApp := app.NewApplication(cfg)
	metrics := &kafka.Metrics{}

	st := store.New(
		clockwork.NewRealClock(),
		store.WithLogger(cfg.Log),
		store.WithValidator(validator.NewAvailabilityValidator(cfg.Log)),
		store.WithHorizonDays(cfg.HorizonDays),
		store.WithSearchDays(cfg.SearchDays),
	)

	publisher := initPublisher(cfg, serverApp, metrics)
	availabilityService := service.NewAvailabilityService(
		st,
		validator.NewAvailabilityValidator(cfg.Log),
		publisher,
		cfg,
	)

	if cfg.SeedFile != "" {
		seedStore(cfg, availabilityService)
	}

	initScheduler(cfg, serverApp, availabilityService)
	initConsumer(cfg, serverApp, availabilityService, metrics)

	health := handler.NewHealthHandler(st, metrics, cfg.Log)
	serverApp.SetApp(health, handler.NewAvailabilityHandler(availabilityService, cfg.Log))
	health.MarkReady()

	if err := serverApp.Run(); err != nil {
		cfg.Log.Error("Availability service stopped with error", "error", err)
		os.Exit(1)
	}
}

func initPublisher(cfg *config.Config, serverApp *app.Application, metrics *kafka.Metrics) events.Publisher {
	if !cfg.Kafka.Enabled {
		cfg.Log.Info("Kafka disabled, availability events will not be published")
		return events.NopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic, cfg.Kafka.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka.LoggingProducerMiddleware(cfg.Log))
	producer.Use(metrics.ProducerMiddleware())

	publisher := events.NewKafkaPublisher(producer, ServiceName)
	serverApp.OnShutdown("kafka-producer", publisher.Close)
	return publisher
}

func initConsumer(cfg *config.Config, serverApp *app.Application, svc service.AvailabilityService, metrics *kafka.Metrics) {
	if !cfg.Kafka.Enabled {
		return
	}

	commands := events.NewCommandConsumer(svc, cfg.Log)
	consumer, err := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.CommandsTopic,
		cfg.Kafka.ConsumerGroup,
		cfg.Kafka.DLQTopic,
		commands.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	serverApp.AddWorker("kafka-consumer", contracts.WorkerFunc(consumer.Start))
	serverApp.OnShutdown("kafka-consumer", consumer.Close)
}

func initScheduler(cfg *config.Config, serverApp *app.Application, svc service.AvailabilityService) {
	sched, err := scheduler.New(cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create scheduler", "error", err)
	}
	if _, err := sched.AddJob("roll-horizon", cfg.RegenerateCron, svc.RollHorizon); err != nil {
		cfg.Log.Fatal("Failed to schedule horizon roll", "cron", cfg.RegenerateCron, "error", err)
	}

	sched.Start()
	serverApp.OnShutdown("scheduler", sched.Stop)
}

func seedStore(cfg *config.Config, svc service.AvailabilityService) {
	f, err := seed.Load(cfg.SeedFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load seed file", "path", cfg.SeedFile, "error", err)
	}
	if err := seed.Apply(context.Background(), svc, f, cfg.Log); err != nil {
		cfg.Log.Warn("Seed file contained rejected entries", "path", cfg.SeedFile, "error", err)
	}
}
