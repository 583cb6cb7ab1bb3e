package config

import (
	"fmt"
	"time"

	"rentavail/pkg/logger"
)

type Kafka struct {
	Enabled bool
	Brokers []string

	EventsTopic   string
	CommandsTopic string
	ConsumerGroup string
	DLQTopic      string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // none, gzip, snappy, lz4, zstd

	ConsumerStartOffset       int64 // -1 = newest, -2 = oldest
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int
}

func kafkaFromEnv() Kafka {
	return Kafka{
		Enabled: getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		Brokers: getEnvList(EnvKafkaBrokers, DefaultKafkaBrokers),

		EventsTopic:   getEnvStr(EnvKafkaEventsTopic, DefaultKafkaEventsTopic),
		CommandsTopic: getEnvStr(EnvKafkaCommandsTopic, DefaultKafkaCommandsTopic),
		ConsumerGroup: getEnvStr(EnvKafkaConsumerGroup, DefaultKafkaConsumerGroup),
		DLQTopic:      getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),

		ProducerMaxAttempts:  getEnvNum(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  getEnvNum(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),

		ConsumerStartOffset:       getEnvInt64(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset),
		ConsumerMinBytes:          getEnvNum(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:          getEnvNum(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:           getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval:    getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerHeartbeatInterval: getEnvDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    getEnvDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  getEnvDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
		ConsumerMaxRetries:        getEnvNum(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
	}
}

func (k Kafka) validate() []string {
	var errs []string

	if len(k.Brokers) == 0 {
		errs = append(errs, "At least one Kafka broker is required")
	}
	if k.EventsTopic == "" {
		errs = append(errs, "KafkaEventsTopic cannot be empty")
	}
	if k.CommandsTopic != "" && k.ConsumerGroup == "" {
		errs = append(errs, "KafkaConsumerGroup is required when a commands topic is set")
	}
	if k.ProducerMaxAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", k.ProducerMaxAttempts))
	}
	if k.ProducerBatchTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", k.ProducerBatchTimeout))
	}

	switch k.ProducerCompression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", k.ProducerCompression))
	}

	switch k.ProducerRequireAcks {
	case -1, 0, 1:
	default:
		errs = append(errs, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", k.ProducerRequireAcks))
	}

	if k.ConsumerStartOffset != -1 && k.ConsumerStartOffset != -2 {
		errs = append(errs, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", k.ConsumerStartOffset))
	}
	if k.ConsumerMinBytes <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMinBytes must be positive, got: %d", k.ConsumerMinBytes))
	}
	if k.ConsumerMaxBytes < k.ConsumerMinBytes {
		errs = append(errs, fmt.Sprintf("ConsumerMaxBytes (%d) must be >= ConsumerMinBytes (%d)", k.ConsumerMaxBytes, k.ConsumerMinBytes))
	}
	if k.ConsumerMaxWait <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxWait must be positive, got: %s", k.ConsumerMaxWait))
	}
	if k.ConsumerCommitInterval < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerCommitInterval cannot be negative, got: %s", k.ConsumerCommitInterval))
	}
	if k.ConsumerHeartbeatInterval <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerHeartbeatInterval must be positive, got: %s", k.ConsumerHeartbeatInterval))
	}
	if k.ConsumerSessionTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerSessionTimeout must be positive, got: %s", k.ConsumerSessionTimeout))
	}
	if k.ConsumerRebalanceTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerRebalanceTimeout must be positive, got: %s", k.ConsumerRebalanceTimeout))
	}
	if k.ConsumerMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", k.ConsumerMaxRetries))
	}

	return errs
}

func (k Kafka) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded successfully",
		"brokers", k.Brokers,
		"events_topic", k.EventsTopic,
		"commands_topic", k.CommandsTopic,
		"consumer_group", k.ConsumerGroup,
		"dlq_topic", k.DLQTopic,
		"producer_max_attempts", k.ProducerMaxAttempts,
		"producer_batch_timeout", k.ProducerBatchTimeout,
		"producer_require_acks", k.ProducerRequireAcks,
		"producer_compression", k.ProducerCompression,
		"consumer_start_offset", k.ConsumerStartOffset,
		"consumer_max_wait", k.ConsumerMaxWait,
		"consumer_max_retries", k.ConsumerMaxRetries,
	)
}
