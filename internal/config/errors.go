package config

import "errors"

var (
	ErrReadingConfigFile    = errors.New("failed to read config file")
	ErrUnmarshallingConfig  = errors.New("failed to unmarshal config")
	ErrConfigFileMissing    = errors.New("config file not found")
	ErrInvalidSourceType    = errors.New("source type must be kafka or mqtt")
	ErrEmptyKafkaBrokers    = errors.New("kafka brokers list cannot be empty")
	ErrEmptyKafkaTopic      = errors.New("kafka topic cannot be empty")
	ErrEmptyKafkaGroupID    = errors.New("kafka groupID cannot be empty")
	ErrEmptyMQTTBroker      = errors.New("mqtt broker cannot be empty")
	ErrEmptyMQTTTopic       = errors.New("mqtt topic cannot be empty")
	ErrInvalidMQTTQoS       = errors.New("mqtt qos must be 0, 1, or 2")
	ErrInvalidFlushInterval = errors.New("pipeline flushInterval must be positive")
	ErrNoAnalogSignals      = errors.New("pipeline analogSignals cannot be empty")
	ErrInvalidDetector      = errors.New("invalid detector configuration")
	ErrInvalidTrigger       = errors.New("invalid trigger configuration")
)
