package pipeline

import "errors"

var (
	ErrInvalidKafkaConfig     = errors.New("invalid Kafka configuration provided")
	ErrInvalidMQTTConfig      = errors.New("invalid MQTT configuration provided")
	ErrUnknownSourceType      = errors.New("unknown source type")
	ErrKafkaFetchFailed       = errors.New("failed to fetch message from Kafka")
	ErrMQTTConnectFailed      = errors.New("failed to connect to MQTT broker")
	ErrConsumerCreationFailed = errors.New("failed to create consumer")
	ErrEmitterCreationFailed  = errors.New("failed to create emitter")
	ErrConsumerRunFailed      = errors.New("consumer component failed")
	ErrAnalyzerRunFailed      = errors.New("analyzer component failed")
	ErrEmitterRunFailed       = errors.New("emitter component failed")
)
