package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultSourceType    = "kafka"
	defaultKafkaGroupID  = "wattlens-default-group"
	defaultMQTTBroker    = "tcp://localhost:1883"
	defaultMQTTTopic     = "wattlens/chunks/#"
	defaultMQTTQoS       = 1
	defaultFlushInterval = 1 * time.Second
	defaultMetricsAddr   = ":9090"

	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultLogFileEnabled = false
	defaultLogDirectory   = "log"
	defaultLogFilename    = "app.log"
	defaultLogMaxSizeMB   = 100
	defaultLogMaxBackups  = 3
	defaultLogMaxAgeDays  = 7
	defaultLogCompress    = false

	// Environment variable prefix
	envPrefix = "WATTLENS"
)

type Config struct {
	Source    SourceConfig     `mapstructure:"source"`
	Kafka     KafkaConfig      `mapstructure:"kafka"`
	MQTT      MQTTConfig       `mapstructure:"mqtt"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	Detectors []DetectorConfig `mapstructure:"detectors"`
	Trigger   TriggerConfig    `mapstructure:"trigger"`
	Regions   RegionConfig     `mapstructure:"regions"`
	Output    OutputConfig     `mapstructure:"output"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Log       LogConfig        `mapstructure:"log"`
}

// SourceConfig selects the chunk transport.
type SourceConfig struct {
	Type string `mapstructure:"type"` // "kafka" or "mqtt"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"clientID"` // derived from the run id when empty
	QoS      int    `mapstructure:"qos"`
}

type PipelineConfig struct {
	FlushInterval time.Duration `mapstructure:"flushInterval"` // interval summary cadence
	AnalogSignals []string      `mapstructure:"analogSignals"` // signals summarized per interval and region
}

// DetectorConfig describes one run-length threshold condition on an analog
// signal. The threshold sign selects the comparison: positive matches
// samples at or above it, negative matches samples at or below it.
type DetectorConfig struct {
	Name      string        `mapstructure:"name"`
	Signal    string        `mapstructure:"signal"`
	Threshold float64       `mapstructure:"threshold"`
	Duration  time.Duration `mapstructure:"duration"` // minimum qualifying run
}

// TriggerConfig describes the start/stop window trigger on one analog signal.
type TriggerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Signal         string        `mapstructure:"signal"`
	StartThreshold float64       `mapstructure:"startThreshold"`
	StartDuration  time.Duration `mapstructure:"startDuration"`
	StopThreshold  float64       `mapstructure:"stopThreshold"`
	StopDuration   time.Duration `mapstructure:"stopDuration"`
}

// RegionConfig lists the digital signals whose edges delimit regions of
// interest. Empty disables region extraction.
type RegionConfig struct {
	GPISignals []string `mapstructure:"gpiSignals"`
}

type OutputConfig struct {
	RegionCSV string `mapstructure:"regionCSV"` // file path; empty writes to stdout
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	// Read configuration from file (error if mandatory file is missing)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal the configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.type", defaultSourceType)
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("mqtt.broker", defaultMQTTBroker)
	v.SetDefault("mqtt.topic", defaultMQTTTopic)
	v.SetDefault("mqtt.qos", defaultMQTTQoS)
	v.SetDefault("pipeline.flushInterval", defaultFlushInterval)
	v.SetDefault("pipeline.analogSignals", []string{"i", "v", "p"})
	v.SetDefault("regions.gpiSignals", []string{"gpi0"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", defaultMetricsAddr)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Source.Type {
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return ErrEmptyKafkaBrokers
		}
		if cfg.Kafka.Topic == "" {
			return ErrEmptyKafkaTopic
		}
		if cfg.Kafka.GroupID == "" {
			return ErrEmptyKafkaGroupID
		}
	case "mqtt":
		if cfg.MQTT.Broker == "" {
			return ErrEmptyMQTTBroker
		}
		if cfg.MQTT.Topic == "" {
			return ErrEmptyMQTTTopic
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return ErrInvalidMQTTQoS
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSourceType, cfg.Source.Type)
	}

	if cfg.Pipeline.FlushInterval <= 0 {
		return ErrInvalidFlushInterval
	}
	if len(cfg.Pipeline.AnalogSignals) == 0 {
		return ErrNoAnalogSignals
	}

	for _, d := range cfg.Detectors {
		if d.Name == "" || d.Signal == "" {
			return fmt.Errorf("%w: name and signal are required", ErrInvalidDetector)
		}
		if d.Duration <= 0 {
			return fmt.Errorf("%w: %q needs a positive duration", ErrInvalidDetector, d.Name)
		}
	}

	if cfg.Trigger.Enabled {
		if cfg.Trigger.Signal == "" {
			return fmt.Errorf("%w: signal is required", ErrInvalidTrigger)
		}
		if cfg.Trigger.StartDuration <= 0 || cfg.Trigger.StopDuration <= 0 {
			return fmt.Errorf("%w: durations must be positive", ErrInvalidTrigger)
		}
	}

	return nil
}
