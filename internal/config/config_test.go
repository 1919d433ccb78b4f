package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
source:
  type: kafka
kafka:
  brokers: ["localhost:9092"]
  topic: power-telemetry
pipeline:
  flushInterval: 2s
  analogSignals: ["i", "v"]
detectors:
  - name: overcurrent
    signal: i
    threshold: 0.5
    duration: 10ms
trigger:
  enabled: true
  signal: i
  startThreshold: 1.0
  startDuration: 1ms
  stopThreshold: 0.1
  stopDuration: 2ms
regions:
  gpiSignals: ["gpi0", "gpi1"]
output:
  regionCSV: /tmp/regions.csv
log:
  level: debug
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "kafka", cfg.Source.Type)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "power-telemetry", cfg.Kafka.Topic)
	require.Equal(t, 2*time.Second, cfg.Pipeline.FlushInterval)
	require.Equal(t, []string{"i", "v"}, cfg.Pipeline.AnalogSignals)

	require.Len(t, cfg.Detectors, 1)
	require.Equal(t, "overcurrent", cfg.Detectors[0].Name)
	require.Equal(t, "i", cfg.Detectors[0].Signal)
	require.Equal(t, 0.5, cfg.Detectors[0].Threshold)
	require.Equal(t, 10*time.Millisecond, cfg.Detectors[0].Duration)

	require.True(t, cfg.Trigger.Enabled)
	require.Equal(t, 1.0, cfg.Trigger.StartThreshold)
	require.Equal(t, 2*time.Millisecond, cfg.Trigger.StopDuration)

	require.Equal(t, []string{"gpi0", "gpi1"}, cfg.Regions.GPISignals)
	require.Equal(t, "/tmp/regions.csv", cfg.Output.RegionCSV)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
kafka:
  brokers: ["localhost:9092"]
  topic: power-telemetry
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	require.Equal(t, "kafka", cfg.Source.Type)
	require.Equal(t, "wattlens-default-group", cfg.Kafka.GroupID)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, 1, cfg.MQTT.QoS)
	require.Equal(t, 1*time.Second, cfg.Pipeline.FlushInterval)
	require.Equal(t, []string{"i", "v", "p"}, cfg.Pipeline.AnalogSignals)
	require.Equal(t, []string{"gpi0"}, cfg.Regions.GPISignals)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, ":9090", cfg.Metrics.Addr)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, 100, cfg.Log.MaxSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrReadingConfigFile)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WATTLENS_KAFKA_TOPIC", "override-topic")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, "override-topic", cfg.Kafka.Topic)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "unknown source type",
			yaml: `
source:
  type: pigeon
kafka:
  brokers: ["localhost:9092"]
  topic: t
`,
			wantErr: ErrInvalidSourceType,
		},
		{
			name: "kafka without brokers",
			yaml: `
kafka:
  topic: t
`,
			wantErr: ErrEmptyKafkaBrokers,
		},
		{
			name: "kafka without topic",
			yaml: `
kafka:
  brokers: ["localhost:9092"]
`,
			wantErr: ErrEmptyKafkaTopic,
		},
		{
			name: "mqtt with bad qos",
			yaml: `
source:
  type: mqtt
mqtt:
  qos: 5
`,
			wantErr: ErrInvalidMQTTQoS,
		},
		{
			name: "zero flush interval",
			yaml: `
kafka:
  brokers: ["localhost:9092"]
  topic: t
pipeline:
  flushInterval: 0s
`,
			wantErr: ErrInvalidFlushInterval,
		},
		{
			name: "detector without duration",
			yaml: `
kafka:
  brokers: ["localhost:9092"]
  topic: t
detectors:
  - name: d
    signal: i
    threshold: 1.0
`,
			wantErr: ErrInvalidDetector,
		},
		{
			name: "detector without name",
			yaml: `
kafka:
  brokers: ["localhost:9092"]
  topic: t
detectors:
  - signal: i
    threshold: 1.0
    duration: 1ms
`,
			wantErr: ErrInvalidDetector,
		},
		{
			name: "trigger without signal",
			yaml: `
kafka:
  brokers: ["localhost:9092"]
  topic: t
trigger:
  enabled: true
  startDuration: 1ms
  stopDuration: 1ms
`,
			wantErr: ErrInvalidTrigger,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
