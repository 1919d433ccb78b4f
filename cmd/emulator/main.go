package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/wattlens/wattlens/internal/stream"
)

// Signal model: a 1 MHz instrument decimated to 1 kHz, idling near 8 mA and
// pulsing to 450 mA for one second out of every five, with gpi0 wired to
// the pulse.
const (
	device         = "js220-000042"
	sampleRate     = 1e6
	decimateFactor = 1000
	chunkSamples   = 200  // 200 ms of effective samples per chunk
	pulsePeriod    = 5000 // effective samples per pulse cycle
	pulseWidth     = 1000 // effective samples the pulse stays high
)

var (
	sinkName = flag.String("sink", "kafka", "Transport to publish on: kafka or mqtt")
	broker   = flag.String("broker", "", "Broker address; defaults to localhost:9092 for kafka, tcp://localhost:1883 for mqtt")
	topic    = flag.String("topic", "", "Topic to publish chunks on; defaults to power-telemetry (kafka) or wattlens/chunks/<device> (mqtt)")
)

type sink interface {
	publish(ctx context.Context, payload []byte) error
	close() error
}

type kafkaSink struct {
	writer *kafka.Writer
}

func (s kafkaSink) publish(ctx context.Context, payload []byte) error {
	return s.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (s kafkaSink) close() error {
	return s.writer.Close()
}

type mqttSink struct {
	client mqtt.Client
	topic  string
}

func (s mqttSink) publish(_ context.Context, payload []byte) error {
	token := s.client.Publish(s.topic, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("mqtt publish timed out")
	}
	return token.Error()
}

func (s mqttSink) close() error {
	s.client.Disconnect(250)
	return nil
}

func newMQTTSink(broker, topic string) (sink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("wattlens-emulator-%d", time.Now().Unix()))
	opts.SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return mqttSink{client: client, topic: topic}, nil
}

func main() {
	flag.Parse()

	b, tpc := *broker, *topic
	var s sink
	switch *sinkName {
	case "kafka":
		if b == "" {
			b = "localhost:9092"
		}
		if tpc == "" {
			tpc = "power-telemetry"
		}
		s = kafkaSink{writer: &kafka.Writer{
			Addr:     kafka.TCP(b),
			Topic:    tpc,
			Balancer: &kafka.LeastBytes{},
		}}
	case "mqtt":
		if b == "" {
			b = "tcp://localhost:1883"
		}
		if tpc == "" {
			tpc = "wattlens/chunks/" + device
		}
		var err error
		if s, err = newMQTTSink(b, tpc); err != nil {
			log.Fatalf("Error connecting MQTT sink: %v", err)
		}
	default:
		log.Fatalf("Unknown sink %q (want kafka or mqtt)", *sinkName)
	}
	defer func() {
		if err := s.close(); err != nil {
			log.Printf("Error closing sink: %v", err)
		}
	}()
	log.Printf("Starting chunk emulator for device %s on %s sink: %s, topic: %s", device, *sinkName, b, tpc)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Println("Shutdown signal received, stopping emulator...")
		cancel()
	}()

	// One time map serves the whole run: the sample clock is anchored once
	// at startup and never re-disciplined.
	tm := stream.TimeMap{
		OffsetCounter: 0,
		CounterRate:   sampleRate,
		OffsetTime:    stream.FromTime(time.Now()),
	}

	// Emit chunks in real time: 200 effective samples per 200 ms tick.
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var n, published uint64

	for {
		select {
		case <-ticker.C:
			for _, c := range chunkBatch(n, tm, rng) {
				payload, err := json.Marshal(c)
				if err != nil {
					log.Printf("Error marshalling chunk: %v", err)
					continue
				}
				if err := s.publish(ctx, payload); err != nil {
					if ctx.Err() != nil {
						log.Println("Context cancelled, exiting chunk loop.")
						return
					}
					log.Printf("Error publishing chunk: %v", err)
					continue
				}
				published++
			}
			n += chunkSamples
			if n%pulsePeriod == 0 {
				log.Printf("Published %d chunks, stream at sample %d", published, n*decimateFactor)
			}

		case <-ctx.Done():
			log.Println("Emulator loop stopped.")
			return
		}
	}
}

// chunkBatch builds the four signal chunks covering one tick's span of
// effective samples starting at effective index n.
func chunkBatch(n uint64, tm stream.TimeMap, rng *rand.Rand) []*stream.Chunk {
	i := make([]float64, chunkSamples)
	v := make([]float64, chunkSamples)
	p := make([]float64, chunkSamples)
	bits := make([]bool, chunkSamples)
	for k := range i {
		pulsing := (n+uint64(k))%pulsePeriod < pulseWidth
		bits[k] = pulsing
		if pulsing {
			i[k] = 0.45 + rng.NormFloat64()*0.002
		} else {
			i[k] = 0.008 + rng.NormFloat64()*0.0005
		}
		v[k] = 3.3 + rng.NormFloat64()*0.001
		p[k] = i[k] * v[k]
	}

	base := stream.Chunk{
		Device:         device,
		SampleID:       n * decimateFactor,
		DecimateFactor: decimateFactor,
		SampleRate:     sampleRate,
		TimeMap:        tm,
	}

	ic, vc, pc, gc := base, base, base, base
	ic.Signal, ic.Data = "i", i
	vc.Signal, vc.Data = "v", v
	pc.Signal, pc.Data = "p", p
	gc.Signal, gc.Bits = "gpi0", stream.PackBits(bits)
	return []*stream.Chunk{&ic, &vc, &pc, &gc}
}
