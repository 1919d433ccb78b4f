// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wattlens/wattlens/internal/config"
	"github.com/wattlens/wattlens/internal/stream"
)

// source is the ingest stage contract. The Kafka and MQTT consumers both
// satisfy it.
type source interface {
	Run(ctx context.Context) error
}

// Pipeline orchestrates the stages: source, parsing, analysis, emission.
type Pipeline struct {
	cfg      *config.Config
	source   source
	analyzer *Analyzer
	emitter  *Emitter
	logger   *zap.Logger

	rawChunks chan []byte
	chunks    chan *stream.Chunk
	events    chan Event
}

// New creates and wires up a new analysis pipeline.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")
	initLogger.Debug("Creating pipeline components...")

	// Create Channels
	const channelBufferSize = 100
	rawChunks := make(chan []byte, channelBufferSize)
	chunks := make(chan *stream.Chunk, channelBufferSize)
	events := make(chan Event, channelBufferSize)
	initLogger.Debug("Channels created", zap.Int("bufferSize", channelBufferSize))

	// Initialize Components
	var (
		src source
		err error
	)
	switch cfg.Source.Type {
	case "kafka":
		src, err = NewConsumer(cfg.Kafka, rawChunks, logger.Named("consumer"))
	case "mqtt":
		src, err = NewMQTTConsumer(cfg.MQTT, rawChunks, logger.Named("mqtt-consumer"))
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownSourceType, cfg.Source.Type)
	}
	if err != nil {
		initLogger.Error("Failed to create source", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrConsumerCreationFailed, err)
	}
	initLogger.Debug("Source created", zap.String("type", cfg.Source.Type))

	analyzerInstance := NewAnalyzer(cfg, chunks, events, logger.Named("analyzer"))
	initLogger.Debug("Analyzer created")

	emitterInstance, err := NewEmitter(cfg.Output, cfg.Pipeline.AnalogSignals, events, logger.Named("emitter"))
	if err != nil {
		initLogger.Error("Failed to create emitter", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEmitterCreationFailed, err)
	}
	initLogger.Debug("Emitter created")

	// Create Pipeline
	p := &Pipeline{
		cfg:       cfg,
		source:    src,
		analyzer:  analyzerInstance,
		emitter:   emitterInstance,
		logger:    logger.Named("pipeline"),
		rawChunks: rawChunks,
		chunks:    chunks,
		events:    events,
	}

	initLogger.Info("Pipeline instance created successfully")
	return p, nil
}

// Run starts all pipeline components and waits for them to complete or
// context cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()
	var wg sync.WaitGroup
	pipelineErr := make(chan error, 4) // source, parser, analyzer, emitter

	sugar.Info("Pipeline Run: Starting components...")

	// Start components as goroutines
	wg.Add(4)
	go p.runSource(ctx, &wg, pipelineErr)
	go p.runParser(ctx, &wg)
	go p.runAnalyzer(ctx, &wg, pipelineErr)
	go p.runEmitter(ctx, &wg, pipelineErr)

	// Wait for context cancellation or the first error from any component
	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled. Waiting for components to finish...")
		firstErr = ctx.Err()
	case err := <-pipelineErr:
		sugar.Errorw("Pipeline Run: Received error from a component, initiating shutdown...", zap.Error(err))
		firstErr = err
	}

	// Wait for all component goroutines to complete their shutdown sequence
	sugar.Debug("Pipeline Run: Waiting on WaitGroup...")
	wg.Wait()
	sugar.Info("Pipeline Run: All components finished.")

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

// runSource executes the ingest component logic in a goroutine.
func (p *Pipeline) runSource(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.rawChunks)
		p.logger.Debug("Raw chunks channel closed")
	}()

	p.logger.Debug("Starting source goroutine...")
	if err := p.source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Source component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrConsumerRunFailed, err)
	} else if err == nil {
		p.logger.Debug("Source goroutine finished normally")
	} else {
		p.logger.Debug("Source goroutine cancelled gracefully")
	}
}

// runParser executes the chunk decoding logic in a goroutine.
func (p *Pipeline) runParser(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		close(p.chunks)
		p.logger.Debug("Chunk channel closed")
	}()

	parserLogger := p.logger.Named("parser").Sugar()
	parserLogger.Debug("Starting parser goroutine...")

	for {
		select {
		case raw, ok := <-p.rawChunks:
			if !ok {
				parserLogger.Debug("Parser finished (raw chunk channel closed).")
				return
			}

			c, err := stream.ParseChunk(raw)
			if err != nil {
				chunksInvalid.Inc()
				parserLogger.Warnw("Failed to parse chunk, skipping", zap.Error(err))
				continue
			}

			// Send parsed chunk downstream or handle context cancellation
			select {
			case p.chunks <- c:

			case <-ctx.Done():
				parserLogger.Debug("Parser context cancelled during send.", zap.Error(ctx.Err()))
				return
			}

		case <-ctx.Done():
			parserLogger.Debug("Parser context cancelled while waiting for raw chunk.", zap.Error(ctx.Err()))
			return
		}
	}
}

// runAnalyzer executes the analyzer component logic in a goroutine.
func (p *Pipeline) runAnalyzer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		close(p.events)
		p.logger.Debug("Event channel closed")
	}()

	p.logger.Debug("Starting analyzer goroutine...")
	if err := p.analyzer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Analyzer component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrAnalyzerRunFailed, err)
	} else if err == nil {
		p.logger.Debug("Analyzer goroutine finished normally")
	} else { // errors.Is(err, context.Canceled)
		p.logger.Debug("Analyzer goroutine cancelled gracefully")
	}
}

// runEmitter executes the emitter component logic in a goroutine.
func (p *Pipeline) runEmitter(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()

	p.logger.Debug("Starting emitter goroutine...")
	if err := p.emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Emitter component exited with error", zap.Error(err))
		errCh <- fmt.Errorf("%w: %w", ErrEmitterRunFailed, err)
	} else if err == nil {
		p.logger.Debug("Emitter goroutine finished normally")
	} else { // errors.Is(err, context.Canceled)
		p.logger.Debug("Emitter goroutine cancelled gracefully")
	}
}
