// Package events publishes tessellation events to Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
)

// Tessellation is emitted once per served /hexagons request.
type Tessellation struct {
	Place    string    `json:"place"`
	Res      int       `json:"res"`
	Cells    int       `json:"cells"`
	CacheHit bool      `json:"cache_hit"`
	TS       time.Time `json:"ts"`
}

type Sink interface {
	Publish(ev Tessellation)
}

// Nop discards everything; used when events are disabled.
type Nop struct{}

func (Nop) Publish(Tessellation) {}

type Publisher struct {
	topic   string
	events  chan Tessellation
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
	once    sync.Once
}

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return NewWithProducer(prod, topic, queueSize, logger), nil
}

// NewWithProducer wires an existing producer. The producer must have
// Return.Errors enabled.
func NewWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		topic:   topic,
		events:  make(chan Tessellation, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("events: marshal failed", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(strings.ToLower(strings.TrimSpace(ev.Place))),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("events: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish never blocks the request path; a full queue drops the event.
func (p *Publisher) Publish(ev Tessellation) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
		observability.IncEventsDropped()
	}
}

// Close drains queued events into the producer and closes it.
// Publish must not be called after Close.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.events)
		<-p.stopped
		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("events: close producer: %w", cerr)
		}
		<-p.errDone
	})
	return err
}
