package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/h3-cities/internal/cache/keys"
	obs "github.com/mohammed-shakir/h3-cities/internal/core/observability"
	mylog "github.com/mohammed-shakir/h3-cities/internal/logger"
)

type Deleter interface {
	Del(ctx context.Context, keys ...string) error
}

// BoundaryForgetter drops a memoized geocoder result.
type BoundaryForgetter interface {
	Forget(place string) bool
}

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

type Consumer struct {
	cfg        Config
	logger     *slog.Logger
	store      Deleter
	boundaries BoundaryForgetter
}

func New(cfg Config, logger *slog.Logger, store Deleter, boundaries BoundaryForgetter) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 3 * time.Second
	}
	if cfg.RebalanceTimeout <= 0 {
		cfg.RebalanceTimeout = 30 * time.Second
	}
	return &Consumer{cfg: cfg, logger: logger, store: store, boundaries: boundaries}
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.store == nil {
		return errors.New("invalidation: missing store")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	ctx = mylog.WithComponent(ctx, "invalidation")
	handler := &groupHandler{process: c.ProcessOne}

	c.logger.InfoContext(ctx, "invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				obs.IncKafkaConsumerError("consume")
				c.logger.ErrorContext(ctx, "kafka consumer error", "err", err, "topic", c.cfg.Topic)
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// ProcessOne applies a single invalidation message.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.logger.WarnContext(ctx, "undecodable invalidation event skipped",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		// poison messages are skipped, retrying cannot fix them
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncKafkaConsumerError("invalid")
		c.logger.WarnContext(ctx, "invalid invalidation event skipped",
			"offset", msg.Offset, "err", err)
		return nil
	}

	if ev.Op == OpBoundaryChanged && c.boundaries != nil {
		c.boundaries.Forget(ev.Place)
	}

	res := ev.Resolutions()
	delKeys := make([]string, 0, len(res))
	for _, r := range res {
		delKeys = append(delKeys, keys.Key(ev.Place, r))
	}

	if err := c.store.Del(ctx, delKeys...); err != nil {
		obs.IncKafkaConsumerError("redis_del")
		obs.ObserveInvalidation(ev.Op, 0, err)
		return fmt.Errorf("redis del: %w", err)
	}

	obs.ObserveInvalidation(ev.Op, len(delKeys), nil)
	c.logger.InfoContext(ctx, "invalidated tessellations",
		"op", ev.Op, "place", ev.Place, "keys", len(delKeys))
	return nil
}
