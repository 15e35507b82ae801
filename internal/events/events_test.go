package events

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPublisher_DeliversJSONEvent(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, sarama.NewConfig())
	mp.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Tessellation
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Place != "Paris, France" || ev.Res != 8 || ev.Cells != 1337 || !ev.CacheHit {
			return errors.New("unexpected payload: " + string(val))
		}
		if ev.TS.IsZero() {
			return errors.New("timestamp not stamped")
		}
		return nil
	})

	p := NewWithProducer(mp, "tessellations", 4, discard())
	p.Publish(Tessellation{Place: "Paris, France", Res: 8, Cells: 1337, CacheHit: true})

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublisher_ProducerErrorsAreLoggedNotFatal(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, sarama.NewConfig())
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)
	mp.ExpectInputAndSucceed()

	p := NewWithProducer(mp, "tessellations", 4, discard())
	p.Publish(Tessellation{Place: "a", Res: 1})
	p.Publish(Tessellation{Place: "b", Res: 1})

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// stuckProducer never reads its input, so the publisher's queue fills.
type stuckProducer struct {
	sarama.AsyncProducer
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func (s *stuckProducer) Input() chan<- *sarama.ProducerMessage { return s.input }
func (s *stuckProducer) Errors() <-chan *sarama.ProducerError  { return s.errors }

func TestPublisher_FullQueueDropsWithoutBlocking(t *testing.T) {
	sp := &stuckProducer{
		input:  make(chan *sarama.ProducerMessage),
		errors: make(chan *sarama.ProducerError),
	}
	t.Cleanup(func() { close(sp.errors) })
	p := NewWithProducer(sp, "tessellations", 2, discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			p.Publish(Tessellation{Place: "x", Res: 3})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}
}

func TestNop_Publish(t *testing.T) {
	var s Sink = Nop{}
	s.Publish(Tessellation{Place: "x"})
}
