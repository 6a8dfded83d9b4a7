package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tablekit/restaurant-api/internal/ws"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt Event) error {
	p.events = append(p.events, evt)
	return p.err
}

func testEvent(t *testing.T) Event {
	t.Helper()
	evt, err := New("order.created", uuid.New(), uuid.New(), uuid.New(), map[string]string{"order_number": "ORD-1"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return evt
}

func TestNew_MarshalsPayload(t *testing.T) {
	evt := testEvent(t)

	var payload map[string]string
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["order_number"] != "ORD-1" {
		t.Errorf("payload: got %v", payload)
	}
	if evt.OccurredAt.IsZero() {
		t.Error("expected occurred_at to be set")
	}
}

func TestNew_RejectsUnmarshalablePayload(t *testing.T) {
	if _, err := New("x", uuid.New(), uuid.New(), uuid.New(), make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), testEvent(t))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Errorf("every publisher should see the event: ok=%d failing=%d", len(ok.events), len(failing.events))
	}
}

func TestMulti_Empty(t *testing.T) {
	if err := (Multi{}).Publish(context.Background(), testEvent(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: "restaurant_events"}
	evt := testEvent(t)

	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ch.exchange != "restaurant_events" {
		t.Errorf("exchange: got %q", ch.exchange)
	}
	if ch.key != "order.created" {
		t.Errorf("routing key: got %q, want %q", ch.key, "order.created")
	}
	if ch.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("delivery mode: got %d, want persistent", ch.msg.DeliveryMode)
	}

	var decoded Event
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if decoded.OrderID != evt.OrderID {
		t.Errorf("order id: got %v, want %v", decoded.OrderID, evt.OrderID)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}

func TestAMQPPublisher_PropagatesError(t *testing.T) {
	p := &AMQPPublisher{channel: &fakeChannel{err: amqp.ErrClosed}, exchange: "x"}
	if err := p.Publish(context.Background(), testEvent(t)); !errors.Is(err, amqp.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestKafkaPublisher_SendsEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	evt := testEvent(t)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded Event
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded.Type != evt.Type {
			return errors.New("unexpected event type " + decoded.Type)
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "restaurant.events")
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaPublisher_WrapsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "restaurant.events")
	err := p.Publish(context.Background(), testEvent(t))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
	producer.Close()
}

func TestHubPublisher_ReportsFullQueue(t *testing.T) {
	// The hub is never run, so its broadcast queue fills up.
	hub := ws.NewHub(zap.NewNop())
	p := NewHubPublisher(hub)
	evt := testEvent(t)

	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		err = p.Publish(context.Background(), evt)
	}
	if !errors.Is(err, ErrHubBusy) {
		t.Fatalf("expected ErrHubBusy, got %v", err)
	}
}
