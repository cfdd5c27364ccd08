package nodes

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
	"github.com/birdayz/edgepipe/serde"
)

// producer is the subset of *kgo.Client the kafka_message node uses.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

func newKgoProducer(brokers []string) (producer, error) {
	return kgo.NewClient(kgo.SeedBrokers(brokers...))
}

// KafkaMessageType publishes every incoming message as a JSON record keyed
// by the node tag. Produce errors are reported asynchronously and only
// logged.
func KafkaMessageType() enode.Type {
	t := enode.Type{
		Name:     "kafka_message",
		Title:    "Kafka Message",
		Category: enode.CategorySink,
		Version:  Version,
		Pins:     []enode.PinSpec{signalIn},
	}
	t.New = func(env enode.Env) enode.Node {
		return &KafkaMessage{
			Base:            enode.NewBase(t, env),
			brokers:         env.Kafka.Brokers,
			topic:           env.Kafka.Topic,
			newProducer:     newKgoProducer,
			keySerializer:   serde.StringerSerializer[etag.NodeTag](),
			valueSerializer: serde.JSONSerializer[enode.Message](),
		}
	}
	return t
}

type KafkaMessage struct {
	enode.Base
	brokers []string
	topic   string

	newProducer     func(brokers []string) (producer, error)
	keySerializer   serde.Serializer[etag.NodeTag]
	valueSerializer serde.Serializer[enode.Message]

	client producer

	// closeMtx orders Close after every Refresh that got past the closed
	// check, so inflight never grows while Close waits on it.
	closeMtx sync.RWMutex

	mu       sync.Mutex
	inflight sync.WaitGroup
	produced int
	failed   int
}

func (n *KafkaMessage) Add(ctx context.Context, id int, pos enode.Position) (etag.NodeTag, error) {
	tag, err := n.Base.Add(ctx, id, pos)
	if err != nil {
		return tag, err
	}
	if len(n.brokers) == 0 {
		n.Log.Warn("No Kafka brokers configured, messages are dropped")
		return tag, nil
	}
	client, err := n.newProducer(n.brokers)
	if err != nil {
		return tag, fmt.Errorf("kafka_message: create client: %w", err)
	}
	n.client = client
	return tag, nil
}

func (n *KafkaMessage) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	msg := in.Message()
	if msg == nil || n.client == nil || n.topic == "" {
		return nil, nil, nil
	}

	key, err := n.keySerializer(n.Tag())
	if err != nil {
		return nil, nil, fmt.Errorf("kafka_message: failed to marshal key: %w", err)
	}
	value, err := n.valueSerializer(msg)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka_message: failed to marshal value: %w", err)
	}

	n.closeMtx.RLock()
	defer n.closeMtx.RUnlock()
	if n.Closed() {
		return nil, nil, nil
	}

	n.inflight.Add(1)
	// The record outlives the tick, so it must not inherit the tick deadline.
	n.client.Produce(context.WithoutCancel(ctx), &kgo.Record{
		Key:   key,
		Value: value,
		Topic: n.topic,
	}, func(r *kgo.Record, err error) {
		defer n.inflight.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		if err != nil {
			n.failed++
			n.Log.Warn("Failed to produce message", "topic", r.Topic, "error", err)
			return
		}
		n.produced++
	})
	return nil, nil, nil
}

// Counts returns the number of records acknowledged and failed so far.
func (n *KafkaMessage) Counts() (produced, failed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.produced, n.failed
}

// Close flushes outstanding records and closes the client.
func (n *KafkaMessage) Close(ctx context.Context) error {
	n.closeMtx.Lock()
	first := n.MarkClosed()
	n.closeMtx.Unlock()
	if !first || n.client == nil {
		return nil
	}
	err := n.client.Flush(ctx)
	// Close fails whatever is still buffered, which runs the remaining
	// promises.
	n.client.Close()
	n.inflight.Wait()
	if err != nil {
		return fmt.Errorf("kafka_message: flush: %w", err)
	}
	return nil
}

func (n *KafkaMessage) Delete(ctx context.Context) error {
	return n.Close(ctx)
}

func (n *KafkaMessage) ExportParams() (enode.Params, error) {
	p, err := n.Base.ExportParams()
	if err != nil {
		return p, err
	}
	return p, p.Set("topic", n.topic)
}

func (n *KafkaMessage) ImportParams(p enode.Params) error {
	if err := n.Base.ImportParams(p); err != nil {
		return err
	}
	_, err := p.Get("topic", &n.topic)
	return err
}
