package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"hemolink/internal/notification"
)

// producer is the part of *kgo.Client the channel needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaChannel publishes notifications to a topic for downstream senders
// (SMS gateways, push services). A message is accepted once the broker acks
// the produce.
type KafkaChannel struct {
	producer producer
	topic    string
}

// notificationEvent is the wire format of a published notification.
type notificationEvent struct {
	RecordID   string    `json:"record_id"`
	RequestID  string    `json:"request_id"`
	DonorID    string    `json:"donor_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	EventType  string    `json:"event_type"`
	BloodType  string    `json:"blood_type"`
	Units      int       `json:"units"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewKafka(client *kgo.Client, topic string) (*KafkaChannel, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	return &KafkaChannel{producer: client, topic: topic}, nil
}

func (c *KafkaChannel) Name() string { return "kafka" }

// Send produces one record keyed by donor ID so a donor's notifications stay
// ordered within a partition.
func (c *KafkaChannel) Send(ctx context.Context, env notification.Envelope) error {
	payload, err := json.Marshal(notificationEvent{
		RecordID:   env.RecordID.String(),
		RequestID:  env.RequestID.String(),
		DonorID:    env.Recipient.DonorID.String(),
		Name:       env.Recipient.Name,
		Email:      env.Recipient.Email,
		Phone:      env.Recipient.Phone,
		EventType:  string(env.EventType),
		BloodType:  env.BloodType.String(),
		Units:      env.Units,
		Subject:    env.Subject,
		Message:    env.Message,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	record := &kgo.Record{
		Topic: c.topic,
		Key:   []byte(env.Recipient.DonorID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	if err := c.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
