// Package events publishes transaction lifecycle changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

// Message is the JSON value written for each lifecycle change.
type Message struct {
	TransactionID string    `json:"transaction_id"`
	StudentID     string    `json:"student_id"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to"`
	ActorID       string    `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	Remarks       string    `json:"remarks,omitempty"`
	At            time.Time `json:"at"`
}

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer dials brokers with acknowledgement from all in-sync replicas.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	return producer, nil
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Notify sends e keyed by transaction id so one request's changes stay ordered.
func (p *Publisher) Notify(_ context.Context, e transaction.Event) error {
	data, err := json.Marshal(Message{
		TransactionID: e.TransactionID.String(),
		StudentID:     e.StudentID.String(),
		From:          string(e.From),
		To:            string(e.To),
		ActorID:       e.Actor.ID.String(),
		ActorRole:     string(e.Actor.Role),
		Remarks:       e.Remarks,
		At:            e.At,
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.TransactionID.String()),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", e.To, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
