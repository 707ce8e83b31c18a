package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// KafkaNotifier publishes payment events to a kafka topic, keyed by
// order id so events for one order stay ordered.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

type paymentUpdateDueEvent struct {
	Type       string    `json:"type"`
	ProjectID  uint      `json:"project_id"`
	OrderID    uint      `json:"order_id"`
	UserID     string    `json:"user_id"`
	DueDate    time.Time `json:"due_date"`
	ResumeLink string    `json:"resume_link"`
}

type paymentConfirmationEvent struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id"`
	OrderID   uint   `json:"order_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
}

func (n *KafkaNotifier) SendPaymentUpdateDue(ctx context.Context, project *models.Project, order *models.Order, dueDate time.Time, resumeLink string) error {
	return n.publish(ctx, order.ID, paymentUpdateDueEvent{
		Type:       "payment_update_due",
		ProjectID:  project.ID,
		OrderID:    order.ID,
		UserID:     order.UserID.String(),
		DueDate:    dueDate,
		ResumeLink: resumeLink,
	})
}

func (n *KafkaNotifier) SendPaymentConfirmation(ctx context.Context, project *models.Project, order *models.Order, amount int64) error {
	return n.publish(ctx, order.ID, paymentConfirmationEvent{
		Type:      "payment_confirmation",
		ProjectID: project.ID,
		OrderID:   order.ID,
		UserID:    order.UserID.String(),
		Amount:    amount,
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, orderID uint, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(orderID), 10)),
		Value: data,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
