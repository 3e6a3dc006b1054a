package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/segmentio/kafka-go"
)

// KafkaNotifier публикует дайджесты в топик обновлений. Сообщения, которые не
// удалось доставить, уходят в DLQ с заголовком ошибки.
type KafkaNotifier struct {
	producer    *kafka.Writer
	dlqProducer *kafka.Writer
	logger      *slog.Logger
	digestTopic string
	dlqTopic    string
}

type DigestUpdateMessage struct {
	DigestID     int64     `json:"digestId"`
	SubscriberID int64     `json:"subscriberId"`
	ResourceID   int64     `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	EntityID     int64     `json:"entityId"`
	TopicID      int64     `json:"topicId"`
	SnapshotID   int64     `json:"snapshotId"`
	Summary      string    `json:"summary"`
	ChangeType   string    `json:"changeType"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewKafkaNotifier(brokers []string, digestTopic, dlqTopic string, logger *slog.Logger) *KafkaNotifier {
	producer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        digestTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	dlqProducer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return &KafkaNotifier{
		producer:    producer,
		dlqProducer: dlqProducer,
		logger:      logger,
		digestTopic: digestTopic,
		dlqTopic:    dlqTopic,
	}
}

func (n *KafkaNotifier) Send(
	ctx context.Context,
	subscriber *models.Subscriber,
	digests []*models.Digest,
	_ string,
) error {
	n.logger.Info("Отправка дайджестов в Kafka",
		"subscriberID", subscriber.ID,
		"digests", len(digests),
		"topic", n.digestTopic,
	)

	for _, digest := range digests {
		message := DigestUpdateMessage{
			DigestID:     digest.ID,
			SubscriberID: subscriber.ID,
			ResourceID:   digest.ResourceID,
			ResourceName: digest.ResourceName,
			EntityID:     digest.EntityID,
			TopicID:      digest.TopicID,
			SnapshotID:   digest.SnapshotID,
			Summary:      digest.Summary,
			ChangeType:   digest.ChangeType,
			CreatedAt:    digest.CreatedAt,
		}

		value, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("ошибка при сериализации сообщения: %w", err)
		}

		err = n.producer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", digest.ResourceID)),
			Value: value,
			Time:  time.Now(),
		})
		if err != nil {
			n.logger.Error("Ошибка при отправке сообщения в Kafka",
				"digestID", digest.ID,
				"error", err,
			)

			if dlqErr := n.sendToDLQ(ctx, value, err.Error()); dlqErr != nil {
				n.logger.Error("Ошибка при отправке сообщения в DLQ",
					"error", dlqErr,
				)
			}

			return fmt.Errorf("ошибка при отправке сообщения в Kafka: %w", err)
		}
	}

	n.logger.Info("Дайджесты успешно отправлены в Kafka")

	return nil
}

func (n *KafkaNotifier) sendToDLQ(ctx context.Context, message []byte, errMsg string) error {
	return n.dlqProducer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: message,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(errMsg)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
		Time: time.Now(),
	})
}

func (n *KafkaNotifier) Close() error {
	if err := n.producer.Close(); err != nil {
		return err
	}

	return n.dlqProducer.Close()
}
